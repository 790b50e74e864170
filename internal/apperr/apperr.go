// Package apperr defines the application error taxonomy shared by the API
// layer, the worker, and the reconciliation job. Every store and collaborator
// failure is wrapped into one of the kinds below so callers can map errors to
// HTTP statuses or requeue decisions without string matching.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an application error.
type Kind int

const (
	// KindBadRequest marks malformed input or an illegal state transition.
	KindBadRequest Kind = iota + 1
	// KindUnauthenticated marks a missing or invalid caller identity.
	KindUnauthenticated
	// KindForbidden marks a caller that lacks rights for the operation.
	KindForbidden
	// KindNotFound marks an absent entity.
	KindNotFound
	// KindInternal marks storage, network, or ledger failures with no
	// recovery action defined by the caller's contract.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// ErrNotFound is the shared sentinel for absent entities. Stores wrap it with
// entity context, e.g. fmt.Errorf("work %s: %w", id, apperr.ErrNotFound).
var ErrNotFound = New(KindNotFound, "resource not found")

// Error carries a kind, a message, and an optional cause.
type Error struct {
	kind  Kind
	msg   string
	cause error
}

// New creates an Error with no cause.
func New(kind Kind, msg string) *Error {
	return &Error{kind: kind, msg: msg}
}

// Newf creates an Error with a formatted message and no cause.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...)}
}

// Wrap creates an Error around a cause. The cause stays reachable through
// errors.Is / errors.As.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{kind: kind, msg: msg, cause: cause}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *Error) Unwrap() error {
	return e.cause
}

// Kind returns the error's classification.
func (e *Error) Kind() Kind {
	return e.kind
}

// KindOf returns the kind of the first *Error in err's chain. Errors that
// never passed through this package are treated as internal.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.kind
	}
	return KindInternal
}

// IsNotFound reports whether err is classified as not-found.
func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

// IsBadRequest reports whether err is classified as a bad request.
func IsBadRequest(err error) bool {
	return KindOf(err) == KindBadRequest
}

// RetryableError marks a transient failure the message bus should redeliver,
// e.g. a minted token the marketplace indexer has not picked up yet.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// Retryable wraps err as retryable. A nil err returns nil.
func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &RetryableError{Err: err}
}

// IsRetryable reports whether err's chain contains a RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}
