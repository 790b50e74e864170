// Package task defines the message envelope that hands long-running
// operations from the API service to the worker. Each task kind carries a
// stable numeric discriminant; the wire shape is a JSON envelope of
// {"subject": "<discriminant>", "message": "<JSON payload>"}.
//
// Discriminants are part of the wire contract and must never be renumbered.
package task

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/canvaslab/nft-server/internal/apperr"
)

// ErrUnknownKind is returned when a message carries a subject no registered
// task kind claims. Unknown subjects are a hard decode failure: dropping one
// silently would leave a work stuck in Prepare with no operator visibility.
var ErrUnknownKind = apperr.New(apperr.KindBadRequest, "unknown task kind")

// Kind is the stable numeric discriminant of a task variant.
type Kind int

const (
	// KindCreateWork imports a work CSV from object storage.
	KindCreateWork Kind = 1
	// KindCreateThumbnail imports a thumbnail CSV from object storage.
	KindCreateThumbnail Kind = 2
	// KindMintERC721 mints a prepared work on the ERC-721 contract.
	KindMintERC721 Kind = 3
	// KindMintERC1155 mints a prepared work on the ERC-1155 contract.
	KindMintERC1155 Kind = 4
)

func (k Kind) String() string {
	switch k {
	case KindCreateWork:
		return "create_work"
	case KindCreateThumbnail:
		return "create_thumbnail"
	case KindMintERC721:
		return "mint_erc721"
	case KindMintERC1155:
		return "mint_erc1155"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// RoutingKey resolves the destination topic for the kind. The mapping is
// static and versioned with the discriminants.
func (k Kind) RoutingKey() string {
	switch k {
	case KindCreateWork:
		return "task.work.import"
	case KindCreateThumbnail:
		return "task.thumbnail.import"
	case KindMintERC721:
		return "task.nft.mint721"
	case KindMintERC1155:
		return "task.nft.mint1155"
	default:
		return ""
	}
}

// Task is one unit of asynchronous work. Every variant carries the executor
// identity for post-completion notification plus whatever the worker needs to
// resume without consulting request-time state.
type Task interface {
	Kind() Kind
	// Executor returns the identity that requested the operation.
	Executor() string
}

// CreateWork asks the worker to import a work CSV uploaded to object storage.
type CreateWork struct {
	ExecutorID string `json:"executor_id"`
	Prefix     string `json:"prefix"`
	FileName   string `json:"file_name"`
}

func (CreateWork) Kind() Kind         { return KindCreateWork }
func (t CreateWork) Executor() string { return t.ExecutorID }

// CreateThumbnail asks the worker to import a thumbnail CSV.
type CreateThumbnail struct {
	ExecutorID string `json:"executor_id"`
	Prefix     string `json:"prefix"`
	FileName   string `json:"file_name"`
}

func (CreateThumbnail) Kind() Kind         { return KindCreateThumbnail }
func (t CreateThumbnail) Executor() string { return t.ExecutorID }

// MintERC721 asks the worker to mint a prepared work. MetadataKey is the
// storage location of the metadata document uploaded during prepare, so the
// worker never redoes the upload.
type MintERC721 struct {
	ExecutorID  string `json:"executor_id"`
	WorkID      string `json:"work_id"`
	MetadataKey string `json:"metadata_key"`
}

func (MintERC721) Kind() Kind         { return KindMintERC721 }
func (t MintERC721) Executor() string { return t.ExecutorID }

// MintERC1155 asks the worker to mint a prepared work with an edition amount.
type MintERC1155 struct {
	ExecutorID  string `json:"executor_id"`
	WorkID      string `json:"work_id"`
	Amount      int64  `json:"amount"`
	MetadataKey string `json:"metadata_key"`
}

func (MintERC1155) Kind() Kind         { return KindMintERC1155 }
func (t MintERC1155) Executor() string { return t.ExecutorID }

type envelope struct {
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Encode serializes a task into its bus wire form.
func Encode(t Task) ([]byte, error) {
	payload, err := json.Marshal(t)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "encode task payload", err)
	}

	body, err := json.Marshal(envelope{
		Subject: strconv.Itoa(int(t.Kind())),
		Message: string(payload),
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "encode task envelope", err)
	}

	return body, nil
}

// Decode parses a bus message back into a task. An unregistered subject fails
// with ErrUnknownKind; it is never mapped to a default variant.
func Decode(body []byte) (Task, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, "malformed task envelope", err)
	}

	subject, err := strconv.Atoi(env.Subject)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindBadRequest, fmt.Sprintf("non-numeric task subject %q", env.Subject), err)
	}

	switch Kind(subject) {
	case KindCreateWork:
		var t CreateWork
		if err := decodePayload(env.Message, &t); err != nil {
			return nil, err
		}
		return t, nil
	case KindCreateThumbnail:
		var t CreateThumbnail
		if err := decodePayload(env.Message, &t); err != nil {
			return nil, err
		}
		return t, nil
	case KindMintERC721:
		var t MintERC721
		if err := decodePayload(env.Message, &t); err != nil {
			return nil, err
		}
		return t, nil
	case KindMintERC1155:
		var t MintERC1155
		if err := decodePayload(env.Message, &t); err != nil {
			return nil, err
		}
		return t, nil
	default:
		return nil, fmt.Errorf("subject %d: %w", subject, ErrUnknownKind)
	}
}

func decodePayload(message string, into any) error {
	if err := json.Unmarshal([]byte(message), into); err != nil {
		return apperr.Wrap(apperr.KindBadRequest, "malformed task payload", err)
	}
	return nil
}
