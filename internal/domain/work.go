// Package domain holds the marketplace entities and the work lifecycle rules.
package domain

import (
	"github.com/canvaslab/nft-server/internal/apperr"
)

// WorkStatus is the work lifecycle state. The wire value is the string itself
// and is stable; unknown values must never be defaulted on read.
type WorkStatus string

const (
	// StatusPrepare marks a work awaiting NFT issuance.
	StatusPrepare WorkStatus = "Prepare"
	// StatusPublished marks a work whose token mint has been confirmed.
	StatusPublished WorkStatus = "Published"
	// StatusListed marks a published work with an open sell order.
	StatusListed WorkStatus = "Listed"
)

// ParseWorkStatus maps a stored string onto the closed enum. An unrecognized
// value is an internal error, not a default.
func ParseWorkStatus(s string) (WorkStatus, error) {
	switch WorkStatus(s) {
	case StatusPrepare, StatusPublished, StatusListed:
		return WorkStatus(s), nil
	default:
		return "", apperr.Newf(apperr.KindInternal, "unknown work status %q", s)
	}
}

// CanAdvanceTo reports whether next is a legal forward transition. No
// transition moves backward.
func (s WorkStatus) CanAdvanceTo(next WorkStatus) bool {
	switch s {
	case StatusPrepare:
		return next == StatusPublished
	case StatusPublished:
		return next == StatusListed
	default:
		return false
	}
}

// Work is one submitted piece of content awaiting or having undergone NFT
// issuance.
type Work struct {
	ID        string
	MediaPath string
	Status    WorkStatus
	Price     int
}

// NewWork returns a work in the initial Prepare state.
func NewWork(id, mediaPath string) *Work {
	return &Work{
		ID:        id,
		MediaPath: mediaPath,
		Status:    StatusPrepare,
	}
}

// AdvanceTo moves the work forward along the transition graph. Illegal
// transitions are rejected as bad requests and leave the status unchanged.
func (w *Work) AdvanceTo(next WorkStatus) error {
	if !w.Status.CanAdvanceTo(next) {
		return apperr.Newf(apperr.KindBadRequest, "work %s: illegal status transition %s -> %s", w.ID, w.Status, next)
	}
	w.Status = next
	return nil
}

// Thumbnail is a rendering owned by exactly one work. Thumbnails are created
// by bulk import and deleted only as a cascade of work deletion.
type Thumbnail struct {
	ID        string
	WorkID    string
	ImagePath string
	Order     int
}
