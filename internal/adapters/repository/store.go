// Package repository stores focus transitions and per-object attention
// totals for the read side.
package repository

import (
	"context"

	"github.com/okian/gazefocus/internal/domain/model"
)

// Entry is one recorded focus transition.
type Entry struct {
	Seq       uint64
	ObjectID  model.ObjectID
	Name      string
	HasFocus  bool
	Timestamp float64
}

// ObjectStats aggregates the focus history of one object.
type ObjectStats struct {
	Rank      int
	ObjectID  model.ObjectID
	Name      string
	Gains     int
	Dwell     float64 // seconds of completed focus spans
	Focused   bool
	FocusedAt float64
}

// Store provides write access for the journal worker and read access for
// the HTTP layer.
type Store interface {
	// Append records a transition. Out-of-order timestamps are accepted
	// but never produce negative dwell.
	Append(ctx context.Context, ev model.FocusEvent) error

	// Recent returns up to n of the latest transitions, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)

	// TopN returns up to n objects ordered by dwell desc, then id asc.
	TopN(ctx context.Context, n int) ([]ObjectStats, error)

	// Object returns the stats of one object.
	// Returns ErrNotFound if the object never had focus.
	Object(ctx context.Context, id model.ObjectID) (ObjectStats, error)

	// Count returns the number of transitions recorded since start.
	Count(ctx context.Context) int
}
