package service

import (
	"time"

	"github.com/okian/gazefocus/internal/adapters/repository"
	"github.com/okian/gazefocus/internal/domain/focus"
	"github.com/okian/gazefocus/internal/domain/search"
	"github.com/okian/gazefocus/pkg/logger"
)

// Option applies a configuration option to the Tracker.
type Option func(*Tracker)

// WithCapacity overrides the scorer's default candidate capacity.
func WithCapacity(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.capacity = n
		}
	}
}

// WithThreadCount sets the scorer thread count.
func WithThreadCount(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.threadCount = n
		}
	}
}

// WithLicense passes a license blob to the scorer.
func WithLicense(b []byte) Option {
	return func(t *Tracker) { t.license = b }
}

// WithCandidateMemory sets how long an undiscovered candidate is kept.
func WithCandidateMemory(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.maxAge = d.Seconds()
		}
	}
}

// WithFocusEpsilon sets the score a candidate must exceed to be focused.
func WithFocusEpsilon(eps float64) Option {
	return func(t *Tracker) {
		if eps >= 0 {
			t.epsilon = eps
		}
	}
}

// WithSearchOptions forwards options to the candidate finder.
func WithSearchOptions(opts ...search.Option) Option {
	return func(t *Tracker) { t.searchOpts = append(t.searchOpts, opts...) }
}

// WithListeners shares a listener registry with the scene.
func WithListeners(ls *focus.Listeners) Option {
	return func(t *Tracker) {
		if ls != nil {
			t.listeners = ls
		}
	}
}

// WithJournal sets the store focus transitions are journaled to.
func WithJournal(j *repository.Journal) Option {
	return func(t *Tracker) {
		if j != nil {
			t.journal = j
		}
	}
}

// WithEventQueueSize sets the capacity of the focus event queue.
func WithEventQueueSize(n int) Option {
	return func(t *Tracker) {
		if n > 0 {
			t.queueSize = n
		}
	}
}

// WithShutdownTimeout bounds how long Close waits for the journal worker.
func WithShutdownTimeout(d time.Duration) Option {
	return func(t *Tracker) {
		if d > 0 {
			t.shutdownTimeout = d
		}
	}
}

// WithLogger sets a custom logger for the tracker.
func WithLogger(l logger.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.logger = l
		}
	}
}
