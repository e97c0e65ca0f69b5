// Package registry keeps the bounded, age-indexed set of gaze candidates.
package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/gazefocus/internal/domain/model"
	"github.com/okian/gazefocus/pkg/logger"
	"github.com/okian/gazefocus/pkg/metrics"
)

const defaultExpectedSize = 64

// Eviction reports what one EvictStale pass removed.
type Eviction struct {
	Stale    []model.ObjectID // age exceeded maxAge
	Dead     []model.ObjectID // backing object no longer alive
	Overflow []model.ObjectID // removed oldest-first to respect capacity
}

// Total is the number of removed candidates.
func (e Eviction) Total() int { return len(e.Stale) + len(e.Dead) + len(e.Overflow) }

// Registry maps object identity to the last time the object was discovered.
// Iteration and eviction order are deterministic: ties are broken by
// insertion sequence.
type Registry struct {
	mu         sync.RWMutex
	candidates map[model.ObjectID]*model.Candidate
	nextSeq    uint64
	expected   int
	logger     logger.Logger
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		expected: defaultExpectedSize,
		logger:   logger.Default().Named("registry"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.candidates = make(map[model.ObjectID]*model.Candidate, r.expected)
	return r
}

// Upsert inserts id or refreshes its last-seen time. It reports whether
// the candidate is new.
func (r *Registry) Upsert(id model.ObjectID, obj model.SceneObject, now float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.candidates[id]; ok {
		c.LastSeen = now
		c.Object = obj
		return false
	}

	r.nextSeq++
	r.candidates[id] = &model.Candidate{
		ID:       id,
		Object:   obj,
		LastSeen: now,
		Seq:      r.nextSeq,
	}
	metrics.RecordCandidateAdded()
	return true
}

// EvictStale removes every candidate older than maxAge or whose object is
// gone, then trims the oldest survivors until at most maxCapacity remain.
// A negative maxCapacity disables the capacity pass.
func (r *Registry) EvictStale(ctx context.Context, now, maxAge float64, maxCapacity int) Eviction {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ev Eviction
	survivors := make([]*model.Candidate, 0, len(r.candidates))
	for _, c := range r.sortedLocked() {
		switch {
		case c.Object == nil || !c.Object.Alive():
			ev.Dead = append(ev.Dead, c.ID)
		case c.Age(now) > maxAge:
			ev.Stale = append(ev.Stale, c.ID)
		default:
			survivors = append(survivors, c)
		}
	}

	if maxCapacity >= 0 && len(survivors) > maxCapacity {
		// Oldest first; sortedLocked already ordered equal ages by Seq and
		// SliceStable keeps that.
		sort.SliceStable(survivors, func(i, j int) bool {
			return survivors[i].Age(now) > survivors[j].Age(now)
		})
		overflow := len(survivors) - maxCapacity
		for _, c := range survivors[:overflow] {
			ev.Overflow = append(ev.Overflow, c.ID)
		}
		r.logger.Warn(ctx, "candidate count exceeds scorer capacity; purging oldest",
			logger.Int("capacity", maxCapacity),
			logger.Int("supplied", len(survivors)),
			logger.Int("purged", overflow),
		)
	}

	for _, ids := range [][]model.ObjectID{ev.Dead, ev.Stale, ev.Overflow} {
		for _, id := range ids {
			delete(r.candidates, id)
		}
	}

	metrics.RecordEviction("dead", len(ev.Dead))
	metrics.RecordEviction("stale", len(ev.Stale))
	metrics.RecordEviction("capacity", len(ev.Overflow))
	metrics.UpdateCandidatesLive(len(r.candidates))
	return ev
}

// Snapshot returns copies of all candidates in insertion order.
func (r *Registry) Snapshot() []model.Candidate {
	r.mu.RLock()
	defer r.mu.RUnlock()

	sorted := r.sortedLocked()
	out := make([]model.Candidate, len(sorted))
	for i, c := range sorted {
		out[i] = *c
	}
	return out
}

// Get returns the candidate for id.
func (r *Registry) Get(id model.ObjectID) (model.Candidate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.candidates[id]
	if !ok {
		return model.Candidate{}, false
	}
	return *c, true
}

// Len returns the number of live candidates.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.candidates)
}

// Clear drops every candidate. Sequence numbers keep increasing.
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.candidates = make(map[model.ObjectID]*model.Candidate, r.expected)
	metrics.UpdateCandidatesLive(0)
}

// sortedLocked returns the candidates ordered by insertion sequence.
// Must be called with r.mu held.
func (r *Registry) sortedLocked() []*model.Candidate {
	out := make([]*model.Candidate, 0, len(r.candidates))
	for _, c := range r.candidates {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out
}
