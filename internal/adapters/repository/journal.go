package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/okian/gazefocus/internal/domain/model"
	"github.com/okian/gazefocus/pkg/metrics"
)

const defaultHistorySize = 128

type objectRecord struct {
	name      string
	gains     int
	dwell     float64
	focused   bool
	focusedAt float64
}

// Journal is an in-memory Store: a fixed ring of recent transitions plus
// per-object totals.
type Journal struct {
	mu      sync.RWMutex
	size    int
	ring    []Entry
	next    int
	total   uint64
	objects map[model.ObjectID]*objectRecord
}

// NewJournal creates an empty Journal.
func NewJournal(opts ...Option) *Journal {
	j := &Journal{
		size:    defaultHistorySize,
		objects: make(map[model.ObjectID]*objectRecord),
	}
	for _, opt := range opts {
		opt(j)
	}
	j.ring = make([]Entry, 0, j.size)
	return j
}

// Append implements Store.
func (j *Journal) Append(_ context.Context, ev model.FocusEvent) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	j.total++
	e := Entry{
		Seq:       j.total,
		ObjectID:  ev.ObjectID,
		Name:      ev.Name,
		HasFocus:  ev.HasFocus,
		Timestamp: ev.Timestamp,
	}
	if len(j.ring) < j.size {
		j.ring = append(j.ring, e)
	} else {
		j.ring[j.next] = e
	}
	j.next = (j.next + 1) % j.size

	rec, ok := j.objects[ev.ObjectID]
	if !ok {
		rec = &objectRecord{}
		j.objects[ev.ObjectID] = rec
	}
	rec.name = ev.Name
	switch {
	case ev.HasFocus && !rec.focused:
		rec.gains++
		rec.focused = true
		rec.focusedAt = ev.Timestamp
	case !ev.HasFocus && rec.focused:
		if d := ev.Timestamp - rec.focusedAt; d > 0 {
			rec.dwell += d
		}
		rec.focused = false
	}
	metrics.UpdateJournalObjects(len(j.objects))
	return nil
}

// Recent implements Store.
func (j *Journal) Recent(_ context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	j.mu.RLock()
	defer j.mu.RUnlock()

	if n > len(j.ring) {
		n = len(j.ring)
	}
	out := make([]Entry, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, j.ring[(j.next-i+j.size)%j.size])
	}
	return out, nil
}

// TopN implements Store.
func (j *Journal) TopN(_ context.Context, n int) ([]ObjectStats, error) {
	if n <= 0 {
		return nil, ErrInvalidLimit
	}
	j.mu.RLock()
	all := make([]ObjectStats, 0, len(j.objects))
	for id, rec := range j.objects {
		all = append(all, statsOf(id, rec))
	}
	j.mu.RUnlock()

	sort.Slice(all, func(a, b int) bool {
		if all[a].Dwell != all[b].Dwell {
			return all[a].Dwell > all[b].Dwell
		}
		return all[a].ObjectID < all[b].ObjectID
	})
	if n > len(all) {
		n = len(all)
	}
	out := all[:n]
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// Object implements Store. Rank is the position TopN would report.
func (j *Journal) Object(_ context.Context, id model.ObjectID) (ObjectStats, error) {
	j.mu.RLock()
	defer j.mu.RUnlock()
	rec, ok := j.objects[id]
	if !ok {
		return ObjectStats{}, ErrNotFound
	}
	st := statsOf(id, rec)
	st.Rank = 1
	for other, o := range j.objects {
		if o.dwell > rec.dwell || (o.dwell == rec.dwell && other < id) {
			st.Rank++
		}
	}
	return st, nil
}

// Count implements Store.
func (j *Journal) Count(_ context.Context) int {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return int(j.total)
}

func statsOf(id model.ObjectID, rec *objectRecord) ObjectStats {
	return ObjectStats{
		ObjectID:  id,
		Name:      rec.name,
		Gains:     rec.gains,
		Dwell:     rec.dwell,
		Focused:   rec.focused,
		FocusedAt: rec.focusedAt,
	}
}
