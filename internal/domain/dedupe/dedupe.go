// Package dedupe remembers client request keys so retried commands resolve
// to the work they started the first time.
package dedupe

import (
	"container/list"
	"context"
	"sync"
)

const defaultMaxSize = 1024

// Deduper maps request keys to the id of the work they started.
type Deduper interface {
	// Claim reserves key. If key was claimed before it returns the id bound
	// to it (empty while the first request is still in flight) and true.
	Claim(ctx context.Context, key string) (id string, seen bool)

	// Bind records the id a claimed key resolved to.
	Bind(ctx context.Context, key, id string)

	// Release forgets key so the request can be retried, for example when
	// the command it guarded was rejected.
	Release(ctx context.Context, key string)

	Size() int
}

type entry struct {
	key string
	id  string
}

// InMemory is a Deduper bounded to maxSize keys; the oldest claim is
// forgotten first. A maxSize <= 0 keeps every key.
type InMemory struct {
	mu      sync.Mutex
	keys    map[string]*list.Element
	order   *list.List // front is the newest claim
	maxSize int
}

// NewInMemory creates a deduper.
func NewInMemory(opts ...Option) *InMemory {
	d := &InMemory{maxSize: defaultMaxSize}
	for _, opt := range opts {
		opt(d)
	}
	d.keys = make(map[string]*list.Element)
	d.order = list.New()
	return d
}

// Claim implements Deduper.
func (d *InMemory) Claim(_ context.Context, key string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if el, ok := d.keys[key]; ok {
		return el.Value.(*entry).id, true
	}
	if d.maxSize > 0 && d.order.Len() >= d.maxSize {
		oldest := d.order.Back()
		d.order.Remove(oldest)
		delete(d.keys, oldest.Value.(*entry).key)
	}
	d.keys[key] = d.order.PushFront(&entry{key: key})
	return "", false
}

// Bind implements Deduper. Unknown keys are ignored.
func (d *InMemory) Bind(_ context.Context, key, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.keys[key]; ok {
		el.Value.(*entry).id = id
	}
}

// Release implements Deduper.
func (d *InMemory) Release(_ context.Context, key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if el, ok := d.keys[key]; ok {
		d.order.Remove(el)
		delete(d.keys, key)
	}
}

// Size implements Deduper.
func (d *InMemory) Size() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.order.Len()
}
