// Package worker drains focus events into the journal store.
package worker

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/gazefocus/internal/adapters/mq/queue"
	"github.com/okian/gazefocus/pkg/logger"
	"github.com/okian/gazefocus/pkg/metrics"
)

// Event abstracts what workers read off the queue.
type Event = queue.Event

// Store persists focus transitions.
type Store interface {
	Append(ctx context.Context, ev Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker consumes focus events until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled, Shutdown is
	// called or the queue is closed and drained.
	Run(ctx context.Context)

	// Shutdown stops the worker and waits for the loop to exit.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker. A single worker keeps transitions in
// the order the tick loop produced them.
type InMemoryWorker struct {
	queue Queue
	store Store
	name  string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(queue Queue, store Store, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    queue,
		store:    store,
		name:     "journal",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Default().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "journal" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := w.processEvent(ctx, event); err != nil {
				w.logger.Error(ctx, "error processing focus event", logger.Error(err))
			}
		}
	}
}

// Done is closed once Run has returned.
func (w *InMemoryWorker) Done() <-chan struct{} { return w.done }

// Shutdown stops the worker. It is safe to call more than once.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) processEvent(ctx context.Context, event Event) error {
	if err := w.store.Append(ctx, event); err != nil {
		metrics.RecordErrorByComponent("worker", "journal_append")
		return fmt.Errorf("append focus event for object %d: %w", event.ObjectID, err)
	}
	return nil
}
