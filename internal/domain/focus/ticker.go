package focus

import (
	"context"

	"github.com/okian/gazefocus/internal/domain/model"
	"github.com/okian/gazefocus/pkg/logger"
	"github.com/okian/gazefocus/pkg/metrics"
)

// Sink receives focus transitions. Publish must not block.
type Sink interface {
	Publish(ev model.FocusEvent) bool
}

// Option applies a configuration option to the Ticker.
type Option func(*Ticker)

// WithSink records every transition to s.
func WithSink(s Sink) Option {
	return func(t *Ticker) { t.sink = s }
}

// WithLogger sets the ticker logger.
func WithLogger(l logger.Logger) Option {
	return func(t *Ticker) {
		if l != nil {
			t.logger = l
		}
	}
}

// Ticker tracks the single focused object and notifies listeners exactly
// once per change. It is driven from the tick loop and is not safe for
// concurrent use.
type Ticker struct {
	listeners *Listeners
	sink      Sink
	logger    logger.Logger

	focused bool
	current model.SceneObject
}

// NewTicker creates a Ticker in the NoFocus state.
func NewTicker(listeners *Listeners, opts ...Option) *Ticker {
	t := &Ticker{
		listeners: listeners,
		logger:    logger.Default().Named("focus"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Current returns the focused object, if any.
func (t *Ticker) Current() (model.SceneObject, bool) {
	return t.current, t.focused
}

// TickComplete applies the transition rule to the ordered focus list of a
// tick. Only the head of focused is considered. It reports whether the
// focused object changed.
func (t *Ticker) TickComplete(ctx context.Context, now float64, focused []model.FocusedCandidate) bool {
	var top model.SceneObject
	if len(focused) > 0 {
		top = focused[0].Object
	}

	if top == nil && !t.focused {
		return false
	}
	if top != nil && t.focused && top.ID() == t.current.ID() {
		return false
	}

	if t.focused {
		prev := t.current
		t.notify(prev, false)
		t.record(ctx, now, prev, false)
	}

	if top == nil {
		t.focused, t.current = false, nil
		metrics.UpdateFocusedScore(0)
		return true
	}

	t.focused, t.current = true, top
	t.notify(top, true)
	t.record(ctx, now, top, true)
	metrics.UpdateFocusedScore(focused[0].Score)
	return true
}

// Reset drops the focused object, notifying its listeners.
func (t *Ticker) Reset(ctx context.Context, now float64) bool {
	return t.TickComplete(ctx, now, nil)
}

func (t *Ticker) notify(obj model.SceneObject, hasFocus bool) {
	for _, l := range t.listeners.For(obj.ID()) {
		l.GazeFocusChanged(hasFocus)
	}
}

func (t *Ticker) record(ctx context.Context, now float64, obj model.SceneObject, hasFocus bool) {
	metrics.RecordFocusChange(hasFocus)
	t.logger.Debug(ctx, "focus changed",
		logger.Uint64("object_id", uint64(obj.ID())),
		logger.String("name", obj.Name()),
		logger.Bool("has_focus", hasFocus),
	)
	if t.sink == nil {
		return
	}
	ev := model.FocusEvent{ObjectID: obj.ID(), Name: obj.Name(), HasFocus: hasFocus, Timestamp: now}
	if !t.sink.Publish(ev) {
		metrics.RecordFocusEventDropped()
	}
}
