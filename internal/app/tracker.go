// Package service hosts the Tracker, which owns one instance of every
// gaze-focus component and runs the per-tick pipeline.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/okian/gazefocus/internal/adapters/mq/queue"
	"github.com/okian/gazefocus/internal/adapters/mq/worker"
	"github.com/okian/gazefocus/internal/adapters/repository"
	"github.com/okian/gazefocus/internal/domain/bounds"
	"github.com/okian/gazefocus/internal/domain/focus"
	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
	"github.com/okian/gazefocus/internal/domain/registry"
	"github.com/okian/gazefocus/internal/domain/scoring"
	"github.com/okian/gazefocus/internal/domain/search"
	"github.com/okian/gazefocus/pkg/logger"
	"github.com/okian/gazefocus/pkg/metrics"
)

// Default tracker configuration.
const (
	defaultCandidateMemory = 1.0
	defaultFocusEpsilon    = 1e-6
	defaultQueueSize       = 1024
	defaultShutdownTimeout = 5 * time.Second
)

// Scene is the physical collision query the tracker raycasts against.
type Scene = search.Raycaster

// SampleSource supplies one device sample per tick. ok is false when no
// sample is available yet.
type SampleSource interface {
	Sample(ctx context.Context) (sample model.DeviceSample, ok bool)
}

// TickResult summarizes one tick.
type TickResult struct {
	Candidates int
	Evicted    registry.Eviction
	Changed    bool
	Skipped    bool // scorer failed, previous focus retained
	Focused    *model.FocusedCandidate
}

// Stats are cumulative tracker counters.
type Stats struct {
	Ticks           uint64         `json:"ticks"`
	SkippedTicks    uint64         `json:"skippedTicks"`
	FocusChanges    uint64         `json:"focusChanges"`
	EvictedStale    uint64         `json:"evictedStale"`
	EvictedDead     uint64         `json:"evictedDead"`
	EvictedOverflow uint64         `json:"evictedOverflow"`
	Candidates      int            `json:"candidates"`
	Capacity        int            `json:"capacity"`
	FocusedID       model.ObjectID `json:"focusedId,omitempty"`
	HasFocus        bool           `json:"hasFocus"`
	LastTick        time.Duration  `json:"lastTickNanos"`
	LastSample      float64        `json:"lastSampleTimestamp"`
	Version         string         `json:"scorerVersion"`
}

// Tracker runs discovery, eviction, scoring and focus notification once
// per tick. Tick, Clear and Close are serialized; the read accessors may
// be called from any goroutine.
type Tracker struct {
	tickMu sync.Mutex
	mu     sync.RWMutex

	scorer    *scoring.Context
	registry  *registry.Registry
	finder    *search.Finder
	bounds    *bounds.Extractor
	ticker    *focus.Ticker
	listeners *focus.Listeners

	events        *queue.InMemoryQueue
	journal       *repository.Journal
	journalWorker *worker.InMemoryWorker
	cancelWorker  context.CancelFunc

	capacity        int
	threadCount     int
	license         []byte
	maxAge          float64
	epsilon         float64
	queueSize       int
	shutdownTimeout time.Duration
	searchOpts      []search.Option
	version         string

	sample   model.DeviceSample
	geometry []model.CandidateGeometry
	results  []model.ScoredCandidate
	focused  []model.FocusedCandidate
	stats    Stats
	closed   bool

	logger logger.Logger
}

// New opens a scorer context over engine and wires the tick pipeline.
// A scorer creation failure is the only error it reports.
func New(ctx context.Context, engine scoring.Engine, scene Scene, opts ...Option) (*Tracker, error) {
	if engine == nil {
		return nil, ErrNoEngine
	}
	if scene == nil {
		return nil, ErrNoScene
	}

	t := &Tracker{
		maxAge:          defaultCandidateMemory,
		epsilon:         defaultFocusEpsilon,
		queueSize:       defaultQueueSize,
		shutdownTimeout: defaultShutdownTimeout,
		logger:          logger.Default().Named("tracker"),
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.listeners == nil {
		t.listeners = focus.NewListeners()
	}
	if t.journal == nil {
		t.journal = repository.NewJournal()
	}

	sc, err := scoring.Open(ctx, engine,
		scoring.WithCapacity(t.capacity),
		scoring.WithThreadCount(t.threadCount),
		scoring.WithLicense(t.license),
		scoring.WithLogger(t.logger.Named("scorer")),
	)
	if err != nil {
		return nil, fmt.Errorf("open scorer: %w", err)
	}
	t.scorer = sc
	t.capacity = sc.Capacity()
	v := engine.Version()
	t.version = fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Build)

	t.registry = registry.New(
		registry.WithExpectedSize(t.capacity),
		registry.WithLogger(t.logger.Named("registry")),
	)
	t.finder = search.New(sc, scene, t.listeners,
		append([]search.Option{search.WithLogger(t.logger.Named("search"))}, t.searchOpts...)...)
	t.bounds = bounds.New(bounds.WithLogger(t.logger.Named("bounds")))

	t.events = queue.NewInMemoryQueue(queue.WithCapacity(t.queueSize))
	t.ticker = focus.NewTicker(t.listeners,
		focus.WithSink(t.events),
		focus.WithLogger(t.logger.Named("focus")),
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	t.cancelWorker = cancel
	t.journalWorker = worker.NewInMemoryWorker(t.events, t.journal,
		worker.WithLogger(t.logger.Named("worker")),
	)
	go t.journalWorker.Run(workerCtx)

	t.stats.Capacity = t.capacity
	t.stats.Version = t.version
	t.logger.Info(ctx, "tracker started",
		logger.Int("capacity", t.capacity),
		logger.Float64("candidate_memory_s", t.maxAge),
		logger.Float64("focus_epsilon", t.epsilon),
		logger.String("scorer_version", t.version),
	)
	return t, nil
}

// Listeners returns the focus listener registry.
func (t *Tracker) Listeners() *focus.Listeners { return t.listeners }

// Journal returns the focus journal.
func (t *Tracker) Journal() repository.Store { return t.journal }

// Tick runs one discovery and scoring cycle for sample. Failures degrade
// the tick instead of being returned.
func (t *Tracker) Tick(ctx context.Context, sample model.DeviceSample) TickResult {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()

	if t.closed {
		return TickResult{Skipped: true}
	}

	start := time.Now()
	now := sample.Timestamp

	for _, obj := range t.finder.FindCandidates(ctx, sample) {
		t.registry.Upsert(obj.ID(), obj, now)
	}
	evicted := t.registry.EvictStale(ctx, now, t.maxAge, t.capacity)

	candidates := t.registry.Snapshot()
	geometry := t.bounds.Geometry(ctx, candidates)
	hit := t.finder.RaycastResult(sample)
	metrics.UpdateCandidatesLive(len(candidates))

	res := TickResult{Candidates: len(candidates), Evicted: evicted}

	scored, err := t.scorer.Process(sample, hit, geometry)
	if err != nil {
		t.logger.Error(ctx, "scorer process failed, keeping previous focus",
			logger.Error(err),
			logger.Int("candidates", len(geometry)),
		)
		metrics.RecordTickFailure("process")
		res.Skipped = true
		t.publish(sample, geometry, nil, nil, res, time.Since(start), false)
		return res
	}

	focused := t.focusList(ctx, scored)
	res.Changed = t.ticker.TickComplete(ctx, now, focused)
	if len(focused) > 0 {
		top := focused[0]
		res.Focused = &top
	}

	results := append([]model.ScoredCandidate(nil), scored...)
	t.publish(sample, geometry, results, focused, res, time.Since(start), true)
	metrics.RecordTick(time.Since(start))
	return res
}

// focusList joins scores above epsilon back to their live objects. The
// list is cut at the first score at or below epsilon.
func (t *Tracker) focusList(ctx context.Context, scored []model.ScoredCandidate) []model.FocusedCandidate {
	var out []model.FocusedCandidate
	for _, s := range scored {
		if s.Score <= t.epsilon {
			break
		}
		c, ok := t.registry.Get(s.ID)
		if !ok {
			t.logger.Error(ctx, "scorer returned unknown candidate",
				logger.Uint64("candidate_id", uint64(s.ID)))
			metrics.RecordErrorByComponent("tracker", "unknown_candidate")
			continue
		}
		out = append(out, model.FocusedCandidate{Object: c.Object, Score: s.Score, AdjustedRay: s.AdjustedRay})
	}
	return out
}

func (t *Tracker) publish(sample model.DeviceSample, geometry []model.CandidateGeometry, results []model.ScoredCandidate,
	focused []model.FocusedCandidate, res TickResult, took time.Duration, scoredOK bool,
) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sample = sample
	t.geometry = geometry
	t.stats.Ticks++
	t.stats.Candidates = res.Candidates
	t.stats.EvictedStale += uint64(len(res.Evicted.Stale))
	t.stats.EvictedDead += uint64(len(res.Evicted.Dead))
	t.stats.EvictedOverflow += uint64(len(res.Evicted.Overflow))
	t.stats.LastTick = took
	t.stats.LastSample = sample.Timestamp
	if !scoredOK {
		t.stats.SkippedTicks++
		return
	}
	t.results = results
	t.focused = focused
	if res.Changed {
		t.stats.FocusChanges++
	}
	cur, ok := t.ticker.Current()
	t.stats.HasFocus = ok
	t.stats.FocusedID = 0
	if ok {
		t.stats.FocusedID = cur.ID()
	}
}

// Focused returns the current focused candidate, if any.
func (t *Tracker) Focused() (model.FocusedCandidate, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.focused) == 0 {
		return model.FocusedCandidate{}, false
	}
	return t.focused[0], true
}

// FocusedObjects returns every candidate of the last scored tick with a
// score above epsilon, best first.
func (t *Tracker) FocusedObjects() []model.FocusedCandidate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.FocusedCandidate(nil), t.focused...)
}

// Candidates returns the geometry passed to the scorer on the last tick.
func (t *Tracker) Candidates() []model.CandidateGeometry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.CandidateGeometry(nil), t.geometry...)
}

// CandidateResults returns the scorer output of the last scored tick.
func (t *Tracker) CandidateResults() []model.ScoredCandidate {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return append([]model.ScoredCandidate(nil), t.results...)
}

// DeviceSample returns the last ticked sample.
func (t *Tracker) DeviceSample() model.DeviceSample {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.sample
}

// Stats returns cumulative counters.
func (t *Tracker) Stats() Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.stats
}

// CandidateCorners returns the world-space corners of a candidate's bounds
// as of the last tick.
func (t *Tracker) CandidateCorners(id model.ObjectID) ([geom.NumberOfCorners]geom.Vec3, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, g := range t.geometry {
		if g.ID == id {
			return g.Bounds.Corners(g.LocalToWorld), true
		}
	}
	return [geom.NumberOfCorners]geom.Vec3{}, false
}

// Clear forgets every candidate. Focus is re-evaluated on the next tick.
func (t *Tracker) Clear() {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()
	t.registry.Clear()
	metrics.UpdateCandidatesLive(0)
}

// Run ticks at interval with samples from source until ctx is done or the
// tracker is closed.
func (t *Tracker) Run(ctx context.Context, source SampleSource, interval time.Duration) error {
	tk := time.NewTicker(interval)
	defer tk.Stop()

	t.logger.Info(ctx, "tick loop started", logger.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			t.logger.Info(ctx, "tick loop stopped")
			return nil
		case <-tk.C:
			if t.isClosed() {
				return ErrClosed
			}
			sample, ok := source.Sample(ctx)
			if !ok {
				continue
			}
			t.Tick(ctx, sample)
		}
	}
}

func (t *Tracker) isClosed() bool {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()
	return t.closed
}

// Close drops focus, destroys the scorer context and drains the journal.
// It is safe to call more than once.
func (t *Tracker) Close(ctx context.Context) error {
	t.tickMu.Lock()
	defer t.tickMu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	if t.ticker.Reset(ctx, t.sample.Timestamp) {
		t.mu.Lock()
		t.focused = nil
		t.stats.HasFocus, t.stats.FocusedID = false, 0
		t.mu.Unlock()
	}

	var errs []error
	if err := t.scorer.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := t.events.Close(); err != nil {
		errs = append(errs, err)
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, t.shutdownTimeout)
	defer cancel()
	select {
	case <-t.journalWorker.Done():
	case <-shutdownCtx.Done():
		t.logger.Warn(ctx, "journal did not drain before shutdown")
	}
	t.cancelWorker()
	if err := t.journalWorker.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}

	t.logger.Info(ctx, "tracker stopped")
	return errors.Join(errs...)
}
