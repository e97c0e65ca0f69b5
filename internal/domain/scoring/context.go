package scoring

import (
	"context"
	"sync"

	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
	"github.com/okian/gazefocus/pkg/logger"
)

// Option applies a configuration option to Open.
type Option func(*openConfig)

type openConfig struct {
	capacity    uint32
	threadCount uint32
	license     []byte
	logger      logger.Logger
}

// WithCapacity overrides the engine's default candidate capacity.
func WithCapacity(n int) Option {
	return func(c *openConfig) {
		if n > 0 {
			c.capacity = uint32(n)
		}
	}
}

// WithThreadCount overrides the engine's default thread count.
func WithThreadCount(n int) Option {
	return func(c *openConfig) {
		if n > 0 {
			c.threadCount = uint32(n)
		}
	}
}

// WithLicense passes a license blob to the engine.
func WithLicense(b []byte) Option {
	return func(c *openConfig) {
		if len(b) > 0 {
			c.license = b
		}
	}
}

// WithLogger sets the context logger.
func WithLogger(l logger.Logger) Option {
	return func(c *openConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// Context owns exactly one scorer handle. It is created by Open and
// destroyed once by Close. It is not safe for concurrent use by several
// tick loops; the mutex only guards Close racing a tick.
type Context struct {
	mu       sync.Mutex
	handle   Handle
	capacity int
	closed   bool

	rays    []geom.GazeRay
	results []model.ScoredCandidate

	logger logger.Logger
}

// Open creates a scorer context. Creation failures are the only errors the
// engine reports to its caller instead of degrading a tick.
func Open(ctx context.Context, engine Engine, opts ...Option) (*Context, error) {
	def, st := engine.DefaultOptions()
	if err := check("options init", st); err != nil {
		return nil, err
	}
	cfg := openConfig{
		capacity:    def.Capacity,
		threadCount: def.ThreadCount,
		logger:      logger.Default().Named("scorer"),
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	h, st := engine.Create(Options{Capacity: cfg.capacity, ThreadCount: cfg.threadCount, License: cfg.license})
	if err := check("context create", st); err != nil {
		cfg.logger.Error(ctx, "failed to create scorer context", logger.Error(err))
		return nil, err
	}

	v := engine.Version()
	cfg.logger.Info(ctx, "created scorer context",
		logger.Int("capacity", int(cfg.capacity)),
		logger.Int("threads", int(cfg.threadCount)),
		logger.Any("version", v),
	)
	return &Context{
		handle:   h,
		capacity: int(cfg.capacity),
		results:  make([]model.ScoredCandidate, cfg.capacity),
		logger:   cfg.logger,
	}, nil
}

// Capacity is the maximum number of candidates Process accepts.
func (c *Context) Capacity() int { return c.capacity }

// SearchPattern returns up to maxRays sampling rays. The returned slice is
// reused by the next call.
func (c *Context) SearchPattern(sample model.DeviceSample, maxRays int) ([]geom.GazeRay, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if maxRays < 0 {
		maxRays = 0
	}
	if cap(c.rays) < maxRays {
		c.rays = make([]geom.GazeRay, maxRays)
	}
	rays := c.rays[:maxRays]
	for i := range rays {
		rays[i] = geom.GazeRay{}
	}
	if err := check("search pattern", c.handle.SearchPattern(&sample, rays)); err != nil {
		return nil, err
	}
	return rays, nil
}

// Process scores candidates. More candidates than Capacity is rejected
// before reaching the engine. The returned slice is reused by the next call.
func (c *Context) Process(sample model.DeviceSample, hit model.RaycastHit, candidates []model.CandidateGeometry) ([]model.ScoredCandidate, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil, ErrClosed
	}
	if len(candidates) > c.capacity {
		return nil, &StatusError{Op: "process", Status: StatusCapacityExceeded}
	}
	results := c.results[:len(candidates)]
	for i := range results {
		results[i] = model.ScoredCandidate{}
	}
	if err := check("process", c.handle.Process(&sample, hit, candidates, results)); err != nil {
		return nil, err
	}
	return results, nil
}

// Close destroys the handle. Further calls are no-ops.
func (c *Context) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	err := check("context destroy", c.handle.Destroy())
	c.handle = nil
	if err != nil {
		c.logger.Error(context.Background(), "failed to destroy scorer context", logger.Error(err))
		return err
	}
	c.logger.Info(context.Background(), "destroyed scorer context")
	return nil
}
