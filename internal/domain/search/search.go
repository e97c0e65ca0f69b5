package search

import (
	"context"
	"math"

	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
	"github.com/okian/gazefocus/pkg/logger"
	"github.com/okian/gazefocus/pkg/metrics"
)

// PatternSource yields the scorer's current sampling rays.
type PatternSource interface {
	SearchPattern(sample model.DeviceSample, maxRays int) ([]geom.GazeRay, error)
}

// Raycaster is the physical collision query of the host scene.
type Raycaster interface {
	Raycast(ray geom.Ray, maxDistance float64, layerMask uint32) (model.SceneObject, bool)
}

// Distinguisher reports whether an object has focus listeners attached.
type Distinguisher interface {
	HasCapability(id model.ObjectID) bool
}

// Finder discovers candidate objects by raycasting a burst of search rays
// each tick. It is not safe for concurrent use.
type Finder struct {
	pattern       PatternSource
	raycaster     Raycaster
	distinguisher Distinguisher

	raysPerSecond float64
	minRays       int
	maxRays       int
	layerMask     uint32
	maxDistance   float64
	prev          float64

	found  []model.SceneObject
	seen   map[model.ObjectID]struct{}
	logger logger.Logger
}

// New creates a Finder.
func New(pattern PatternSource, raycaster Raycaster, distinguisher Distinguisher, opts ...Option) *Finder {
	f := &Finder{
		pattern:       pattern,
		raycaster:     raycaster,
		distinguisher: distinguisher,
		raysPerSecond: DefaultRaysPerSecond,
		minRays:       DefaultMinRaysPerTick,
		maxRays:       DefaultMaxRaysPerTick,
		layerMask:     DefaultLayerMask,
		maxDistance:   math.Inf(1),
		seen:          make(map[model.ObjectID]struct{}, DefaultMaxRaysPerTick),
		logger:        logger.Default().Named("search"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// RayCount is the number of search rays to cast after dt seconds.
func (f *Finder) RayCount(dt float64) int {
	if dt < 0 || math.IsNaN(dt) {
		dt = 0
	}
	n := math.Ceil(f.raysPerSecond * dt)
	if n < float64(f.minRays) {
		return f.minRays
	}
	if n > float64(f.maxRays) {
		return f.maxRays
	}
	return int(n)
}

// FindCandidates returns the distinct focusable objects hit by this tick's
// search rays in discovery order. The returned slice is reused by the next
// call. A search pattern failure is logged and yields nothing.
func (f *Finder) FindCandidates(ctx context.Context, sample model.DeviceSample) []model.SceneObject {
	f.found = f.found[:0]
	clear(f.seen)

	rays, err := f.pattern.SearchPattern(sample, f.maxRays)
	if err != nil {
		f.logger.Error(ctx, "search pattern failed", logger.Error(err))
		metrics.RecordTickFailure("search_pattern")
		return f.found
	}

	n := f.RayCount(sample.Timestamp - f.prev)
	f.prev = sample.Timestamp
	if n > len(rays) {
		n = len(rays)
	}

	cast := 0
	for _, r := range rays[:n] {
		if !r.Valid {
			break
		}
		cast++
		obj, ok := f.raycaster.Raycast(r.Ray, f.maxDistance, f.layerMask)
		if !ok {
			continue
		}
		id := obj.ID()
		if _, dup := f.seen[id]; dup {
			continue
		}
		if !f.distinguisher.HasCapability(id) {
			continue
		}
		f.seen[id] = struct{}{}
		f.found = append(f.found, obj)
	}
	metrics.RecordRaysCast(cast)
	return f.found
}

// RaycastResult casts the primary gaze ray. The hit is valid only when the
// object is focusable.
func (f *Finder) RaycastResult(sample model.DeviceSample) model.RaycastHit {
	if !sample.Gaze.Valid {
		return model.RaycastHit{}
	}
	obj, ok := f.raycaster.Raycast(sample.Gaze.Ray, f.maxDistance, f.layerMask)
	if !ok {
		return model.RaycastHit{}
	}
	id := obj.ID()
	return model.RaycastHit{CandidateID: id, Valid: f.distinguisher.HasCapability(id)}
}
