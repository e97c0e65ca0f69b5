package search

import (
	"math"

	"github.com/okian/gazefocus/pkg/logger"
)

// Default search parameters.
const (
	DefaultRaysPerSecond  = 900
	DefaultMinRaysPerTick = 3
	DefaultMaxRaysPerTick = 15
	DefaultLayerMask      = math.MaxUint32
)

// Option applies a configuration option to the Finder.
type Option func(*Finder)

// WithRate sets the target rays per second and the per-tick clamp.
func WithRate(perSecond float64, minRays, maxRays int) Option {
	return func(f *Finder) {
		if perSecond >= 0 {
			f.raysPerSecond = perSecond
		}
		if minRays >= 0 {
			f.minRays = minRays
		}
		if maxRays >= f.minRays {
			f.maxRays = maxRays
		}
	}
}

// WithLayerMask restricts raycasts to the given layers.
func WithLayerMask(mask uint32) Option {
	return func(f *Finder) { f.layerMask = mask }
}

// WithMaxDistance bounds raycast length. Zero or less means unbounded.
func WithMaxDistance(d float64) Option {
	return func(f *Finder) {
		if d > 0 {
			f.maxDistance = d
		} else {
			f.maxDistance = math.Inf(1)
		}
	}
}

// WithStartTime sets the timestamp the first tick is measured against.
func WithStartTime(now float64) Option {
	return func(f *Finder) { f.prev = now }
}

// WithLogger sets the finder logger.
func WithLogger(l logger.Logger) Option {
	return func(f *Finder) {
		if l != nil {
			f.logger = l
		}
	}
}
