// Package scoring defines the attention scorer call contract, the owning
// context handle around it, and a pure-Go reference engine.
package scoring

import (
	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
)

// Options are the creation parameters of a scorer context.
type Options struct {
	Capacity    uint32
	ThreadCount uint32
	License     []byte
}

// Version identifies a scorer build.
type Version struct {
	Major, Minor, Build uint32
}

// Engine creates scorer handles. It mirrors the native library entry points.
type Engine interface {
	// DefaultOptions returns the engine's preferred creation options.
	DefaultOptions() (Options, Status)
	Create(opts Options) (Handle, Status)
	Version() Version
}

// Handle is one live scorer context. Callers own the slices they pass; the
// handle fills rays and results in place.
type Handle interface {
	// SearchPattern fills rays with the current optimal sampling pattern.
	// Rays after the first invalid one are undefined.
	SearchPattern(sample *model.DeviceSample, rays []geom.GazeRay) Status
	// Process scores candidates against sample. results has len(candidates)
	// rows ordered by descending score.
	Process(sample *model.DeviceSample, hit model.RaycastHit, candidates []model.CandidateGeometry, results []model.ScoredCandidate) Status
	Destroy() Status
}
