// Package bounds derives local-space bounding boxes from collision volumes
// and builds the per-tick geometry descriptors handed to the scorer.
package bounds

import (
	"context"
	"math"

	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
	"github.com/okian/gazefocus/pkg/logger"
	"github.com/okian/gazefocus/pkg/metrics"
)

// Source tells which policy produced a box.
type Source int

// Bound sources in priority order.
const (
	SourceBox Source = iota
	SourceSphere
	SourceCapsule
	SourceMesh
	SourceZero
)

func (s Source) String() string {
	switch s {
	case SourceBox:
		return "box"
	case SourceSphere:
		return "sphere"
	case SourceCapsule:
		return "capsule"
	case SourceMesh:
		return "mesh"
	default:
		return "zero"
	}
}

// Extractor computes candidate bounds. It never fails: unsupported shapes
// degrade to a zero-size box and a warning.
type Extractor struct {
	logger logger.Logger
}

// Option applies a configuration option to the Extractor.
type Option func(*Extractor)

// WithLogger sets the logger used for degraded-geometry warnings.
func WithLogger(l logger.Logger) Option {
	return func(e *Extractor) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Extractor.
func New(opts ...Option) *Extractor {
	e := &Extractor{logger: logger.Default().Named("bounds")}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BoundsFor returns the local-space AABB for obj.
func (e *Extractor) BoundsFor(ctx context.Context, obj model.SceneObject) (geom.AABB, Source) {
	switch c := obj.Collider().(type) {
	case model.BoxCollider:
		return Box(c), SourceBox
	case *model.BoxCollider:
		return Box(*c), SourceBox
	case model.SphereCollider:
		return Sphere(c), SourceSphere
	case *model.SphereCollider:
		return Sphere(*c), SourceSphere
	case model.CapsuleCollider:
		if b, ok := Capsule(c); ok {
			return b, SourceCapsule
		}
	case *model.CapsuleCollider:
		if b, ok := Capsule(*c); ok {
			return b, SourceCapsule
		}
	}

	if b, ok := obj.MeshBounds(); ok {
		return geom.AABB{Min: b.Min.Min(b.Max), Max: b.Max.Max(b.Min)}, SourceMesh
	}

	e.logger.Warn(ctx, "failed to find bounds for object; reverting to zero bounds",
		logger.String("object", obj.Name()),
		logger.Uint64("id", uint64(obj.ID())),
	)
	metrics.RecordZeroBounds()
	return geom.AABB{}, SourceZero
}

// Geometry builds one descriptor per candidate, in candidate order, using
// the objects' live transforms.
func (e *Extractor) Geometry(ctx context.Context, candidates []model.Candidate) []model.CandidateGeometry {
	out := make([]model.CandidateGeometry, 0, len(candidates))
	for _, c := range candidates {
		b, _ := e.BoundsFor(ctx, c.Object)
		t := c.Object.Transform()
		out = append(out, model.CandidateGeometry{
			ID:           c.ID,
			Bounds:       b,
			LocalToWorld: t.LocalToWorld,
			WorldToLocal: t.WorldToLocal,
		})
	}
	return out
}

// Box returns the collider box directly.
func Box(c model.BoxCollider) geom.AABB {
	half := geom.V(math.Abs(c.Size.X), math.Abs(c.Size.Y), math.Abs(c.Size.Z)).Scale(0.5)
	return geom.AABB{Min: c.Center.Sub(half), Max: c.Center.Add(half)}
}

// inscribedHalf is the half-extent of the cube inscribed in a sphere of r.
func inscribedHalf(r float64) geom.Vec3 {
	r = math.Abs(r)
	return geom.V(r, r, r).ClampMagnitude(r)
}

// Sphere returns the box inscribed in the sphere.
func Sphere(c model.SphereCollider) geom.AABB {
	half := inscribedHalf(c.Radius)
	return geom.AABB{Min: c.Center.Sub(half), Max: c.Center.Add(half)}
}

// Capsule returns the inscribed box of the capsule's cylinder section,
// extended along its axis. The axis offset is the height left after
// removing both hemispherical caps and the clamped-radius margin; it never
// goes below zero.
func Capsule(c model.CapsuleCollider) (geom.AABB, bool) {
	axis, ok := c.Axis.Vector()
	if !ok {
		return geom.AABB{}, false
	}
	r := math.Abs(c.Radius)
	half := inscribedHalf(r)

	length := c.Height - 2*r
	length -= (r - half.X) * 2
	if length < 0 {
		length = 0
	}

	offset := axis.Scale(length)
	return geom.AABB{
		Min: c.Center.Sub(half).Sub(offset),
		Max: c.Center.Add(half).Add(offset),
	}, true
}
