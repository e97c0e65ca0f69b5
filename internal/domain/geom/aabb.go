package geom

import "math"

// AABB is an axis-aligned box in some local space.
type AABB struct {
	Min Vec3
	Max Vec3
}

// Center returns the box midpoint.
func (b AABB) Center() Vec3 { return b.Min.Add(b.Max).Scale(0.5) }

// Extent returns the full size along each axis.
func (b AABB) Extent() Vec3 { return b.Max.Sub(b.Min) }

// Valid reports whether Min <= Max on every axis.
func (b AABB) Valid() bool { return b.Min.LessEq(b.Max) }

// Empty reports a zero-size box.
func (b AABB) Empty() bool { return b.Min == b.Max }

// Corner identifies one of the eight box corners.
type Corner int

// Corners in front/back, lower/upper, left/right order.
const (
	FLL Corner = iota
	FUL
	FUR
	FLR
	BLL
	BUL
	BUR
	BLR
	NumberOfCorners
)

// Corners returns the eight corners transformed by toWorld.
func (b AABB) Corners(toWorld Mat4) [NumberOfCorners]Vec3 {
	lo, hi := b.Min, b.Max
	local := [NumberOfCorners]Vec3{
		FLL: {lo.X, lo.Y, lo.Z},
		FUL: {lo.X, hi.Y, lo.Z},
		FUR: {hi.X, hi.Y, lo.Z},
		FLR: {hi.X, lo.Y, lo.Z},
		BLL: {lo.X, lo.Y, hi.Z},
		BUL: {lo.X, hi.Y, hi.Z},
		BUR: {hi.X, hi.Y, hi.Z},
		BLR: {hi.X, lo.Y, hi.Z},
	}
	var out [NumberOfCorners]Vec3
	for i, c := range local {
		out[i] = toWorld.MulPoint(c)
	}
	return out
}

// IntersectRay runs a slab test of r against b. It returns the entry
// distance along r (clamped to 0 when the origin is inside) and whether
// the ray hits within maxDist.
func (b AABB) IntersectRay(r Ray, maxDist float64) (float64, bool) {
	tmin, tmax := 0.0, maxDist
	o := [3]float64{r.Origin.X, r.Origin.Y, r.Origin.Z}
	d := [3]float64{r.Direction.X, r.Direction.Y, r.Direction.Z}
	lo := [3]float64{b.Min.X, b.Min.Y, b.Min.Z}
	hi := [3]float64{b.Max.X, b.Max.Y, b.Max.Z}

	for i := 0; i < 3; i++ {
		if math.Abs(d[i]) < 1e-12 {
			if o[i] < lo[i] || o[i] > hi[i] {
				return 0, false
			}
			continue
		}
		inv := 1 / d[i]
		t1 := (lo[i] - o[i]) * inv
		t2 := (hi[i] - o[i]) * inv
		if t1 > t2 {
			t1, t2 = t2, t1
		}
		tmin = math.Max(tmin, t1)
		tmax = math.Min(tmax, t2)
		if tmin > tmax {
			return 0, false
		}
	}
	return tmin, true
}

// ClosestPoint returns the point in b nearest to p.
func (b AABB) ClosestPoint(p Vec3) Vec3 {
	return p.Max(b.Min).Min(b.Max)
}
