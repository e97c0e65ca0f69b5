// Package geom holds the small amount of 3D math the gaze engine needs:
// vectors, rays, affine 4x4 transforms and axis-aligned boxes.
package geom

import "math"

// Vec3 is a 3-component vector in world or local space.
type Vec3 struct {
	X, Y, Z float64
}

// Common axis vectors.
var (
	Zero    = Vec3{}
	Right   = Vec3{X: 1}
	Up      = Vec3{Y: 1}
	Forward = Vec3{Z: 1}
	One     = Vec3{X: 1, Y: 1, Z: 1}
)

// V is shorthand for Vec3{x, y, z}.
func V(x, y, z float64) Vec3 { return Vec3{X: x, Y: y, Z: z} }

func (a Vec3) Add(b Vec3) Vec3      { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3      { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Mul(b Vec3) Vec3      { return Vec3{a.X * b.X, a.Y * b.Y, a.Z * b.Z} }
func (a Vec3) Neg() Vec3            { return Vec3{-a.X, -a.Y, -a.Z} }
func (a Vec3) Dot(b Vec3) float64   { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Length() float64      { return math.Sqrt(a.Dot(a)) }
func (a Vec3) Min(b Vec3) Vec3 {
	return Vec3{math.Min(a.X, b.X), math.Min(a.Y, b.Y), math.Min(a.Z, b.Z)}
}
func (a Vec3) Max(b Vec3) Vec3 {
	return Vec3{math.Max(a.X, b.X), math.Max(a.Y, b.Y), math.Max(a.Z, b.Z)}
}
func (a Vec3) IsZero() bool            { return a == Zero }
func (a Vec3) LessEq(b Vec3) bool      { return a.X <= b.X && a.Y <= b.Y && a.Z <= b.Z }
func (a Vec3) Distance(b Vec3) float64 { return a.Sub(b).Length() }

// Cross returns a × b.
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{
		a.Y*b.Z - a.Z*b.Y,
		a.Z*b.X - a.X*b.Z,
		a.X*b.Y - a.Y*b.X,
	}
}

// Normalize returns a unit vector, or the zero vector for a zero input.
func (a Vec3) Normalize() Vec3 {
	l := a.Length()
	if l == 0 {
		return Zero
	}
	return a.Scale(1 / l)
}

// ClampMagnitude shortens a so its length does not exceed maxLength.
func (a Vec3) ClampMagnitude(maxLength float64) Vec3 {
	l := a.Length()
	if l <= maxLength || l == 0 {
		return a
	}
	return a.Scale(maxLength / l)
}

// Angle returns the unsigned angle between a and b in radians.
func (a Vec3) Angle(b Vec3) float64 {
	d := a.Length() * b.Length()
	if d == 0 {
		return 0
	}
	c := a.Dot(b) / d
	return math.Acos(math.Max(-1, math.Min(1, c)))
}

// Ray is a half-line starting at Origin heading along Direction.
type Ray struct {
	Origin    Vec3
	Direction Vec3
}

// At returns the point at parameter t along the ray.
func (r Ray) At(t float64) Vec3 { return r.Origin.Add(r.Direction.Scale(t)) }

// GazeRay is a ray plus the validity flag reported by the tracker.
type GazeRay struct {
	Ray   Ray
	Valid bool
}

// NewGazeRay builds a valid gaze ray with a normalized direction.
func NewGazeRay(origin, direction Vec3) GazeRay {
	return GazeRay{Ray: Ray{Origin: origin, Direction: direction.Normalize()}, Valid: true}
}
