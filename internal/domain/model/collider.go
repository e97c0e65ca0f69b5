package model

import "github.com/okian/gazefocus/internal/domain/geom"

// Axis selects the capsule's long axis.
type Axis int

// Capsule axes.
const (
	AxisX Axis = iota
	AxisY
	AxisZ
)

// Vector returns the unit vector for a.
func (a Axis) Vector() (geom.Vec3, bool) {
	switch a {
	case AxisX:
		return geom.Right, true
	case AxisY:
		return geom.Up, true
	case AxisZ:
		return geom.Forward, true
	default:
		return geom.Zero, false
	}
}

// Collider is a closed set of collision volumes.
type Collider interface {
	isCollider()
}

// BoxCollider is a box of Size centred at Center.
type BoxCollider struct {
	Center geom.Vec3
	Size   geom.Vec3
}

// SphereCollider is a sphere of Radius centred at Center.
type SphereCollider struct {
	Center geom.Vec3
	Radius float64
}

// CapsuleCollider is a capsule of total Height along Axis.
type CapsuleCollider struct {
	Center geom.Vec3
	Radius float64
	Height float64
	Axis   Axis
}

// MeshCollider defers to the render mesh bounds.
type MeshCollider struct{}

func (BoxCollider) isCollider()     {}
func (SphereCollider) isCollider()  {}
func (CapsuleCollider) isCollider() {}
func (MeshCollider) isCollider()    {}
