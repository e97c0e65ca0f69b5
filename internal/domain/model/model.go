// Package model contains domain models passed between layers.
package model

import (
	"github.com/okian/gazefocus/internal/domain/geom"
)

// ObjectID is the stable per-instance identity of a scene object. Values
// are opaque and not necessarily contiguous.
type ObjectID uint64

// Transform is the live placement of a scene object.
type Transform struct {
	LocalToWorld geom.Mat4
	WorldToLocal geom.Mat4
}

// NewTransform builds a Transform from a local-to-world matrix. A singular
// matrix yields an identity world-to-local.
func NewTransform(localToWorld geom.Mat4) Transform {
	inv, ok := localToWorld.Inverse()
	if !ok {
		inv = geom.Identity()
	}
	return Transform{LocalToWorld: localToWorld, WorldToLocal: inv}
}

// SceneObject is the view the engine has of an object owned by the host
// scene.
type SceneObject interface {
	ID() ObjectID
	Name() string
	// Alive is false once the host destroyed the object.
	Alive() bool
	Transform() Transform
	// Collider returns the physical collision volume, nil when absent.
	Collider() Collider
	// MeshBounds returns the render mesh bounds in local space, if any.
	MeshBounds() (geom.AABB, bool)
}

// Candidate is a scene object eligible for attention scoring.
type Candidate struct {
	ID       ObjectID
	Object   SceneObject
	LastSeen float64 // seconds, device clock
	Seq      uint64  // insertion order, used for deterministic tie-breaks
}

// Age returns now - LastSeen.
func (c Candidate) Age(now float64) float64 { return now - c.LastSeen }

// CandidateGeometry is the per-tick descriptor sent to the scorer.
type CandidateGeometry struct {
	ID           ObjectID
	Bounds       geom.AABB // local space
	LocalToWorld geom.Mat4
	WorldToLocal geom.Mat4
}

// DeviceSample is one immutable snapshot from the eye tracker / head pose.
type DeviceSample struct {
	Timestamp   float64 // seconds
	Gaze        geom.GazeRay
	CameraUp    geom.Vec3
	CameraRight geom.Vec3
}

// RaycastHit classifies what the primary gaze ray physically hit.
type RaycastHit struct {
	CandidateID ObjectID
	// Valid is true only when the hit object carries the focus capability.
	Valid bool
}

// ScoredCandidate is one scorer output row.
type ScoredCandidate struct {
	ID          ObjectID
	Score       float64
	AdjustedRay geom.GazeRay
}

// FocusedCandidate is a scored candidate joined back to its live object.
type FocusedCandidate struct {
	Object      SceneObject
	Score       float64
	AdjustedRay geom.GazeRay
}

// FocusEvent records one focus transition.
type FocusEvent struct {
	ObjectID  ObjectID
	Name      string
	HasFocus  bool
	Timestamp float64
}
