// Package types contains the read shapes returned by the HTTP API.
package types

import (
	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
)

// Vector is a JSON-friendly Vec3.
type Vector struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// VectorOf converts v.
func VectorOf(v geom.Vec3) Vector { return Vector{X: v.X, Y: v.Y, Z: v.Z} }

// Ray is a JSON-friendly gaze ray.
type Ray struct {
	Origin    Vector `json:"origin"`
	Direction Vector `json:"direction"`
	Valid     bool   `json:"valid"`
}

// RayOf converts g.
func RayOf(g geom.GazeRay) Ray {
	return Ray{Origin: VectorOf(g.Ray.Origin), Direction: VectorOf(g.Ray.Direction), Valid: g.Valid}
}

// Focus is one object the user is attending to.
type Focus struct {
	ObjectID    model.ObjectID `json:"object_id"`
	Name        string         `json:"name"`
	Score       float64        `json:"score"`
	AdjustedRay Ray            `json:"adjusted_ray"`
}

// Entry is one row of the dwell ranking.
type Entry struct {
	Rank         int            `json:"rank"`
	ObjectID     model.ObjectID `json:"object_id"`
	Name         string         `json:"name"`
	DwellSeconds float64        `json:"dwell_seconds"`
	Gains        int            `json:"gains"`
	Focused      bool           `json:"focused"`
}

// Transition is one recorded focus change.
type Transition struct {
	Seq       uint64         `json:"seq"`
	ObjectID  model.ObjectID `json:"object_id"`
	Name      string         `json:"name"`
	HasFocus  bool           `json:"has_focus"`
	Timestamp float64        `json:"ts"`
}

// Candidate is one tracked candidate with its last score.
type Candidate struct {
	ObjectID model.ObjectID `json:"object_id"`
	Score    float64        `json:"score"`
	Corners  []Vector       `json:"corners"`
}
