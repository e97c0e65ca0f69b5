package scene

import (
	"fmt"
	"math"
	"strings"

	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
)

// Spec describes one object to build.
type Spec struct {
	ID       model.ObjectID
	Name     string
	Shape    string // box, sphere, capsule, mesh or none
	Position geom.Vec3
	YawDeg   float64
	Scale    geom.Vec3
	Size     geom.Vec3 // box size or mesh extent
	Radius   float64
	Height   float64
	Axis     string // x, y or z
	Layer    uint8
}

// Build creates a scene from specs. A zero ID is replaced by the spec's
// 1-based index.
func Build(specs []Spec) (*Scene, error) {
	s := New()
	for i, sp := range specs {
		if sp.ID == 0 {
			sp.ID = model.ObjectID(i + 1)
		}
		if _, dup := s.Get(sp.ID); dup {
			return nil, fmt.Errorf("scene object %d: duplicate id", sp.ID)
		}
		o, err := sp.object()
		if err != nil {
			return nil, fmt.Errorf("scene object %q: %w", sp.Name, err)
		}
		s.Add(o)
	}
	return s, nil
}

func (sp Spec) object() (*Object, error) {
	scale := sp.Scale
	if scale.IsZero() {
		scale = geom.One
	}
	m := geom.TRS(sp.Position, geom.AxisAngle(geom.Up, sp.YawDeg*math.Pi/180), scale)
	opts := []ObjectOption{WithTransform(m), WithLayer(sp.Layer)}

	switch strings.ToLower(sp.Shape) {
	case "box", "":
		opts = append(opts, WithCollider(model.BoxCollider{Size: sp.Size}))
	case "sphere":
		opts = append(opts, WithCollider(model.SphereCollider{Radius: sp.Radius}))
	case "capsule":
		axis, err := parseAxis(sp.Axis)
		if err != nil {
			return nil, err
		}
		opts = append(opts, WithCollider(model.CapsuleCollider{Radius: sp.Radius, Height: sp.Height, Axis: axis}))
	case "mesh":
		half := sp.Size.Scale(0.5)
		opts = append(opts,
			WithCollider(model.MeshCollider{}),
			WithMeshBounds(geom.AABB{Min: half.Neg(), Max: half}),
		)
	case "none":
	default:
		return nil, fmt.Errorf("unknown shape %q", sp.Shape)
	}
	return NewObject(sp.ID, sp.Name, opts...), nil
}

func parseAxis(s string) (model.Axis, error) {
	switch strings.ToLower(s) {
	case "x":
		return model.AxisX, nil
	case "y", "":
		return model.AxisY, nil
	case "z":
		return model.AxisZ, nil
	default:
		return 0, fmt.Errorf("unknown capsule axis %q", s)
	}
}

// DemoSpecs is a small arc of objects in front of a viewer at eye height.
func DemoSpecs() []Spec {
	return []Spec{
		{Name: "crate", Shape: "box", Position: geom.V(-1.2, 1.5, 3), Size: geom.V(0.6, 0.6, 0.6)},
		{Name: "globe", Shape: "sphere", Position: geom.V(-0.4, 1.6, 3.2), Radius: 0.3},
		{Name: "pillar", Shape: "capsule", Position: geom.V(0.4, 1.5, 3.2), Radius: 0.2, Height: 1.2, Axis: "y"},
		{Name: "statue", Shape: "mesh", Position: geom.V(1.2, 1.5, 3), YawDeg: 30, Size: geom.V(0.5, 0.9, 0.4)},
		{Name: "wall", Shape: "box", Position: geom.V(0, 1.5, 6), Size: geom.V(8, 3, 0.1), Layer: 1},
	}
}
