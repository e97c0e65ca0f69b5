// Package scene is an in-memory host scene: objects with transforms and
// colliders, a raycast provider and a simulated gaze source.
package scene

import (
	"sync"

	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
)

// Object is a scene object. Its transform may be changed between ticks.
type Object struct {
	id       model.ObjectID
	name     string
	layer    uint8
	collider model.Collider
	mesh     *geom.AABB

	mu        sync.RWMutex
	transform model.Transform
	alive     bool
}

// ObjectOption configures an Object.
type ObjectOption func(*Object)

// WithCollider attaches a collision volume.
func WithCollider(c model.Collider) ObjectOption {
	return func(o *Object) { o.collider = c }
}

// WithMeshBounds sets the render mesh bounds in local space.
func WithMeshBounds(b geom.AABB) ObjectOption {
	return func(o *Object) { o.mesh = &b }
}

// WithLayer places the object on a physics layer in [0, 31].
func WithLayer(layer uint8) ObjectOption {
	return func(o *Object) {
		if layer < 32 {
			o.layer = layer
		}
	}
}

// WithTransform sets the initial local-to-world matrix.
func WithTransform(m geom.Mat4) ObjectOption {
	return func(o *Object) { o.transform = model.NewTransform(m) }
}

// NewObject creates a live object at the origin.
func NewObject(id model.ObjectID, name string, opts ...ObjectOption) *Object {
	o := &Object{
		id:        id,
		name:      name,
		transform: model.NewTransform(geom.Identity()),
		alive:     true,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ID implements model.SceneObject.
func (o *Object) ID() model.ObjectID { return o.id }

// Name implements model.SceneObject.
func (o *Object) Name() string { return o.name }

// Layer returns the physics layer.
func (o *Object) Layer() uint8 { return o.layer }

// Alive implements model.SceneObject.
func (o *Object) Alive() bool {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.alive
}

// Transform implements model.SceneObject.
func (o *Object) Transform() model.Transform {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.transform
}

// SetTransform moves the object.
func (o *Object) SetTransform(m geom.Mat4) {
	t := model.NewTransform(m)
	o.mu.Lock()
	o.transform = t
	o.mu.Unlock()
}

// Collider implements model.SceneObject.
func (o *Object) Collider() model.Collider { return o.collider }

// MeshBounds implements model.SceneObject.
func (o *Object) MeshBounds() (geom.AABB, bool) {
	if o.mesh == nil {
		return geom.AABB{}, false
	}
	return *o.mesh, true
}

func (o *Object) destroy() {
	o.mu.Lock()
	o.alive = false
	o.mu.Unlock()
}

// hitVolume is the local-space box physical raycasts test against. Spheres
// are tested exactly by the caller.
func (o *Object) hitVolume() (geom.AABB, bool) {
	switch c := o.collider.(type) {
	case model.BoxCollider:
		half := c.Size.Scale(0.5)
		half = half.Max(half.Neg())
		return geom.AABB{Min: c.Center.Sub(half), Max: c.Center.Add(half)}, true
	case model.CapsuleCollider:
		r := c.Radius
		if r < 0 {
			r = -r
		}
		ext := geom.V(r, r, r)
		if axis, ok := c.Axis.Vector(); ok && c.Height > 2*r {
			ext = ext.Add(axis.Scale(c.Height/2 - r))
		}
		return geom.AABB{Min: c.Center.Sub(ext), Max: c.Center.Add(ext)}, true
	case model.MeshCollider:
		if o.mesh != nil {
			return *o.mesh, true
		}
	}
	return geom.AABB{}, false
}
