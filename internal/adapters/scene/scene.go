package scene

import (
	"math"
	"sort"
	"sync"

	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
)

// Scene owns a set of objects and answers raycasts against their colliders.
type Scene struct {
	mu      sync.RWMutex
	objects map[model.ObjectID]*Object
	onGone  []func(model.ObjectID)
}

// New creates an empty scene.
func New() *Scene {
	return &Scene{objects: make(map[model.ObjectID]*Object)}
}

// OnRemove registers fn to run when an object is removed, for example to
// drop its focus listeners.
func (s *Scene) OnRemove(fn func(model.ObjectID)) {
	s.mu.Lock()
	s.onGone = append(s.onGone, fn)
	s.mu.Unlock()
}

// Add inserts or replaces an object.
func (s *Scene) Add(o *Object) {
	s.mu.Lock()
	s.objects[o.ID()] = o
	s.mu.Unlock()
}

// Remove destroys an object. References held elsewhere report !Alive.
func (s *Scene) Remove(id model.ObjectID) bool {
	s.mu.Lock()
	o, ok := s.objects[id]
	delete(s.objects, id)
	hooks := append([]func(model.ObjectID){}, s.onGone...)
	s.mu.Unlock()
	if !ok {
		return false
	}
	o.destroy()
	for _, fn := range hooks {
		fn(id)
	}
	return true
}

// Get returns an object by id.
func (s *Scene) Get(id model.ObjectID) (*Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[id]
	return o, ok
}

// Objects returns every object ordered by id.
func (s *Scene) Objects() []*Object {
	s.mu.RLock()
	out := make([]*Object, 0, len(s.objects))
	for _, o := range s.objects {
		out = append(out, o)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Len returns the number of objects.
func (s *Scene) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Raycast returns the nearest live object on a layer in layerMask whose
// collider ray intersects within maxDistance. Equal distances resolve to
// the lower id.
func (s *Scene) Raycast(ray geom.Ray, maxDistance float64, layerMask uint32) (model.SceneObject, bool) {
	if maxDistance <= 0 || math.IsNaN(maxDistance) {
		maxDistance = math.Inf(1)
	}
	dir := ray.Direction.Normalize()
	if dir.IsZero() {
		return nil, false
	}
	world := geom.Ray{Origin: ray.Origin, Direction: dir}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best     *Object
		bestDist = math.Inf(1)
	)
	for _, o := range s.objects {
		if layerMask&(1<<o.layer) == 0 || !o.Alive() {
			continue
		}
		d, ok := intersect(o, world, maxDistance)
		if !ok {
			continue
		}
		if d < bestDist || (d == bestDist && best != nil && o.ID() < best.ID()) {
			best, bestDist = o, d
		}
	}
	if best == nil {
		return nil, false
	}
	return best, true
}

// intersect tests ray against o's collider in local space. Because the
// local direction is not renormalized the returned parameter is a world
// distance.
func intersect(o *Object, ray geom.Ray, maxDistance float64) (float64, bool) {
	t := o.Transform()
	local := geom.Ray{
		Origin:    t.WorldToLocal.MulPoint(ray.Origin),
		Direction: t.WorldToLocal.MulVector(ray.Direction),
	}

	if c, ok := o.collider.(model.SphereCollider); ok {
		return intersectSphere(local, c.Center, math.Abs(c.Radius), maxDistance)
	}
	box, ok := o.hitVolume()
	if !ok || box.Empty() {
		return 0, false
	}
	return box.IntersectRay(local, maxDistance)
}

func intersectSphere(r geom.Ray, center geom.Vec3, radius, maxDistance float64) (float64, bool) {
	oc := r.Origin.Sub(center)
	a := r.Direction.Dot(r.Direction)
	if a == 0 || radius == 0 {
		return 0, false
	}
	b := oc.Dot(r.Direction)
	c := oc.Dot(oc) - radius*radius
	disc := b*b - a*c
	if disc < 0 {
		return 0, false
	}
	sq := math.Sqrt(disc)
	t := (-b - sq) / a
	if t < 0 {
		t = (-b + sq) / a
		if t < 0 {
			return 0, false
		}
		if c <= 0 {
			t = 0
		}
	}
	if t > maxDistance {
		return 0, false
	}
	return t, true
}
