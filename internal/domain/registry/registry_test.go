package registry_test

import (
	"context"
	"math/rand"
	"testing"

	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
	"github.com/okian/gazefocus/internal/domain/registry"
	. "github.com/smartystreets/goconvey/convey"
)

type stubObject struct {
	id    model.ObjectID
	alive bool
}

func (o *stubObject) ID() model.ObjectID            { return o.id }
func (o *stubObject) Name() string                  { return "stub" }
func (o *stubObject) Alive() bool                   { return o.alive }
func (o *stubObject) Transform() model.Transform    { return model.NewTransform(geom.Identity()) }
func (o *stubObject) Collider() model.Collider      { return nil }
func (o *stubObject) MeshBounds() (geom.AABB, bool) { return geom.AABB{}, false }

func obj(id model.ObjectID) *stubObject { return &stubObject{id: id, alive: true} }

func ids(cs []model.Candidate) []model.ObjectID {
	out := make([]model.ObjectID, len(cs))
	for i, c := range cs {
		out[i] = c.ID
	}
	return out
}

func TestRegistry(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty registry", t, func() {
		r := registry.New()

		Convey("When a candidate is upserted twice", func() {
			first := r.Upsert(1, obj(1), 0.0)
			second := r.Upsert(1, obj(1), 0.5)

			Convey("Then it is new once and its timestamp is refreshed", func() {
				So(first, ShouldBeTrue)
				So(second, ShouldBeFalse)
				So(r.Len(), ShouldEqual, 1)
				c, ok := r.Get(1)
				So(ok, ShouldBeTrue)
				So(c.LastSeen, ShouldEqual, 0.5)
			})
		})

		Convey("When candidates age past maxAge", func() {
			r.Upsert(1, obj(1), 0.0)
			r.Upsert(2, obj(2), 0.6)
			r.Upsert(3, obj(3), 1.0)

			ev := r.EvictStale(ctx, 1.5, 1.0, 10)

			Convey("Then exactly the stale ones are removed", func() {
				So(ev.Stale, ShouldResemble, []model.ObjectID{1})
				So(ev.Overflow, ShouldBeEmpty)
				So(ids(r.Snapshot()), ShouldResemble, []model.ObjectID{2, 3})
			})
		})

		Convey("When a candidate's age equals maxAge", func() {
			r.Upsert(1, obj(1), 0.0)
			ev := r.EvictStale(ctx, 1.0, 1.0, 10)

			Convey("Then it is kept", func() {
				So(ev.Total(), ShouldEqual, 0)
				So(r.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the backing object dies", func() {
			dead := obj(5)
			r.Upsert(5, dead, 1.0)
			dead.alive = false
			ev := r.EvictStale(ctx, 1.0, 1.0, 10)

			Convey("Then it is evicted regardless of age", func() {
				So(ev.Dead, ShouldResemble, []model.ObjectID{5})
				So(r.Len(), ShouldEqual, 0)
			})
		})

		Convey("When capacity N is filled and one more id arrives", func() {
			const n = 4
			for i := 0; i < n; i++ {
				r.Upsert(model.ObjectID(100+i), obj(model.ObjectID(100+i)), float64(i)*0.1)
			}
			r.Upsert(999, obj(999), 0.5)

			ev := r.EvictStale(ctx, 0.5, 1.0, n)

			Convey("Then exactly one eviction occurs and it is the oldest", func() {
				So(ev.Overflow, ShouldResemble, []model.ObjectID{100})
				So(ev.Total(), ShouldEqual, 1)
				So(r.Len(), ShouldEqual, n)
			})
		})

		Convey("When several overflow candidates share the same age", func() {
			for _, id := range []model.ObjectID{30, 10, 20} {
				r.Upsert(id, obj(id), 0.2)
			}
			r.Upsert(40, obj(40), 0.4)

			ev := r.EvictStale(ctx, 0.4, 1.0, 2)

			Convey("Then ties are broken by insertion order", func() {
				So(ev.Overflow, ShouldResemble, []model.ObjectID{30, 10})
				So(ids(r.Snapshot()), ShouldResemble, []model.ObjectID{20, 40})
			})
		})

		Convey("When cleared", func() {
			r.Upsert(1, obj(1), 0)
			r.Clear()
			So(r.Len(), ShouldEqual, 0)
			So(r.Upsert(1, obj(1), 0), ShouldBeTrue)
		})
	})
}

func TestRegistryEvictionDeterminism(t *testing.T) {
	ctx := context.Background()

	Convey("Given the same upserts replayed in many random orders of equal-age ties", t, func() {
		rng := rand.New(rand.NewSource(7))
		type up struct {
			id model.ObjectID
			ts float64
		}
		base := []up{{1, 0.1}, {2, 0.1}, {3, 0.1}, {4, 0.3}, {5, 0.3}, {6, 0.9}, {7, 2.0}}

		Convey("Then the evicted set matches an independent oracle every time", func() {
			for trial := 0; trial < 50; trial++ {
				order := append([]up(nil), base...)
				rng.Shuffle(len(order), func(i, j int) { order[i], order[j] = order[j], order[i] })

				r := registry.New()
				for _, u := range order {
					r.Upsert(u.id, obj(u.id), u.ts)
				}
				const now, maxAge, capacity = 2.0, 1.8, 3
				ev := r.EvictStale(ctx, now, maxAge, capacity)

				// Stale: the three seen at 0.1 (age 1.9). Survivors 4, 5, 6, 7 exceed 3.
				So(len(ev.Stale), ShouldEqual, 3)
				So(len(ev.Overflow), ShouldEqual, 1)

				// Oracle: oldest survivor in insertion order among 4 and 5.
				var want model.ObjectID
				for _, u := range order {
					if u.id == 4 || u.id == 5 {
						want = u.id
						break
					}
				}
				So(ev.Overflow[0], ShouldEqual, want)
				So(r.Len(), ShouldEqual, capacity)
			}
		})
	})
}
