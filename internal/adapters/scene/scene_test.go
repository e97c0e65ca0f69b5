package scene_test

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/okian/gazefocus/internal/adapters/scene"
	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func at(p geom.Vec3) geom.Mat4 { return geom.TRS(p, geom.IdentityQuat, geom.One) }

func forwardFrom(x, y float64) geom.Ray {
	return geom.Ray{Origin: geom.V(x, y, 0), Direction: geom.Forward}
}

func TestRaycast(t *testing.T) {
	Convey("Given a scene with objects along +Z", t, func() {
		s := scene.New()
		near := scene.NewObject(1, "near", scene.WithTransform(at(geom.V(0, 0, 2))),
			scene.WithCollider(model.BoxCollider{Size: geom.V(1, 1, 1)}))
		far := scene.NewObject(2, "far", scene.WithTransform(at(geom.V(0, 0, 5))),
			scene.WithCollider(model.SphereCollider{Radius: 1}))
		hidden := scene.NewObject(3, "hidden", scene.WithTransform(at(geom.V(3, 0, 4))),
			scene.WithCollider(model.BoxCollider{Size: geom.V(1, 1, 1)}), scene.WithLayer(2))
		s.Add(near)
		s.Add(far)
		s.Add(hidden)

		Convey("The nearest collider wins", func() {
			hit, ok := s.Raycast(forwardFrom(0, 0), 0, math.MaxUint32)
			So(ok, ShouldBeTrue)
			So(hit.ID(), ShouldEqual, model.ObjectID(1))
		})

		Convey("Max distance cuts the ray short", func() {
			_, ok := s.Raycast(forwardFrom(0, 0), 1, math.MaxUint32)
			So(ok, ShouldBeFalse)
		})

		Convey("Spheres are hit on their surface only", func() {
			hit, ok := s.Raycast(forwardFrom(0.9, 0.9), 0, math.MaxUint32)
			So(ok, ShouldBeFalse)
			So(hit, ShouldBeNil)
			hit, ok = s.Raycast(forwardFrom(0.6, 0.6), 0, math.MaxUint32)
			So(ok, ShouldBeTrue)
			So(hit.ID(), ShouldEqual, model.ObjectID(2))
		})

		Convey("Layer masks filter objects", func() {
			_, ok := s.Raycast(forwardFrom(3, 0), 0, 1)
			So(ok, ShouldBeFalse)
			hit, ok := s.Raycast(forwardFrom(3, 0), 0, 1<<2)
			So(ok, ShouldBeTrue)
			So(hit.ID(), ShouldEqual, model.ObjectID(3))
		})

		Convey("Removed objects die and stop blocking rays", func() {
			var gone []model.ObjectID
			s.OnRemove(func(id model.ObjectID) { gone = append(gone, id) })
			So(s.Remove(1), ShouldBeTrue)
			So(s.Remove(1), ShouldBeFalse)
			So(near.Alive(), ShouldBeFalse)
			So(gone, ShouldResemble, []model.ObjectID{1})
			hit, ok := s.Raycast(forwardFrom(0, 0), 0, math.MaxUint32)
			So(ok, ShouldBeTrue)
			So(hit.ID(), ShouldEqual, model.ObjectID(2))
		})

		Convey("Moving an object moves its collider", func() {
			near.SetTransform(at(geom.V(10, 0, 2)))
			hit, ok := s.Raycast(forwardFrom(10, 0), 0, math.MaxUint32)
			So(ok, ShouldBeTrue)
			So(hit.ID(), ShouldEqual, model.ObjectID(1))
		})
	})
}

func TestHitDistanceIsWorldSpace(t *testing.T) {
	s := scene.New()
	s.Add(scene.NewObject(1, "scaled",
		scene.WithTransform(geom.TRS(geom.V(0, 0, 10), geom.IdentityQuat, geom.V(4, 4, 4))),
		scene.WithCollider(model.BoxCollider{Size: geom.V(1, 1, 1)})))

	// The scaled box spans z in [8, 12].
	_, ok := s.Raycast(forwardFrom(0, 0), 7.9, math.MaxUint32)
	require.False(t, ok)
	_, ok = s.Raycast(forwardFrom(0, 0), 8.1, math.MaxUint32)
	require.True(t, ok)
}

func TestBuild(t *testing.T) {
	Convey("Given the demo specs", t, func() {
		s, err := scene.Build(scene.DemoSpecs())

		Convey("Every object is created with a sequential id", func() {
			So(err, ShouldBeNil)
			So(s.Len(), ShouldEqual, len(scene.DemoSpecs()))
			objs := s.Objects()
			So(objs[0].ID(), ShouldEqual, model.ObjectID(1))
			So(objs[0].Name(), ShouldEqual, "crate")
			_, isMesh := objs[3].Collider().(model.MeshCollider)
			So(isMesh, ShouldBeTrue)
			_, hasMesh := objs[3].MeshBounds()
			So(hasMesh, ShouldBeTrue)
			So(objs[4].Layer(), ShouldEqual, uint8(1))
		})
	})

	Convey("Bad specs are rejected", t, func() {
		_, err := scene.Build([]scene.Spec{{Name: "x", Shape: "cone"}})
		So(err, ShouldNotBeNil)
		_, err = scene.Build([]scene.Spec{{Name: "x", Shape: "capsule", Axis: "w"}})
		So(err, ShouldNotBeNil)
		_, err = scene.Build([]scene.Spec{{ID: 4, Name: "a"}, {ID: 4, Name: "b"}})
		So(err, ShouldNotBeNil)
	})
}

func TestSweepSource(t *testing.T) {
	Convey("Given a sweeping source on a fake clock", t, func() {
		base := time.Unix(100, 0)
		now := base
		src := scene.NewSweepSource(geom.V(0, 1.6, 0), math.Pi/4, 4*time.Second).
			WithClock(func() time.Time { return now })

		Convey("It starts looking forward at time zero", func() {
			s, ok := src.Sample(context.Background())
			So(ok, ShouldBeTrue)
			So(s.Timestamp, ShouldEqual, 0)
			So(s.Gaze.Valid, ShouldBeTrue)
			So(s.Gaze.Ray.Direction.Angle(geom.Forward), ShouldAlmostEqual, 0, 1e-9)
		})

		Convey("It reaches full amplitude a quarter period later", func() {
			src.Sample(context.Background())
			now = base.Add(time.Second)
			s, _ := src.Sample(context.Background())
			So(s.Timestamp, ShouldAlmostEqual, 1, 1e-9)
			So(s.Gaze.Ray.Direction.Angle(geom.Forward), ShouldAlmostEqual, math.Pi/4, 1e-9)
			So(s.CameraRight.Dot(s.Gaze.Ray.Direction), ShouldAlmostEqual, 0, 1e-9)
		})

		Convey("Blinks invalidate the gaze", func() {
			src.WithBlinks(func(time.Duration) bool { return true })
			s, ok := src.Sample(context.Background())
			So(ok, ShouldBeTrue)
			So(s.Gaze.Valid, ShouldBeFalse)
		})
	})
}
