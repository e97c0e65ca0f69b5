package search_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
	"github.com/okian/gazefocus/internal/domain/search"
	"github.com/okian/gazefocus/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

type node struct{ id model.ObjectID }

func (n *node) ID() model.ObjectID            { return n.id }
func (n *node) Name() string                  { return "node" }
func (n *node) Alive() bool                   { return true }
func (n *node) Transform() model.Transform    { return model.NewTransform(geom.Identity()) }
func (n *node) Collider() model.Collider      { return nil }
func (n *node) MeshBounds() (geom.AABB, bool) { return geom.AABB{}, false }

// fakePattern returns rays whose origin X encodes the object id they hit.
type fakePattern struct {
	rays    []geom.GazeRay
	err     error
	maxSeen int
}

func (p *fakePattern) SearchPattern(_ model.DeviceSample, maxRays int) ([]geom.GazeRay, error) {
	p.maxSeen = maxRays
	if p.err != nil {
		return nil, p.err
	}
	if len(p.rays) > maxRays {
		return p.rays[:maxRays], nil
	}
	return p.rays, nil
}

type fakeScene struct {
	casts []geom.Ray
	mask  uint32
	dist  float64
}

func (s *fakeScene) Raycast(r geom.Ray, maxDistance float64, mask uint32) (model.SceneObject, bool) {
	s.casts = append(s.casts, r)
	s.mask, s.dist = mask, maxDistance
	if r.Origin.X == 0 {
		return nil, false
	}
	return &node{id: model.ObjectID(r.Origin.X)}, true
}

type focusable map[model.ObjectID]bool

func (f focusable) HasCapability(id model.ObjectID) bool { return f[id] }

func rayTo(id int) geom.GazeRay {
	return geom.GazeRay{Ray: geom.Ray{Origin: geom.V(float64(id), 0, 0), Direction: geom.Forward}, Valid: true}
}

func foundIDs(objs []model.SceneObject) []model.ObjectID {
	out := make([]model.ObjectID, 0, len(objs))
	for _, o := range objs {
		out = append(out, o.ID())
	}
	return out
}

func TestRayCount(t *testing.T) {
	f := search.New(&fakePattern{}, &fakeScene{}, focusable{})

	require.Equal(t, search.DefaultMinRaysPerTick, f.RayCount(0))
	require.Equal(t, search.DefaultMinRaysPerTick, f.RayCount(-1))
	require.Equal(t, search.DefaultMaxRaysPerTick, f.RayCount(1e6))
	require.Equal(t, 9, f.RayCount(0.01))
	require.Equal(t, 10, f.RayCount(0.0101))

	for dt := 0.0; dt < 0.05; dt += 0.0007 {
		n := f.RayCount(dt)
		require.GreaterOrEqual(t, n, search.DefaultMinRaysPerTick)
		require.LessOrEqual(t, n, search.DefaultMaxRaysPerTick)
	}

	custom := search.New(&fakePattern{}, &fakeScene{}, focusable{}, search.WithRate(100, 1, 4))
	require.Equal(t, 1, custom.RayCount(0))
	require.Equal(t, 2, custom.RayCount(0.015))
	require.Equal(t, 4, custom.RayCount(1))
}

func TestFindCandidates(t *testing.T) {
	ctx := context.Background()

	Convey("Given a finder over a scripted scene", t, func() {
		var buf bytes.Buffer
		So(logger.InitWithWriter(&buf), ShouldBeNil)

		pattern := &fakePattern{}
		scene := &fakeScene{}
		can := focusable{1: true, 2: true, 3: true}
		f := search.New(pattern, scene, can, search.WithStartTime(0), search.WithLayerMask(0x4))

		Convey("When rays hit duplicates, misses and unfocusable objects", func() {
			pattern.rays = []geom.GazeRay{rayTo(2), rayTo(0), rayTo(2), rayTo(7), rayTo(1), rayTo(3)}
			got := f.FindCandidates(ctx, model.DeviceSample{Timestamp: 1})

			Convey("Then each focusable object is found once in ray order", func() {
				So(foundIDs(got), ShouldResemble, []model.ObjectID{2, 1, 3})
				So(pattern.maxSeen, ShouldEqual, search.DefaultMaxRaysPerTick)
				So(scene.mask, ShouldEqual, uint32(0x4))
			})
		})

		Convey("When an invalid ray appears in the pattern", func() {
			pattern.rays = []geom.GazeRay{rayTo(1), {}, rayTo(2), rayTo(3)}
			got := f.FindCandidates(ctx, model.DeviceSample{Timestamp: 1})

			Convey("Then rays after it are ignored", func() {
				So(foundIDs(got), ShouldResemble, []model.ObjectID{1})
				So(scene.casts, ShouldHaveLength, 1)
			})
		})

		Convey("When only a short time has passed", func() {
			pattern.rays = []geom.GazeRay{rayTo(1), rayTo(2), rayTo(3), rayTo(1), rayTo(2)}
			f.FindCandidates(ctx, model.DeviceSample{Timestamp: 1})
			scene.casts = nil
			f.FindCandidates(ctx, model.DeviceSample{Timestamp: 1})

			Convey("Then the minimum number of rays is cast", func() {
				So(scene.casts, ShouldHaveLength, search.DefaultMinRaysPerTick)
			})
		})

		Convey("When the search pattern fails", func() {
			pattern.err = errors.New("boom")
			got := f.FindCandidates(ctx, model.DeviceSample{Timestamp: 1})

			Convey("Then nothing is found and the failure is logged", func() {
				So(got, ShouldBeEmpty)
				So(buf.String(), ShouldContainSubstring, "search pattern failed")
			})
		})

		Convey("RaycastResult checks the capability of the gaze hit", func() {
			hit := f.RaycastResult(model.DeviceSample{Gaze: rayTo(2)})
			So(hit, ShouldResemble, model.RaycastHit{CandidateID: 2, Valid: true})

			hit = f.RaycastResult(model.DeviceSample{Gaze: rayTo(9)})
			So(hit, ShouldResemble, model.RaycastHit{CandidateID: 9, Valid: false})

			hit = f.RaycastResult(model.DeviceSample{Gaze: rayTo(0)})
			So(hit.Valid, ShouldBeFalse)

			invalid := rayTo(2)
			invalid.Valid = false
			So(f.RaycastResult(model.DeviceSample{Gaze: invalid}).Valid, ShouldBeFalse)
		})
	})
}
