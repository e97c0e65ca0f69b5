package types_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

func TestRayOf(t *testing.T) {
	Convey("Given a gaze ray", t, func() {
		g := geom.NewGazeRay(geom.V(1, 2, 3), geom.V(0, 0, 2))

		Convey("It converts with a normalized direction", func() {
			r := types.RayOf(g)
			So(r.Valid, ShouldBeTrue)
			So(r.Origin, ShouldResemble, types.Vector{X: 1, Y: 2, Z: 3})
			So(r.Direction, ShouldResemble, types.Vector{Z: 1})
		})

		Convey("It serializes with snake case keys", func() {
			b, err := json.Marshal(types.Focus{ObjectID: 7, Name: "globe", Score: 0.5, AdjustedRay: types.RayOf(g)})
			So(err, ShouldBeNil)
			So(string(b), ShouldContainSubstring, `"object_id":7`)
			So(string(b), ShouldContainSubstring, `"adjusted_ray":{"origin":{"x":1,"y":2,"z":3}`)
		})
	})
}
