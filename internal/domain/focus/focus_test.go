package focus_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/okian/gazefocus/internal/domain/focus"
	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

type item struct {
	id   model.ObjectID
	name string
}

func (i *item) ID() model.ObjectID            { return i.id }
func (i *item) Name() string                  { return i.name }
func (i *item) Alive() bool                   { return true }
func (i *item) Transform() model.Transform    { return model.NewTransform(geom.Identity()) }
func (i *item) Collider() model.Collider      { return nil }
func (i *item) MeshBounds() (geom.AABB, bool) { return geom.AABB{}, false }

type collectSink struct {
	events []model.FocusEvent
	full   bool
}

func (s *collectSink) Publish(ev model.FocusEvent) bool {
	if s.full {
		return false
	}
	s.events = append(s.events, ev)
	return true
}

type scored struct {
	obj   *item
	score float64
}

// above keeps the head of the list when it clears epsilon, as the tracker does.
func above(epsilon float64, rows ...scored) []model.FocusedCandidate {
	var out []model.FocusedCandidate
	for _, r := range rows {
		if r.score <= epsilon {
			break
		}
		out = append(out, model.FocusedCandidate{Object: r.obj, Score: r.score})
	}
	return out
}

func TestTicker(t *testing.T) {
	ctx := context.Background()

	Convey("Given two focusable objects", t, func() {
		a := &item{id: 1, name: "A"}
		b := &item{id: 2, name: "B"}
		ls := focus.NewListeners()
		var calls []string
		record := func(o *item) focus.Listener {
			return focus.ListenerFunc(func(has bool) {
				calls = append(calls, fmt.Sprintf("%s:%v", o.name, has))
			})
		}
		ls.Register(a.id, record(a))
		ls.Register(b.id, record(b))
		sink := &collectSink{}
		tk := focus.NewTicker(ls, focus.WithSink(sink))

		Convey("When a scripted top-score sequence is ticked", func() {
			const eps = 0.2
			script := [][]scored{
				{{a, 0.9}},
				{{a, 0.9}},
				{{b, 0.7}},
				{{b, 0.1}},
				nil,
			}
			var changed []bool
			for i, rows := range script {
				changed = append(changed, tk.TickComplete(ctx, float64(i), above(eps, rows...)))
			}

			Convey("Then each change notifies exactly once", func() {
				So(calls, ShouldResemble, []string{"A:true", "A:false", "B:true", "B:false"})
				So(changed, ShouldResemble, []bool{true, false, true, true, false})
				_, focused := tk.Current()
				So(focused, ShouldBeFalse)
			})

			Convey("And the sink sees the same transitions", func() {
				So(sink.events, ShouldHaveLength, 4)
				So(sink.events[1], ShouldResemble, model.FocusEvent{ObjectID: 1, Name: "A", HasFocus: false, Timestamp: 2})
				So(sink.events[2], ShouldResemble, model.FocusEvent{ObjectID: 2, Name: "B", HasFocus: true, Timestamp: 2})
			})
		})

		Convey("When listeners change between ticks", func() {
			tk.TickComplete(ctx, 0, above(0, scored{a, 1}))
			unregister := ls.Register(a.id, focus.ListenerFunc(func(has bool) {
				calls = append(calls, fmt.Sprintf("late:%v", has))
			}))
			tk.TickComplete(ctx, 1, nil)
			unregister()
			unregister()
			tk.TickComplete(ctx, 2, above(0, scored{a, 1}))

			Convey("Then the current listener set is used at each transition", func() {
				So(calls, ShouldResemble, []string{"A:true", "A:false", "late:false", "A:true"})
			})
		})

		Convey("When the sink is full", func() {
			sink.full = true
			changed := tk.TickComplete(ctx, 0, above(0, scored{b, 0.5}))

			Convey("Then listeners are still notified", func() {
				So(changed, ShouldBeTrue)
				So(calls, ShouldResemble, []string{"B:true"})
				cur, ok := tk.Current()
				So(ok, ShouldBeTrue)
				So(cur.ID(), ShouldEqual, b.id)
			})
		})

		Convey("Reset drops focus once", func() {
			tk.TickComplete(ctx, 0, above(0, scored{a, 1}))
			So(tk.Reset(ctx, 1), ShouldBeTrue)
			So(tk.Reset(ctx, 2), ShouldBeFalse)
			So(calls, ShouldResemble, []string{"A:true", "A:false"})
		})
	})
}

func TestListeners(t *testing.T) {
	Convey("Given a listener registry", t, func() {
		ls := focus.NewListeners()
		nop := focus.ListenerFunc(func(bool) {})

		Convey("Capability follows registrations", func() {
			So(ls.HasCapability(5), ShouldBeFalse)
			un1 := ls.Register(5, nop)
			un2 := ls.Register(5, nop)
			So(ls.HasCapability(5), ShouldBeTrue)
			So(ls.For(5), ShouldHaveLength, 2)
			un1()
			So(ls.HasCapability(5), ShouldBeTrue)
			un2()
			So(ls.HasCapability(5), ShouldBeFalse)
			So(ls.Len(), ShouldEqual, 0)
		})

		Convey("For returns a copy", func() {
			ls.Register(1, nop)
			got := ls.For(1)
			got[0] = nil
			So(ls.For(1)[0], ShouldNotBeNil)
		})

		Convey("Remove clears an object", func() {
			ls.Register(1, nop)
			ls.Register(2, nop)
			ls.Remove(1)
			So(ls.HasCapability(1), ShouldBeFalse)
			So(ls.HasCapability(2), ShouldBeTrue)
			So(ls.For(1), ShouldBeNil)
		})
	})
}
