package repository_test

import (
	"context"
	"sync"
	"testing"

	"github.com/okian/gazefocus/internal/adapters/repository"
	"github.com/okian/gazefocus/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func ev(id model.ObjectID, has bool, at float64) model.FocusEvent {
	return model.FocusEvent{ObjectID: id, Name: "obj", HasFocus: has, Timestamp: at}
}

func TestJournal(t *testing.T) {
	ctx := context.Background()

	Convey("Given a journal with room for three transitions", t, func() {
		j := repository.NewJournal(repository.WithHistorySize(3))

		Convey("When it is empty", func() {
			recent, err := j.Recent(ctx, 5)
			So(err, ShouldBeNil)
			So(recent, ShouldBeEmpty)
			top, err := j.TopN(ctx, 5)
			So(err, ShouldBeNil)
			So(top, ShouldBeEmpty)
			So(j.Count(ctx), ShouldEqual, 0)
			_, err = j.Object(ctx, 1)
			So(err, ShouldEqual, repository.ErrNotFound)
		})

		Convey("When more transitions than fit are appended", func() {
			for i, e := range []model.FocusEvent{
				ev(1, true, 0), ev(1, false, 2), ev(2, true, 2), ev(2, false, 2.5), ev(1, true, 3),
			} {
				So(j.Append(ctx, e), ShouldBeNil)
				So(j.Count(ctx), ShouldEqual, i+1)
			}

			Convey("Then Recent returns the newest first", func() {
				recent, err := j.Recent(ctx, 10)
				So(err, ShouldBeNil)
				So(recent, ShouldHaveLength, 3)
				So(recent[0].Seq, ShouldEqual, 5)
				So(recent[1].Seq, ShouldEqual, 4)
				So(recent[2].Seq, ShouldEqual, 3)
				So(recent[0].ObjectID, ShouldEqual, model.ObjectID(1))

				two, err := j.Recent(ctx, 2)
				So(err, ShouldBeNil)
				So(two, ShouldResemble, recent[:2])
			})

			Convey("Then objects are ranked by dwell", func() {
				top, err := j.TopN(ctx, 10)
				So(err, ShouldBeNil)
				So(top, ShouldHaveLength, 2)
				So(top[0].ObjectID, ShouldEqual, model.ObjectID(1))
				So(top[0].Rank, ShouldEqual, 1)
				So(top[0].Dwell, ShouldEqual, 2.0)
				So(top[0].Gains, ShouldEqual, 2)
				So(top[0].Focused, ShouldBeTrue)
				So(top[1].ObjectID, ShouldEqual, model.ObjectID(2))
				So(top[1].Dwell, ShouldEqual, 0.5)
			})

			Convey("Then a single object can be looked up", func() {
				st, err := j.Object(ctx, 2)
				So(err, ShouldBeNil)
				So(st.Gains, ShouldEqual, 1)
				So(st.Focused, ShouldBeFalse)
				So(st.Rank, ShouldEqual, 2)
			})
		})

		Convey("When a loss is older than its gain", func() {
			So(j.Append(ctx, ev(4, true, 5)), ShouldBeNil)
			So(j.Append(ctx, ev(4, false, 1)), ShouldBeNil)

			Convey("Then no negative dwell is recorded", func() {
				st, err := j.Object(ctx, 4)
				So(err, ShouldBeNil)
				So(st.Dwell, ShouldEqual, 0)
			})
		})

		Convey("Non-positive limits are rejected", func() {
			_, err := j.Recent(ctx, 0)
			So(err, ShouldEqual, repository.ErrInvalidLimit)
			_, err = j.TopN(ctx, -1)
			So(err, ShouldEqual, repository.ErrInvalidLimit)
		})

		Convey("Concurrent appends and reads are safe", func() {
			var wg sync.WaitGroup
			for w := 0; w < 4; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < 50; i++ {
						_ = j.Append(ctx, ev(model.ObjectID(w), i%2 == 0, float64(i)))
						_, _ = j.Recent(ctx, 3)
						_, _ = j.TopN(ctx, 2)
					}
				}(w)
			}
			wg.Wait()
			So(j.Count(ctx), ShouldEqual, 200)
		})
	})
}
