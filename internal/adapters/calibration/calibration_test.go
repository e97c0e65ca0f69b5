package calibration_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/okian/gazefocus/internal/adapters/calibration"
	. "github.com/smartystreets/goconvey/convey"
)

// gatedCalibrator blocks every call until release is closed. It ignores
// ctx unless honourCtx is set, like hardware that cannot be interrupted.
type gatedCalibrator struct {
	release   chan struct{}
	honourCtx bool

	mu    sync.Mutex
	calls []calibration.Command
}

func newGated() *gatedCalibrator { return &gatedCalibrator{release: make(chan struct{})} }

func (g *gatedCalibrator) wait(ctx context.Context, cmd calibration.Command) error {
	g.mu.Lock()
	g.calls = append(g.calls, cmd)
	g.mu.Unlock()
	if g.honourCtx {
		select {
		case <-g.release:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	<-g.release
	return nil
}

func (g *gatedCalibrator) EnterCalibrationMode(ctx context.Context) error {
	return g.wait(ctx, calibration.CommandEnter)
}

func (g *gatedCalibrator) CollectData(ctx context.Context, _ calibration.Point) (calibration.Status, error) {
	return calibration.StatusSuccess, g.wait(ctx, calibration.CommandCollect)
}

func (g *gatedCalibrator) ComputeAndApply(ctx context.Context) (calibration.Status, error) {
	return calibration.StatusSuccess, g.wait(ctx, calibration.CommandCompute)
}

func (g *gatedCalibrator) LeaveCalibrationMode(ctx context.Context) error {
	return g.wait(ctx, calibration.CommandLeave)
}

func (g *gatedCalibrator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func eventually(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(2 * time.Millisecond)
	}
	return false
}

func TestDispatcher(t *testing.T) {
	ctx := context.Background()

	Convey("Given a dispatcher that was never started", t, func() {
		d := calibration.NewDispatcher(newGated())

		Convey("Commands are rejected and Stop returns at once", func() {
			So(d.EnterCalibrationMode(), ShouldEqual, calibration.InvalidResult)
			So(d.Running(), ShouldBeFalse)
			So(d.Stop(ctx), ShouldBeTrue)
			So(d.State(), ShouldEqual, calibration.StateStopped)
		})
	})

	Convey("Given a running dispatcher over a blocking calibrator", t, func() {
		cal := newGated()
		d := calibration.NewDispatcher(cal,
			calibration.WithIdleInterval(time.Millisecond),
			calibration.WithJoinTimeout(50*time.Millisecond),
		)
		So(d.Start(ctx), ShouldBeNil)
		So(eventually(d.Running), ShouldBeTrue)
		So(d.Start(ctx), ShouldEqual, calibration.ErrAlreadyStarted)

		Convey("When a second command is issued while Enter is pending", func() {
			enter := d.EnterCalibrationMode()
			start := time.Now()
			collect := d.CollectData(calibration.Point{X: 1})
			took := time.Since(start)

			Convey("Then it is rejected without blocking or disturbing Enter", func() {
				So(collect, ShouldEqual, calibration.InvalidResult)
				So(collect.Command(), ShouldEqual, calibration.CommandInvalid)
				So(took, ShouldBeLessThan, 20*time.Millisecond)
				So(d.Pending(), ShouldEqual, calibration.CommandEnter)
				So(enter.Ready(), ShouldBeFalse)
				So(enter.Command(), ShouldEqual, calibration.CommandEnter)

				close(cal.release)
				wctx, cancel := context.WithTimeout(ctx, 2*time.Second)
				defer cancel()
				So(enter.Wait(wctx, time.Millisecond), ShouldBeNil)
				So(enter.Status(), ShouldEqual, calibration.StatusSuccess)
				So(enter.Elapsed(), ShouldBeGreaterThanOrEqualTo, 0)
				So(eventually(func() bool { return d.Pending() == calibration.CommandInvalid }), ShouldBeTrue)
				So(d.Stop(ctx), ShouldBeTrue)
			})
		})

		Convey("When Stop is called while the worker is stuck in a call", func() {
			enter := d.EnterCalibrationMode()
			So(eventually(func() bool { return cal.callCount() == 1 }), ShouldBeTrue)
			start := time.Now()
			joined := d.Stop(ctx)
			took := time.Since(start)

			Convey("Then the command fails immediately and Stop gives up at the bound", func() {
				So(enter.Ready(), ShouldBeTrue)
				So(enter.Status(), ShouldEqual, calibration.StatusFailure)
				So(enter.Elapsed(), ShouldEqual, -time.Millisecond)
				So(joined, ShouldBeFalse)
				So(took, ShouldBeLessThan, time.Second)
				So(d.EnterCalibrationMode(), ShouldEqual, calibration.InvalidResult)
				So(d.Running(), ShouldBeFalse)

				close(cal.release)
				So(enter.Status(), ShouldEqual, calibration.StatusFailure)
			})
		})

		Convey("When Stop is called before the worker picks up the command", func() {
			close(cal.release)
			d2 := calibration.NewDispatcher(cal, calibration.WithIdleInterval(time.Hour))
			So(d2.Start(ctx), ShouldBeNil)
			So(eventually(d2.Running), ShouldBeTrue)
			pending := d2.LeaveCalibrationMode()
			So(d2.Stop(ctx), ShouldBeTrue)

			Convey("Then the command is still marked failed and ready", func() {
				So(pending.Ready(), ShouldBeTrue)
				So(pending.Status(), ShouldEqual, calibration.StatusFailure)
				So(d.Stop(ctx), ShouldBeTrue)
			})
		})
	})

	Convey("Given a calibrator that honours cancellation", t, func() {
		cal := newGated()
		cal.honourCtx = true
		d := calibration.NewDispatcher(cal, calibration.WithIdleInterval(time.Millisecond))
		So(d.Start(ctx), ShouldBeNil)
		So(eventually(d.Running), ShouldBeTrue)
		d.ComputeAndApply()
		So(eventually(func() bool { return cal.callCount() == 1 }), ShouldBeTrue)

		Convey("Stop interrupts the call and joins the worker", func() {
			So(d.Stop(ctx), ShouldBeTrue)
			So(d.Stop(ctx), ShouldBeTrue)
		})
	})

	Convey("InvalidResult never becomes ready", t, func() {
		So(calibration.InvalidResult.Ready(), ShouldBeFalse)
		err := calibration.InvalidResult.Wait(ctx, time.Millisecond)
		So(errors.Is(err, calibration.ErrInvalidCommand), ShouldBeTrue)
	})

	Convey("The worker closes a closable calibrator on exit", t, func() {
		sim := calibration.NewSimulator(calibration.WithLatency(0, 0, 0))
		d := calibration.NewDispatcher(sim, calibration.WithIdleInterval(time.Millisecond))
		So(d.Start(ctx), ShouldBeNil)
		So(eventually(d.Running), ShouldBeTrue)
		So(d.Stop(ctx), ShouldBeTrue)
		So(sim.Closed(), ShouldBeTrue)
	})
}

func TestSessions(t *testing.T) {
	ctx := context.Background()
	fast := []calibration.SessionOption{
		calibration.WithPollInterval(time.Millisecond),
		calibration.WithSettleDelay(0),
		calibration.WithStartupWait(50, 2*time.Millisecond),
		calibration.WithDispatcherOptions(calibration.WithIdleInterval(time.Millisecond)),
	}

	Convey("Given a session runner over a simulator", t, func() {
		sim := calibration.NewSimulator(calibration.WithLatency(0, 0, 0))
		s := calibration.NewSessions(sim, fast...)

		Convey("When a full session runs with the default points", func() {
			rep, err := s.Run(ctx, nil)

			Convey("Then every step succeeds and points are in device millimetres", func() {
				So(err, ShouldBeNil)
				So(rep.ID, ShouldNotBeEmpty)
				So(rep.State, ShouldEqual, calibration.SessionSucceeded)
				So(rep.Success, ShouldBeTrue)
				So(rep.Stopped, ShouldBeTrue)
				So(rep.Steps, ShouldHaveLength, 8)
				So(rep.Steps[0].Command, ShouldEqual, "enter")
				So(rep.Steps[1].Command, ShouldEqual, "collect")
				So(*rep.Steps[1].Point, ShouldResemble, calibration.DevicePoint(-0.3, 0.15, 1.2))
				So(rep.Steps[1].Point.X, ShouldAlmostEqual, 300, 1e-9)
				So(rep.Steps[6].Command, ShouldEqual, "compute")
				So(rep.Steps[7].Command, ShouldEqual, "leave")
				So(sim.Applied(), ShouldBeTrue)
				So(s.InProgress(), ShouldBeFalse)

				last, ok := s.Last()
				So(ok, ShouldBeTrue)
				So(last.ID, ShouldEqual, rep.ID)
				got, err := s.Get(rep.ID)
				So(err, ShouldBeNil)
				So(got.State, ShouldEqual, calibration.SessionSucceeded)
				_, err = s.Get("nope")
				So(err, ShouldEqual, calibration.ErrSessionNotFound)
			})
		})

		Convey("When every point fails to collect", func() {
			failing := calibration.NewSimulator(calibration.WithLatency(0, 0, 0), calibration.WithCollectFailureRate(1))
			rep, err := calibration.NewSessions(failing, fast...).Run(ctx, []calibration.Point{{Z: 1}})

			Convey("Then the session completes as failed", func() {
				So(err, ShouldBeNil)
				So(rep.State, ShouldEqual, calibration.SessionFailed)
				So(rep.Success, ShouldBeFalse)
				So(rep.Steps[1].Status, ShouldEqual, "failure")
			})
		})
	})

	Convey("Given a session blocked on hardware", t, func() {
		cal := newGated()
		cal.honourCtx = true
		s := calibration.NewSessions(cal, fast...)
		done := make(chan calibration.Report, 1)
		id, err := s.Start(ctx, nil, func(r calibration.Report) { done <- r })
		So(err, ShouldBeNil)
		So(eventually(func() bool { return cal.callCount() == 1 }), ShouldBeTrue)

		Convey("A second session is rejected", func() {
			_, err := s.Start(ctx, nil, nil)
			So(err, ShouldEqual, calibration.ErrInProgress)
			_, err = s.Run(ctx, nil)
			So(err, ShouldEqual, calibration.ErrInProgress)
			last, ok := s.Last()
			So(ok, ShouldBeTrue)
			So(last.State, ShouldEqual, calibration.SessionRunning)
			s.Abort(ctx)
			<-done
		})

		Convey("Abort ends it as aborted", func() {
			So(s.Abort(ctx), ShouldBeTrue)
			select {
			case rep := <-done:
				So(rep.ID, ShouldEqual, id)
				So(rep.State, ShouldEqual, calibration.SessionAborted)
			case <-time.After(2 * time.Second):
				So("session did not end", ShouldBeEmpty)
			}
			So(s.InProgress(), ShouldBeFalse)
			So(s.Abort(ctx), ShouldBeFalse)
		})
	})

	Convey("Given a runner without a calibrator", t, func() {
		_, err := calibration.NewSessions(nil).Run(ctx, nil)
		So(err, ShouldEqual, calibration.ErrNoCalibrator)
	})

	Convey("A session over a stopped device closes cleanly", t, func() {
		s := calibration.NewSessions(calibration.NewSimulator(calibration.WithLatency(0, 0, 0)), fast...)
		cctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		s.Close(cctx)
		So(s.InProgress(), ShouldBeFalse)
	})
}
