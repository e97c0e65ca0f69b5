package calibration

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/okian/gazefocus/pkg/logger"
	"github.com/okian/gazefocus/pkg/metrics"
)

// Default dispatcher configuration.
const (
	defaultIdleInterval = 25 * time.Millisecond
	defaultJoinTimeout  = 5 * time.Second
	defaultPollInterval = 20 * time.Millisecond
	stoppedElapsed      = -time.Millisecond
)

// State is the dispatcher lifecycle state.
type State int

// Dispatcher states.
const (
	StateIdle State = iota
	StateRunning
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// DispatcherOption applies a configuration option to the Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithIdleInterval sets how long the worker sleeps when no command is pending.
func WithIdleInterval(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d > 0 {
			x.idle = d
		}
	}
}

// WithJoinTimeout bounds how long Stop waits for the worker to exit.
func WithJoinTimeout(d time.Duration) DispatcherOption {
	return func(x *Dispatcher) {
		if d > 0 {
			x.joinTimeout = d
		}
	}
}

// WithDispatcherLogger sets the dispatcher logger.
func WithDispatcherLogger(l logger.Logger) DispatcherOption {
	return func(x *Dispatcher) {
		if l != nil {
			x.logger = l
		}
	}
}

// Dispatcher runs at most one pending calibration command at a time on its
// worker goroutine. All shared state is guarded by mu; results issued by
// the dispatcher share the same lock.
type Dispatcher struct {
	mu      sync.Mutex
	cal     Calibrator
	state   State
	started bool
	current *Result

	quit     chan struct{}
	quitOnce sync.Once
	done     chan struct{}
	cancel   context.CancelFunc

	idle        time.Duration
	joinTimeout time.Duration
	logger      logger.Logger
}

// NewDispatcher creates an idle dispatcher over cal.
func NewDispatcher(cal Calibrator, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		cal:         cal,
		quit:        make(chan struct{}),
		done:        make(chan struct{}),
		idle:        defaultIdleInterval,
		joinTimeout: defaultJoinTimeout,
		logger:      logger.Default().Named("calibration"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Start launches the worker. The worker reports Running once it is ready
// to execute commands.
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started {
		return ErrAlreadyStarted
	}
	d.started = true

	wctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	go d.run(wctx)
	return nil
}

// Running reports whether the worker is executing commands.
func (d *Dispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state == StateRunning
}

// State returns the lifecycle state.
func (d *Dispatcher) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Pending returns the command waiting for the worker, CommandInvalid if none.
func (d *Dispatcher) Pending() Command {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return CommandInvalid
	}
	return d.current.command
}

// EnterCalibrationMode issues an Enter command.
func (d *Dispatcher) EnterCalibrationMode() *Result { return d.command(CommandEnter, Point{}) }

// CollectData issues a Collect command for p.
func (d *Dispatcher) CollectData(p Point) *Result { return d.command(CommandCollect, p) }

// ComputeAndApply issues a Compute command.
func (d *Dispatcher) ComputeAndApply() *Result { return d.command(CommandCompute, Point{}) }

// LeaveCalibrationMode issues a Leave command.
func (d *Dispatcher) LeaveCalibrationMode() *Result { return d.command(CommandLeave, Point{}) }

// command places a new result in the slot. It returns InvalidResult without
// blocking when the worker was never started, has stopped, or a command is
// still pending.
func (d *Dispatcher) command(cmd Command, p Point) *Result {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.started || d.state == StateStopped || d.current != nil {
		metrics.RecordCalibrationRejected()
		return InvalidResult
	}
	r := &Result{mu: &d.mu, command: cmd, point: p}
	d.current = r
	return r
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)

	if d.cal == nil {
		d.logger.Error(ctx, "calibration worker has no calibrator")
		return
	}
	if c, ok := d.cal.(io.Closer); ok {
		defer func() {
			if err := c.Close(); err != nil {
				d.logger.Warn(ctx, "failed to close calibrator", logger.Error(err))
			}
		}()
	}

	d.mu.Lock()
	if d.state == StateIdle {
		d.state = StateRunning
	}
	d.mu.Unlock()
	metrics.UpdateCalibrationRunning(true)
	defer metrics.UpdateCalibrationRunning(false)

	for {
		select {
		case <-d.quit:
			return
		default:
		}

		d.mu.Lock()
		r := d.current
		var cmd Command
		var p Point
		if r != nil {
			cmd, p = r.command, r.point
		}
		d.mu.Unlock()

		if r == nil || cmd == CommandInvalid {
			select {
			case <-d.quit:
				return
			case <-time.After(d.idle):
			}
			continue
		}

		start := time.Now()
		status := d.execute(ctx, cmd, p)
		elapsed := time.Since(start)
		d.finish(ctx, r, status, elapsed)
	}
}

func (d *Dispatcher) execute(ctx context.Context, cmd Command, p Point) Status {
	var (
		status Status
		err    error
	)
	switch cmd {
	case CommandEnter:
		err = d.cal.EnterCalibrationMode(ctx)
		status = StatusSuccess
	case CommandCollect:
		status, err = d.cal.CollectData(ctx, p)
	case CommandCompute:
		status, err = d.cal.ComputeAndApply(ctx)
	case CommandLeave:
		err = d.cal.LeaveCalibrationMode(ctx)
		status = StatusSuccess
	default:
		return StatusFailure
	}
	if err != nil {
		d.logger.Warn(ctx, "calibration call failed",
			logger.String("command", cmd.String()),
			logger.Error(err),
		)
		return StatusFailure
	}
	return status
}

// finish completes r and clears the slot. A result already force-completed
// by Stop keeps its Failure status.
func (d *Dispatcher) finish(ctx context.Context, r *Result, status Status, elapsed time.Duration) {
	d.mu.Lock()
	ok := r.finishLocked(status, elapsed)
	cmd := r.command
	if d.current == r {
		d.current = nil
	}
	d.mu.Unlock()

	if !ok {
		return
	}
	metrics.RecordCalibrationCommand(cmd.String(), status.String(), elapsed)
	d.logger.Debug(ctx, "calibration command finished",
		logger.String("command", cmd.String()),
		logger.String("status", status.String()),
		logger.Duration("elapsed", elapsed),
	)
}

// Stop force-completes any pending command as Failure, signals the worker
// to exit and waits for it up to the join timeout or ctx, whichever ends
// first. It returns false when the worker did not exit in time. Stop never
// blocks beyond that bound and is safe to call more than once.
func (d *Dispatcher) Stop(ctx context.Context) bool {
	d.mu.Lock()
	if d.current != nil {
		if d.current.finishLocked(StatusFailure, stoppedElapsed) {
			metrics.RecordCalibrationCommand(d.current.command.String(), StatusFailure.String(), stoppedElapsed)
		}
		d.current = nil
	}
	started := d.started
	d.state = StateStopped
	d.mu.Unlock()

	if !started {
		return true
	}

	d.quitOnce.Do(func() { close(d.quit) })
	d.cancel()

	timer := time.NewTimer(d.joinTimeout)
	defer timer.Stop()
	select {
	case <-d.done:
		metrics.RecordCalibrationStop("joined")
		return true
	case <-timer.C:
	case <-ctx.Done():
	}
	d.logger.Warn(ctx, "calibration worker did not stop in time",
		logger.Duration("join_timeout", d.joinTimeout))
	metrics.RecordCalibrationStop("timeout")
	return false
}
