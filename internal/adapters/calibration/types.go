// Package calibration serializes blocking eye-tracker calibration calls on
// a dedicated worker goroutine so a real-time loop can poll for results.
package calibration

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Status is the outcome of one calibration call.
type Status int

// Calibration statuses. A new result starts as Failure.
const (
	StatusFailure Status = iota
	StatusSuccess
)

func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusFailure:
		return "failure"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Command identifies a calibration call.
type Command int

// Calibration commands.
const (
	CommandInvalid Command = iota
	CommandEnter
	CommandCollect
	CommandCompute
	CommandLeave
)

func (c Command) String() string {
	switch c {
	case CommandInvalid:
		return "invalid"
	case CommandEnter:
		return "enter"
	case CommandCollect:
		return "collect"
	case CommandCompute:
		return "compute"
	case CommandLeave:
		return "leave"
	default:
		return fmt.Sprintf("command(%d)", int(c))
	}
}

// Point is a calibration target in device coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DevicePoint converts a target position in metres, relative to the
// tracker origin, to the device's millimetre frame with X mirrored.
func DevicePoint(x, y, z float64) Point {
	return Point{X: x * -1000, Y: y * 1000, Z: z * 1000}
}

// Calibrator is the blocking hardware calibration contract. Implementations
// that also satisfy io.Closer are closed when the worker exits.
type Calibrator interface {
	EnterCalibrationMode(ctx context.Context) error
	CollectData(ctx context.Context, p Point) (Status, error)
	ComputeAndApply(ctx context.Context) (Status, error)
	LeaveCalibrationMode(ctx context.Context) error
}

// Result is the handle of one issued command. Callers keep it and poll
// Ready. Every accessor takes the owning dispatcher's lock.
type Result struct {
	mu      *sync.Mutex
	command Command
	point   Point
	status  Status
	elapsed time.Duration
	ready   bool
}

var invalidMu sync.Mutex

// InvalidResult is returned when a command cannot be issued. It never
// becomes ready.
var InvalidResult = &Result{mu: &invalidMu, command: CommandInvalid}

// Command returns the command this result refers to.
func (r *Result) Command() Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.command
}

// Point returns the collect target, zero for other commands.
func (r *Result) Point() Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.point
}

// Ready reports whether the command completed.
func (r *Result) Ready() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ready
}

// Status returns the command status. It is Failure until ready.
func (r *Result) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.status
}

// Elapsed returns how long the call took. A command force-completed by
// Stop reports -1ms.
func (r *Result) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.elapsed
}

// Wait polls Ready every poll interval until it is true or ctx is done.
func (r *Result) Wait(ctx context.Context, poll time.Duration) error {
	if r == InvalidResult {
		return ErrInvalidCommand
	}
	if poll <= 0 {
		poll = defaultPollInterval
	}
	t := time.NewTicker(poll)
	defer t.Stop()
	for !r.Ready() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

func (r *Result) String() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return fmt.Sprintf("%s: Ready %t, Status %s, Elapsed ms %d", r.command, r.ready, r.status, r.elapsed.Milliseconds())
}

// finishLocked marks r ready. The caller holds r.mu.
func (r *Result) finishLocked(status Status, elapsed time.Duration) bool {
	if r.ready {
		return false
	}
	r.ready = true
	r.status = status
	r.elapsed = elapsed
	return true
}
