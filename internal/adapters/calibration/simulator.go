package calibration

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"
)

// ErrSimulatedFailure is returned by a Simulator call configured to fail.
var ErrSimulatedFailure = errors.New("simulated calibration failure")

// SimulatorOption applies a configuration option to the Simulator.
type SimulatorOption func(*Simulator)

// WithLatency sets per-call latency. Collect and compute use their own.
func WithLatency(enterLeave, collect, compute time.Duration) SimulatorOption {
	return func(s *Simulator) {
		s.enterLeave, s.collect, s.compute = enterLeave, collect, compute
	}
}

// WithCollectFailureRate makes Collect fail with probability p.
func WithCollectFailureRate(p float64) SimulatorOption {
	return func(s *Simulator) {
		if p >= 0 && p <= 1 {
			s.failRate = p
		}
	}
}

// WithMinPoints sets how many successful points Compute needs.
func WithMinPoints(n int) SimulatorOption {
	return func(s *Simulator) {
		if n >= 0 {
			s.minPoints = n
		}
	}
}

// WithEnterFailure makes EnterCalibrationMode return ErrSimulatedFailure.
func WithEnterFailure() SimulatorOption {
	return func(s *Simulator) { s.failEnter = true }
}

// WithSeed fixes the failure sequence.
func WithSeed(seed int64) SimulatorOption {
	return func(s *Simulator) { s.rng = rand.New(rand.NewSource(seed)) } //nolint:gosec // simulation only
}

// Simulator is an in-process Calibrator standing in for eye-tracker
// hardware. Calls block for their configured latency, honouring ctx.
type Simulator struct {
	mu         sync.Mutex
	enterLeave time.Duration
	collect    time.Duration
	compute    time.Duration
	failRate   float64
	minPoints  int
	failEnter  bool
	rng        *rand.Rand

	inMode    bool
	collected []Point
	applied   bool
	closed    bool
}

// NewSimulator returns a Simulator with hardware-like timings.
func NewSimulator(opts ...SimulatorOption) *Simulator {
	s := &Simulator{
		enterLeave: 50 * time.Millisecond,
		collect:    175 * time.Millisecond,
		compute:    300 * time.Millisecond,
		minPoints:  1,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // simulation only
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EnterCalibrationMode implements Calibrator.
func (s *Simulator) EnterCalibrationMode(ctx context.Context) error {
	if err := sleepCtx(ctx, s.enterLeave); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failEnter {
		return ErrSimulatedFailure
	}
	s.inMode = true
	s.collected = s.collected[:0]
	return nil
}

// CollectData implements Calibrator.
func (s *Simulator) CollectData(ctx context.Context, p Point) (Status, error) {
	if err := sleepCtx(ctx, s.collect); err != nil {
		return StatusFailure, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inMode {
		return StatusFailure, nil
	}
	if s.rng.Float64() < s.failRate {
		return StatusFailure, nil
	}
	s.collected = append(s.collected, p)
	return StatusSuccess, nil
}

// ComputeAndApply implements Calibrator.
func (s *Simulator) ComputeAndApply(ctx context.Context) (Status, error) {
	if err := sleepCtx(ctx, s.compute); err != nil {
		return StatusFailure, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.inMode || len(s.collected) < s.minPoints {
		return StatusFailure, nil
	}
	s.applied = true
	return StatusSuccess, nil
}

// LeaveCalibrationMode implements Calibrator.
func (s *Simulator) LeaveCalibrationMode(ctx context.Context) error {
	if err := sleepCtx(ctx, s.enterLeave); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inMode = false
	return nil
}

// Close implements io.Closer. The simulator is reusable after Close.
func (s *Simulator) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.inMode = false
	return nil
}

// Closed reports whether Close was called.
func (s *Simulator) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Applied reports whether a calibration was computed successfully.
func (s *Simulator) Applied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applied
}

// Collected returns the points accepted in the current mode.
func (s *Simulator) Collected() []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Point(nil), s.collected...)
}
