package scene

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/okian/gazefocus/internal/domain/geom"
	"github.com/okian/gazefocus/internal/domain/model"
)

// SweepSource simulates a viewer whose gaze sweeps left and right. It
// satisfies the tracker's SampleSource.
type SweepSource struct {
	Origin    geom.Vec3
	Amplitude float64 // radians of yaw either side of forward
	Period    time.Duration
	Pitch     float64 // radians, positive looks up

	mu    sync.Mutex
	start time.Time
	now   func() time.Time
	drop  func(time.Duration) bool
}

// NewSweepSource returns a source sweeping ±amplitude every period from
// origin.
func NewSweepSource(origin geom.Vec3, amplitude float64, period time.Duration) *SweepSource {
	return &SweepSource{
		Origin:    origin,
		Amplitude: amplitude,
		Period:    period,
		now:       time.Now,
	}
}

// WithClock replaces the wall clock, for deterministic sampling.
func (s *SweepSource) WithClock(now func() time.Time) *SweepSource {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
	return s
}

// WithBlinks marks samples invalid while drop returns true for the
// elapsed time, simulating lost tracking.
func (s *SweepSource) WithBlinks(drop func(elapsed time.Duration) bool) *SweepSource {
	s.mu.Lock()
	s.drop = drop
	s.mu.Unlock()
	return s
}

// Sample returns the gaze for the current clock reading.
func (s *SweepSource) Sample(_ context.Context) (model.DeviceSample, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if s.start.IsZero() {
		s.start = now
	}
	elapsed := now.Sub(s.start)

	yaw := 0.0
	if s.Period > 0 {
		phase := 2 * math.Pi * float64(elapsed) / float64(s.Period)
		yaw = s.Amplitude * math.Sin(phase)
	}
	rot := geom.AxisAngle(geom.Up, yaw)
	right := rot.Rotate(geom.Right)
	pitch := geom.AxisAngle(right, -s.Pitch)
	dir := pitch.Rotate(rot.Rotate(geom.Forward))
	up := pitch.Rotate(geom.Up)

	sample := model.DeviceSample{
		Timestamp:   elapsed.Seconds(),
		Gaze:        geom.NewGazeRay(s.Origin, dir),
		CameraUp:    up,
		CameraRight: right,
	}
	if s.drop != nil && s.drop(elapsed) {
		sample.Gaze.Valid = false
	}
	return sample, true
}
