// Package config defines engine configuration structures and loading hooks.
//
// Conventions:
// - New() returns a Config populated with defaults.
// - Load(ctx) layers defaults, an optional YAML file and environment variables.
// - Validate() reports configuration mismatches as ErrInvalidConfig.
package config

import (
	"fmt"
	"math"
	"time"
)

// Point3 is a calibration target in metres relative to the tracker origin.
type Point3 struct {
	X float64 `koanf:"x"`
	Y float64 `koanf:"y"`
	Z float64 `koanf:"z"`
}

// DefaultCalibrationPoints is used when no points are configured.
var DefaultCalibrationPoints = []Point3{
	{X: -0.3, Y: 0.15, Z: 1.2},
	{X: 0.3, Y: 0.15, Z: 1.2},
	{X: -0.3, Y: -0.15, Z: 1.2},
	{X: 0.3, Y: -0.15, Z: 1.2},
	{X: 0, Y: 0, Z: 1.2},
}

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TickHz is the rate the host drives the engine at.
	TickHz float64 `koanf:"tick_hz"`

	// Capacity is the scorer's fixed candidate capacity.
	Capacity int `koanf:"capacity"`

	// ThreadCount is passed to the scorer at creation.
	ThreadCount int `koanf:"thread_count"`

	// LicenseFile optionally points at a scorer license blob.
	LicenseFile string `koanf:"license_file"`

	// CandidateMemorySeconds is how long an undiscovered candidate is kept.
	CandidateMemorySeconds float64 `koanf:"candidate_memory_seconds"`

	// LayerMask filters which scene layers are ray-cast.
	LayerMask uint32 `koanf:"layer_mask"`

	// RaysPerSecond, MinRaysPerTick and MaxRaysPerTick shape the search pattern burst.
	RaysPerSecond  float64 `koanf:"rays_per_second"`
	MinRaysPerTick int     `koanf:"min_rays_per_tick"`
	MaxRaysPerTick int     `koanf:"max_rays_per_tick"`

	// RaycastLength bounds physical ray-casts; 0 means unbounded.
	RaycastLength float64 `koanf:"raycast_length"`

	// FocusEpsilon is the score a candidate must exceed to be focused.
	FocusEpsilon float64 `koanf:"focus_epsilon"`

	// FocusQueueSize bounds the focus event journal queue.
	FocusQueueSize int `koanf:"focus_queue_size"`

	// FocusHistorySize is how many transitions the journal keeps.
	FocusHistorySize int `koanf:"focus_history_size"`

	// Calibration worker timings in milliseconds.
	CalibrationPollMS        int `koanf:"calibration_poll_ms"`
	CalibrationIdleMS        int `koanf:"calibration_idle_ms"`
	CalibrationJoinTimeoutMS int `koanf:"calibration_join_timeout_ms"`

	// CalibrationSettleMS is how long the user fixates a target before it is collected.
	CalibrationSettleMS int `koanf:"calibration_settle_ms"`

	// CalibrationPoints overrides DefaultCalibrationPoints when non-empty.
	CalibrationPoints []Point3 `koanf:"calibration_points"`

	// SimulateCalibration backs calibration with the software simulator.
	// When false the calibration routes answer 503.
	SimulateCalibration bool `koanf:"simulate_calibration"`

	// ScorerHalfAngleDeg is the reference scorer's attention cone.
	ScorerHalfAngleDeg float64 `koanf:"scorer_half_angle_deg"`

	// Demo viewer: eye height and the gaze sweep it performs.
	ViewerHeight       float64 `koanf:"viewer_height"`
	SweepAmplitudeDeg  float64 `koanf:"sweep_amplitude_deg"`
	SweepPeriodSeconds float64 `koanf:"sweep_period_seconds"`

	// APIMaxLimit caps ?limit on list endpoints.
	APIMaxLimit int `koanf:"api_max_limit"`

	// DedupeSize bounds remembered calibration request ids.
	DedupeSize int `koanf:"dedupe_size"`
}

// New creates a Config with defaults.
func New() *Config {
	return &Config{
		LogLevel:                 "info",
		Addr:                     ":9080",
		TickHz:                   90,
		Capacity:                 64,
		ThreadCount:              1,
		CandidateMemorySeconds:   1,
		LayerMask:                math.MaxUint32,
		RaysPerSecond:            900,
		MinRaysPerTick:           3,
		MaxRaysPerTick:           15,
		RaycastLength:            0,
		FocusEpsilon:             1e-6,
		FocusQueueSize:           1024,
		FocusHistorySize:         128,
		CalibrationPollMS:        20,
		CalibrationIdleMS:        25,
		CalibrationJoinTimeoutMS: 5000,
		CalibrationSettleMS:      1400,
		SimulateCalibration:      true,
		ScorerHalfAngleDeg:       10,
		ViewerHeight:             1.5,
		SweepAmplitudeDeg:        30,
		SweepPeriodSeconds:       8,
		APIMaxLimit:              100,
		DedupeSize:               1024,
	}
}

// Points returns the configured calibration points or the defaults.
func (c *Config) Points() []Point3 {
	if len(c.CalibrationPoints) == 0 {
		return DefaultCalibrationPoints
	}
	return c.CalibrationPoints
}

// TickInterval converts TickHz to a ticker period.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(float64(time.Second) / c.TickHz)
}

// CandidateMemory returns CandidateMemorySeconds as a duration.
func (c *Config) CandidateMemory() time.Duration {
	return time.Duration(c.CandidateMemorySeconds * float64(time.Second))
}

// SweepPeriod returns SweepPeriodSeconds as a duration.
func (c *Config) SweepPeriod() time.Duration {
	return time.Duration(c.SweepPeriodSeconds * float64(time.Second))
}

// Validate checks cross-field constraints.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TickHz <= 0:
		return fmt.Errorf("%w: tick_hz must be positive", ErrInvalidConfig)
	case c.Capacity <= 0:
		return fmt.Errorf("%w: capacity must be positive", ErrInvalidConfig)
	case c.ThreadCount < 0:
		return fmt.Errorf("%w: thread_count must not be negative", ErrInvalidConfig)
	case c.CandidateMemorySeconds < 0:
		return fmt.Errorf("%w: candidate_memory_seconds must not be negative", ErrInvalidConfig)
	case c.RaysPerSecond <= 0:
		return fmt.Errorf("%w: rays_per_second must be positive", ErrInvalidConfig)
	case c.MinRaysPerTick < 1 || c.MaxRaysPerTick < c.MinRaysPerTick:
		return fmt.Errorf("%w: need 1 <= min_rays_per_tick <= max_rays_per_tick, got %d..%d",
			ErrInvalidConfig, c.MinRaysPerTick, c.MaxRaysPerTick)
	case c.RaycastLength < 0:
		return fmt.Errorf("%w: raycast_length must not be negative", ErrInvalidConfig)
	case c.FocusEpsilon < 0:
		return fmt.Errorf("%w: focus_epsilon must not be negative", ErrInvalidConfig)
	case c.CalibrationPollMS <= 0 || c.CalibrationIdleMS <= 0 || c.CalibrationJoinTimeoutMS <= 0:
		return fmt.Errorf("%w: calibration timings must be positive", ErrInvalidConfig)
	case c.CalibrationSettleMS < 0:
		return fmt.Errorf("%w: calibration_settle_ms must not be negative", ErrInvalidConfig)
	case c.ScorerHalfAngleDeg <= 0 || c.ScorerHalfAngleDeg >= 90:
		return fmt.Errorf("%w: scorer_half_angle_deg must be in (0, 90)", ErrInvalidConfig)
	case c.SweepPeriodSeconds < 0:
		return fmt.Errorf("%w: sweep_period_seconds must not be negative", ErrInvalidConfig)
	}
	return nil
}
