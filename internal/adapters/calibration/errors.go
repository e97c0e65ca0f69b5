package calibration

import "errors"

// Sentinel kinds for calibration errors.
var (
	ErrInvalidCommand  = errors.New("calibration command rejected")
	ErrAlreadyStarted  = errors.New("calibration dispatcher already started")
	ErrNotRunning      = errors.New("calibration worker not running")
	ErrInProgress      = errors.New("calibration already in progress")
	ErrNoCalibrator    = errors.New("no calibrator")
	ErrSessionNotFound = errors.New("calibration session not found")
)
