package scoring

import (
	"errors"
	"fmt"
)

// Status is a scorer result code. Zero is success; every non-zero value is
// a failure.
type Status int

// Status codes of the attention scorer.
const (
	StatusOK                    Status = 0
	StatusNullPointerPassed     Status = -1
	StatusInternal              Status = -2
	StatusThreadPool            Status = -3
	StatusIndexOutOfBounds      Status = -4
	StatusInternalConversion    Status = -5
	StatusLogFile               Status = -6
	StatusNotPermittedByLicense Status = -7
	StatusLicenseInvalid        Status = -8
	StatusNotImplemented        Status = -9
	StatusCapacityExceeded      Status = -10
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNullPointerPassed:
		return "null_pointer_passed"
	case StatusInternal:
		return "internal"
	case StatusThreadPool:
		return "thread_pool"
	case StatusIndexOutOfBounds:
		return "index_out_of_bounds"
	case StatusInternalConversion:
		return "internal_conversion"
	case StatusLogFile:
		return "log_file"
	case StatusNotPermittedByLicense:
		return "not_permitted_by_license"
	case StatusLicenseInvalid:
		return "license_invalid"
	case StatusNotImplemented:
		return "not_implemented"
	case StatusCapacityExceeded:
		return "capacity_exceeded"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Sentinel error kinds for scorer failures.
var (
	ErrNative = errors.New("scorer call failed")
	ErrClosed = errors.New("scorer context closed")
)

// StatusError wraps a non-zero status returned by a scorer call.
type StatusError struct {
	Op     string
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Status, int(e.Status))
}

// Unwrap lets callers match ErrNative with errors.Is.
func (e *StatusError) Unwrap() error { return ErrNative }

// check converts a status into an error.
func check(op string, s Status) error {
	if s == StatusOK {
		return nil
	}
	return &StatusError{Op: op, Status: s}
}

// StatusOf extracts the status from err, StatusOK for nil and
// StatusInternal for foreign errors.
func StatusOf(err error) Status {
	if err == nil {
		return StatusOK
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Status
	}
	return StatusInternal
}
