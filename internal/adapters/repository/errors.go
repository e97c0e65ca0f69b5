package repository

import "errors"

// Sentinel kinds for journal errors.
var (
	ErrNotFound     = errors.New("object not found")
	ErrInvalidLimit = errors.New("invalid limit")
)
