package service

import "errors"

// Sentinel kinds for tracker errors.
var (
	ErrClosed   = errors.New("tracker closed")
	ErrNoEngine = errors.New("no scoring engine")
	ErrNoScene  = errors.New("no scene raycaster")
)
