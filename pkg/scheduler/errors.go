package scheduler

import "errors"

// Sentinel errors for scheduler lifecycle and registration.
var (
	ErrAlreadyStarted  = errors.New("scheduler already started")
	ErrNotStarted      = errors.New("scheduler not started")
	ErrStopTimeout     = errors.New("scheduler stop timed out")
	ErrJobAfterStart   = errors.New("job registered after scheduler started")
	ErrNilJob          = errors.New("nil job")
	ErrInvalidInterval = errors.New("job interval must be positive")
)
