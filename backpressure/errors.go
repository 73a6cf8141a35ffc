package backpressure

import "errors"

var (
	// ErrInvalidMark is returned when a high or low mark fraction is
	// outside (0,1].
	ErrInvalidMark = errors.New("watermark fraction must be in (0,1]")
	// ErrLowAboveHigh is returned when the low mark resolves to a depth
	// at or above the high mark, which would never let backpressure
	// clear.
	ErrLowAboveHigh = errors.New("low watermark must resolve below high watermark")
)
