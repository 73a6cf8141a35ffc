package grouping

import "errors"

var (
	// ErrNoExplicitDest is returned by Direct when the emitter supplied
	// no explicit destination.
	ErrNoExplicitDest = errors.New("direct grouping requires an explicit destination")
	// ErrDestNotSubscribed is returned by Direct when the emitter's
	// explicit destination is not one of the stream's declared
	// downstream task ids.
	ErrDestNotSubscribed = errors.New("explicit destination is not a subscribed task")
)
