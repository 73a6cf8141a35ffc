package transfer

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on an already-started
	// ExecutorTransfer or Sender.
	ErrAlreadyStarted = errors.New("transfer already started")
	// ErrNotStarted is returned by Stop on one that was never started.
	ErrNotStarted = errors.New("transfer not started")
	// ErrStopTimeout is returned by Stop when the drain loop does not
	// exit within the given timeout.
	ErrStopTimeout = errors.New("transfer stop timed out")
	// ErrNilResolver is returned by NewExecutorTransfer with a nil
	// resolver — there is no sensible default destination-to-worker
	// mapping to fall back to.
	ErrNilResolver = errors.New("nil worker resolver")
	// ErrNilTransferFn is returned by NewSender with a nil send
	// function, for the same reason.
	ErrNilTransferFn = errors.New("nil transfer function")
)
