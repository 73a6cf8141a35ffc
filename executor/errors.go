package executor

import "errors"

var (
	// ErrAlreadyStarted is returned by Start on an already-running core.
	ErrAlreadyStarted = errors.New("executor already started")
	// ErrNotStarted is returned by Stop on a core that was never started.
	ErrNotStarted = errors.New("executor not started")
	// ErrStopTimeout is returned by Stop when the event loop does not
	// finish its current batch within the requested timeout.
	ErrStopTimeout = errors.New("executor stop timed out")
	// ErrNoTaskIDs is returned by NewCore when constructed with no tasks.
	ErrNoTaskIDs = errors.New("executor has no task ids")
	// ErrUnknownTask marks dispatch to a task id this executor does not
	// own; per §7 this is logged and dropped, never escalated.
	ErrUnknownTask = errors.New("unknown task id")
	// ErrMetricsAlreadySetUp is the idempotence guard on SetupMetrics:
	// a second call is rejected rather than silently re-scheduling.
	ErrMetricsAlreadySetUp = errors.New("metrics already set up")
)
