package executor

import (
	"context"
	"log/slog"
	"sync"
	"time"

	execerrors "github.com/streamkit/executor/errors"
	"github.com/streamkit/executor/tuple"
	"github.com/streamkit/executor/worker"
	"golang.org/x/time/rate"
)

// pendingEntry tracks one emitted-but-unacknowledged message. It is
// only ever read or written from SpoutExecutor's own run goroutine —
// Track is called synchronously from inside NextTuple, and Ack/Fail
// from other goroutines only reach it indirectly through ackCh.
type pendingEntry struct {
	taskID    tuple.TaskID
	emittedAt time.Time
}

// ackSignal is how an Ack or Fail arriving from outside (a transport's
// loop-back of a downstream acker's response, typically) crosses into
// the run goroutine that owns pending.
type ackSignal struct {
	msgID   any
	success bool
}

// SpoutExecutor drives a Core whose emission is spout-initiated rather
// than reactive: it calls the user's NextTuple under a wait strategy
// whenever max_spout_pending and storm_active/throttle_on allow, per
// §4.9. It does not use Core's own blocking event loop — a spout must
// interleave servicing queued ticks with calling NextTuple, so it runs
// its own loop that polls the receive queue non-blockingly instead.
type SpoutExecutor struct {
	core     *Core
	logic    SpoutLogic
	reporter *worker.ErrorReporter
	wh       *worker.WorkerHandle
	logger   *slog.Logger

	maxPending int // 0 means unbounded (topology.max.spout.pending unset)
	timeout    time.Duration
	limiter    *rate.Limiter

	ackCh   chan ackSignal
	pending map[any]*pendingEntry

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// SpoutOption configures a SpoutExecutor at construction time.
type SpoutOption func(*SpoutExecutor)

// WithMaxSpoutPending sets topology.max.spout.pending: NextTuple is not
// called again while len(pending) >= n. n <= 0 leaves it unbounded.
func WithMaxSpoutPending(n int) SpoutOption {
	return func(s *SpoutExecutor) { s.maxPending = n }
}

// WithMessageTimeout sets topology.message.timeout.secs. A zero or
// negative d disables timeout scanning, matching
// topology.enable.message.timeouts=false.
func WithMessageTimeout(d time.Duration) SpoutOption {
	return func(s *SpoutExecutor) { s.timeout = d }
}

// WithSpoutWaitStrategy seeds the wait strategy between NextTuple
// rounds from topology.sleep.spout.wait.strategy.time.ms. The wait
// applies after every round, whether or not it emitted anything.
func WithSpoutWaitStrategy(d time.Duration) SpoutOption {
	return func(s *SpoutExecutor) {
		if d > 0 {
			s.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithSpoutLogger overrides the default logger, slog.Default().
func WithSpoutLogger(logger *slog.Logger) SpoutOption {
	return func(s *SpoutExecutor) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewSpoutExecutor wires logic into core's dispatch (for ticks) and
// returns the specialization ready for Start.
func NewSpoutExecutor(core *Core, logic SpoutLogic, reporter *worker.ErrorReporter, wh *worker.WorkerHandle, opts ...SpoutOption) *SpoutExecutor {
	s := &SpoutExecutor{
		core:     core,
		logic:    logic,
		reporter: reporter,
		wh:       wh,
		logger:   slog.Default(),
		ackCh:    make(chan ackSignal, 256),
		pending:  make(map[any]*pendingEntry),
	}
	for _, opt := range opts {
		opt(s)
	}
	core.Action = s.tupleAction
	return s
}

// Open calls logic.Open for every task this executor owns.
func (s *SpoutExecutor) Open(ctx context.Context, conf map[string]any) error {
	for _, id := range s.core.TaskIDs() {
		t, _ := s.core.Task(id)
		if err := s.logic.Open(ctx, t, conf); err != nil {
			return execerrors.NewExecError(execerrors.FatalKind, err, "SpoutExecutor", "Open", string(t.ComponentID()))
		}
	}
	return nil
}

// Track registers msgID as pending for t, the spout's own at-least-once
// bookkeeping. It must only be called from within logic.NextTuple — the
// same goroutine that owns pending — never from Ack, Fail, or any other
// caller.
func (s *SpoutExecutor) Track(taskID tuple.TaskID, msgID any) {
	s.pending[msgID] = &pendingEntry{taskID: taskID, emittedAt: time.Now()}
}

// Ack signals that msgID was fully processed downstream. It is safe to
// call from any goroutine; the signal is applied on the run goroutine.
func (s *SpoutExecutor) Ack(ctx context.Context, msgID any) error {
	return s.signal(ctx, ackSignal{msgID: msgID, success: true})
}

// Fail signals that msgID failed downstream and should be retried or
// dropped per the user spout's own Fail callback.
func (s *SpoutExecutor) Fail(ctx context.Context, msgID any) error {
	return s.signal(ctx, ackSignal{msgID: msgID, success: false})
}

func (s *SpoutExecutor) signal(ctx context.Context, sig ackSignal) error {
	select {
	case s.ackCh <- sig:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start launches the run loop. Open must be called first.
func (s *SpoutExecutor) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.run(runCtx)

	s.started = true
	return nil
}

// Stop cancels the run loop, waits up to timeout for it to return, and
// closes logic.
func (s *SpoutExecutor) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	if s.stopped {
		return nil
	}

	s.cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var err error
	select {
	case <-s.done:
		s.stopped = true
	case <-timer.C:
		err = ErrStopTimeout
	}

	if closeErr := s.logic.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

// run services queued ticks and acks/fails first, then calls NextTuple
// once per owned task when emission is allowed, pacing each round
// with the configured wait strategy.
func (s *SpoutExecutor) run(ctx context.Context) {
	defer close(s.done)

	for {
		select {
		case <-ctx.Done():
			return
		case sig := <-s.ackCh:
			s.handleAck(ctx, sig)
			continue
		default:
		}

		handled, err := s.core.PollOnce(ctx)
		if err != nil {
			if ee, ok := execerrors.AsExecError(err); ok && ee.Kind == execerrors.QueueInterruptedKind {
				return
			}
			s.logger.Error("spout tick handling failed", "error", err)
			continue
		}
		if handled {
			continue
		}

		if !s.canEmit() {
			select {
			case <-ctx.Done():
				return
			case sig := <-s.ackCh:
				s.handleAck(ctx, sig)
			case <-time.After(5 * time.Millisecond):
			}
			continue
		}

		for _, id := range s.core.TaskIDs() {
			t, _ := s.core.Task(id)
			if err := s.logic.NextTuple(ctx, t); err != nil {
				_ = s.reporter.ReportError(ctx, id,
					execerrors.NewExecError(execerrors.UserLogicErrorKind, err, "SpoutExecutor", "NextTuple", string(t.ComponentID())))
			}
		}

		if s.limiter != nil {
			_ = s.limiter.Wait(ctx)
		}
	}
}

func (s *SpoutExecutor) canEmit() bool {
	if !s.wh.Active() || s.wh.ThrottleOn() {
		return false
	}
	if s.maxPending > 0 && len(s.pending) >= s.maxPending {
		return false
	}
	return true
}

func (s *SpoutExecutor) handleAck(ctx context.Context, sig ackSignal) {
	entry, ok := s.pending[sig.msgID]
	if !ok {
		return // unknown, or already timed out and failed
	}
	delete(s.pending, sig.msgID)

	t, ok := s.core.Task(entry.taskID)
	if !ok {
		return
	}

	var err error
	if sig.success {
		err = s.logic.Ack(ctx, t, sig.msgID)
	} else {
		err = s.logic.Fail(ctx, t, sig.msgID)
	}
	if err != nil {
		_ = s.reporter.ReportError(ctx, entry.taskID,
			execerrors.NewExecError(execerrors.UserLogicErrorKind, err, "SpoutExecutor", "Ack/Fail", string(t.ComponentID())))
	}
}

func (s *SpoutExecutor) tupleAction(ctx context.Context, taskID tuple.TaskID, tup tuple.Tuple) error {
	t, ok := s.core.Task(taskID)
	if !ok {
		s.logger.Warn("tuple addressed to unknown task, dropping", "task", taskID)
		return nil
	}

	switch tup.SourceStreamID {
	case tuple.MetricsTickStream:
		if err := s.core.MetricsTick(ctx, t, tup); err != nil {
			_ = s.reporter.ReportError(ctx, taskID, err)
		}
	case tuple.SystemTickStream:
		s.scanTimeouts(ctx)
	default:
		s.logger.Debug("spout ignoring non-tick tuple", "stream", tup.SourceStreamID)
	}
	return nil
}

// scanTimeouts fails every pending entry older than s.timeout. Disabled
// entirely when s.timeout <= 0, matching topology.enable.message.timeouts.
func (s *SpoutExecutor) scanTimeouts(ctx context.Context) {
	if s.timeout <= 0 {
		return
	}

	deadline := time.Now().Add(-s.timeout)
	for msgID, entry := range s.pending {
		if entry.emittedAt.After(deadline) {
			continue
		}
		delete(s.pending, msgID)

		t, ok := s.core.Task(entry.taskID)
		if !ok {
			continue
		}
		if err := s.logic.Fail(ctx, t, msgID); err != nil {
			_ = s.reporter.ReportError(ctx, entry.taskID,
				execerrors.NewExecError(execerrors.UserLogicErrorKind, err, "SpoutExecutor", "Fail", string(t.ComponentID())))
		}
	}
}
