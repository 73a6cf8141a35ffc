package executor

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	execerrors "github.com/streamkit/executor/errors"
	"github.com/streamkit/executor/metric"
	"github.com/streamkit/executor/queue"
	"github.com/streamkit/executor/task"
	"github.com/streamkit/executor/tuple"
	"github.com/streamkit/executor/worker"
)

// TupleAction is tuple_action: the per-tuple behavior a Spout or Bolt
// specialization supplies to drive dispatch. It is called once per
// (taskID, tuple) pair in the order ExecutorCore's own ordering
// guarantees specify — broadcast fan-out in ascending task id order,
// direct delivery once.
type TupleAction func(ctx context.Context, taskID tuple.TaskID, tup tuple.Tuple) error

// Core is ExecutorCore: owns the event loop draining receive, dispatches
// each AddressedTuple to action, and exposes the operations both
// specializations share (unanchored send, event-logger sampling,
// metrics-tick fan-out). A specialization (BoltExecutor, SpoutExecutor)
// sets Action before calling Start.
type Core struct {
	logger  *slog.Logger
	metrics *metric.Metrics

	executorID  string
	componentID tuple.ComponentID
	taskIDs     []tuple.TaskID // ascending, immutable after construction
	idToTask    map[tuple.TaskID]*task.Task

	receive *queue.ReceiveQueue
	wh      *worker.WorkerHandle

	metricsReg *metricRegistry

	debug atomic.Bool
	rng   *rand.Rand // single-writer: only the executor's own loop goroutine touches it

	Action TupleAction

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// Option configures a Core at construction time.
type Option func(*Core)

// WithLogger overrides the default logger, slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Core) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables Prometheus-backed metrics for this core's own
// instrumentation (as opposed to the user-registered metrics
// metricsTick reports).
func WithMetrics(m *metric.Metrics) Option {
	return func(c *Core) { c.metrics = m }
}

// WithDebug sets topology.debug: every incoming tuple is logged before
// dispatch while true.
func WithDebug(debug bool) Option {
	return func(c *Core) { c.debug.Store(debug) }
}

// WithRandSource seeds the event-logger sampling RNG deterministically,
// for tests that need reproducible sampling decisions.
func WithRandSource(src rand.Source) Option {
	return func(c *Core) { c.rng = rand.New(src) }
}

// NewCore constructs an unstarted Core for componentID's executor,
// owning idToTask's keys as taskIDs.
func NewCore(executorID string, componentID tuple.ComponentID, idToTask map[tuple.TaskID]*task.Task, receive *queue.ReceiveQueue, wh *worker.WorkerHandle, opts ...Option) (*Core, error) {
	if len(idToTask) == 0 {
		return nil, ErrNoTaskIDs
	}

	taskIDs := make([]tuple.TaskID, 0, len(idToTask))
	for id := range idToTask {
		taskIDs = append(taskIDs, id)
	}
	sort.Slice(taskIDs, func(i, j int) bool { return taskIDs[i] < taskIDs[j] })

	c := &Core{
		logger:      slog.Default(),
		executorID:  executorID,
		componentID: componentID,
		taskIDs:     taskIDs,
		idToTask:    idToTask,
		receive:     receive,
		wh:          wh,
		metricsReg:  newMetricRegistry(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// TaskIDs returns the ascending task ids this executor owns. The
// returned slice must not be mutated.
func (c *Core) TaskIDs() []tuple.TaskID { return c.taskIDs }

// Task looks up a task this executor owns.
func (c *Core) Task(id tuple.TaskID) (*task.Task, bool) {
	t, ok := c.idToTask[id]
	return t, ok
}

// RegisterMetric adds a user metric under (intervalSecs, taskID, name).
// It must be called before SetupMetrics; a call after returns a
// ConfigError-classified error rather than silently taking effect.
func (c *Core) RegisterMetric(intervalSecs int, taskID tuple.TaskID, name string, m Metric) error {
	return c.metricsReg.register(intervalSecs, taskID, name, m)
}

// SetupMetrics schedules one recurring metrics-tick job per distinct
// registered interval onto scheduler, publishing broadcast
// __metrics_tick tuples into this core's receive queue. It is
// idempotent-guarded: a second call returns an error without
// re-scheduling.
func (c *Core) SetupMetrics(s *MetricsScheduler) error {
	if err := c.metricsReg.markSetupDone(); err != nil {
		return err
	}
	for _, interval := range c.metricsReg.intervals() {
		if err := s.scheduleMetricsTick(c.receive, interval); err != nil {
			return err
		}
	}
	return nil
}

// Start launches the event loop goroutine. Action must be set first.
func (c *Core) Start(ctx context.Context) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if c.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(runCtx)

	c.started = true
	return nil
}

// Stop cancels the event loop and waits up to timeout for its current
// batch to finish.
func (c *Core) Stop(timeout time.Duration) error {
	c.lifecycleMu.Lock()
	defer c.lifecycleMu.Unlock()

	if !c.started {
		return ErrNotStarted
	}
	if c.stopped {
		return nil
	}

	c.cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.done:
		c.stopped = true
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// run is the event-handler thread: drain receive and dispatch every
// event to Action. A non-shutdown error ends the loop and is logged;
// it is not passed on to any other handler.
func (c *Core) run(ctx context.Context) {
	defer close(c.done)

	err := c.receive.Consume(ctx, func(event tuple.AddressedTuple, seq int64, endOfBatch bool) error {
		return c.dispatch(ctx, event)
	})

	if err != nil {
		if ee, ok := execerrors.AsExecError(err); ok && ee.Kind == execerrors.QueueInterruptedKind {
			return // shutdown, not a failure
		}
		c.logger.Error("event loop terminated with error", "component", c.componentID, "error", err)
	}
}

// PollOnce services at most one already-queued event without blocking,
// the non-blocking counterpart to the loop run drives for Bolt: a
// SpoutExecutor calls this to service ticks between NextTuple calls
// rather than committing to Core's own blocking Consume loop.
func (c *Core) PollOnce(ctx context.Context) (handled bool, err error) {
	event, ok := c.receive.TryConsume()
	if !ok {
		return false, nil
	}
	return true, c.dispatch(ctx, event)
}

// dispatch applies the broadcast/direct delivery rule from §4.7 to one
// event, logging it first when topology.debug is set.
func (c *Core) dispatch(ctx context.Context, event tuple.AddressedTuple) error {
	if c.debug.Load() {
		c.logger.Info("processing received tuple", "dest", event.Dest, "stream", event.Tuple.SourceStreamID)
	}

	if event.Dest == tuple.BROADCAST {
		for _, id := range c.taskIDs {
			if err := c.Action(ctx, id, event.Tuple); err != nil {
				return err
			}
		}
		return nil
	}
	return c.Action(ctx, event.Dest, event.Tuple)
}

// SendUnanchored is send_unanchored: Task.Emit already is this
// operation (no anchor context attached), so Core simply names it at
// the level §4.7 exposes it.
func (c *Core) SendUnanchored(ctx context.Context, t *task.Task, stream string, values tuple.Values) ([]tuple.TaskID, error) {
	return t.Emit(ctx, stream, values)
}

// SendToEventLogger is send_to_event_logger: samples against the
// component's (or topology's) DebugOptions and, on a sampling hit,
// forwards (componentID, messageID, wallTimeMs, values) on the
// event-logger stream. A sampling miss is silently swallowed, matching
// the propagation policy.
func (c *Core) SendToEventLogger(ctx context.Context, t *task.Task, values tuple.Values, componentID tuple.ComponentID, messageID any) error {
	opts := c.wh.ComponentDebug(componentID)
	if !opts.Enabled || opts.SamplingPct <= 0 {
		return nil
	}
	if c.rng.Float64()*100 >= opts.SamplingPct {
		return nil
	}

	_, err := c.SendUnanchored(ctx, t, tuple.EventLoggerStream, tuple.Values{
		string(componentID), messageID, time.Now().UnixMilli(), values,
	})
	return err
}

// MetricsTick is metrics_tick: read the interval from field 0, collect
// every non-nil registered metric for (interval, t.ID()), and if any
// were found emit (TaskInfo, dataPoints) on the metrics stream. Any
// failure is wrapped, matching the original's blanket exception wrap.
func (c *Core) MetricsTick(ctx context.Context, t *task.Task, tup tuple.Tuple) error {
	interval := tup.Integer(0)
	points := c.metricsReg.dataPoints(interval, t.ID())
	if len(points) == 0 {
		return nil
	}

	info := TaskInfo{
		ComponentID:   c.componentID,
		TaskID:        t.ID(),
		TimestampSecs: time.Now().Unix(),
		IntervalSecs:  interval,
	}

	if _, err := c.SendUnanchored(ctx, t, tuple.MetricsStream, tuple.Values{info, points}); err != nil {
		return execerrors.NewExecError(execerrors.UserLogicErrorKind, err, "Core", "MetricsTick", string(c.componentID))
	}
	return nil
}
