package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/streamkit/executor/backpressure"
	"github.com/streamkit/executor/config"
	execerrors "github.com/streamkit/executor/errors"
	"github.com/streamkit/executor/executor"
	"github.com/streamkit/executor/grouping"
	"github.com/streamkit/executor/metric"
	"github.com/streamkit/executor/pkg/retry"
	"github.com/streamkit/executor/pkg/scheduler"
	"github.com/streamkit/executor/queue"
	"github.com/streamkit/executor/task"
	"github.com/streamkit/executor/transfer"
	natstransport "github.com/streamkit/executor/transport/nats"
	"github.com/streamkit/executor/tuple"
	"github.com/streamkit/executor/worker"
)

const (
	spoutTaskID tuple.TaskID = 1
	boltTaskID  tuple.TaskID = 2

	spoutComponent tuple.ComponentID = "sentence-spout"
	boltComponent  tuple.ComponentID = "word-count-bolt"

	spoutWorker transfer.WorkerAddress = "spout-worker"
	boltWorker  transfer.WorkerAddress = "bolt-worker"

	receiveQueueCapacity = 256
)

// taskToWorker is the static topology assignment a real worker process
// would instead receive from Nimbus: which worker address owns each
// task id.
var taskToWorker = map[tuple.TaskID]transfer.WorkerAddress{
	spoutTaskID: spoutWorker,
	boltTaskID:  boltWorker,
}

// side bundles everything one of the demo's two workers needs to start
// and stop cleanly. Both the spout side and the bolt side build one,
// differing only in the ComponentLogic, the grouping they declare, and
// whether they run a Receiver.
type side struct {
	name      string
	client    *natstransport.Client
	xfer      *transfer.ExecutorTransfer
	sender    *transfer.Sender
	receiver  *natstransport.Receiver
	scheduler *scheduler.Scheduler
	recv      *queue.ReceiveQueue
	started   []func(timeout time.Duration) error
}

func (s *side) stop(timeout time.Duration) {
	for i := len(s.started) - 1; i >= 0; i-- {
		if err := s.started[i](timeout); err != nil {
			slog.Error("error stopping component", "side", s.name, "error", err)
		}
	}
	if err := s.client.Close(); err != nil {
		slog.Error("error closing NATS client", "side", s.name, "error", err)
	}
}

// dialNATS connects a transport client for one worker address, retrying
// the initial dial with retry.Quick's bounded exponential backoff
// rather than failing on the first broker hiccup during startup.
func dialNATS(ctx context.Context, url string, logger *slog.Logger) (*natstransport.Client, error) {
	client := natstransport.NewClient(url, natstransport.WithLogger(logger))

	err := retry.Do(ctx, retry.Quick(), func() error {
		return client.Connect(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return client, nil
}

// newExecutorTransfer builds and starts the staging/outbound queue
// pair and the Sender that drains it onto the wire for one worker.
func newExecutorTransfer(ctx context.Context, client *natstransport.Client, coreMetrics *metric.Metrics, executorID string, logger *slog.Logger) (*transfer.ExecutorTransfer, *transfer.Sender, error) {
	xfer, err := transfer.NewExecutorTransfer(
		natstransport.StaticResolver(taskToWorker),
		transfer.WithMetrics(coreMetrics, executorID),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("build executor transfer: %w", err)
	}
	if err := xfer.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("start executor transfer: %w", err)
	}

	sender, err := transfer.NewSender(xfer.Out(), client.TransferFn(), transfer.WithSenderLogger(logger))
	if err != nil {
		return nil, nil, fmt.Errorf("build sender: %w", err)
	}
	if err := sender.Start(ctx); err != nil {
		return nil, nil, fmt.Errorf("start sender: %w", err)
	}

	return xfer, sender, nil
}

// newReceiveQueue wires a backpressure.Coordinator as the queue's
// watermark observer. Its trigger sets the side's throttle flag and
// logs each transition; on the spout side the SpoutExecutor shares that
// WorkerHandle and does not call NextTuple while the flag is set.
func newReceiveQueue(name string, wh *worker.WorkerHandle, coreMetrics *metric.Metrics, executorID string, logger *slog.Logger) (*queue.ReceiveQueue, error) {
	trigger := backpressure.TriggerFunc(func(active bool) {
		wh.SetThrottle(active)
		logger.Warn("backpressure toggled", "queue", name, "active", active)
	})
	coordinator, err := backpressure.NewCoordinator(receiveQueueCapacity, 0.8, 0.3, trigger)
	if err != nil {
		return nil, fmt.Errorf("build backpressure coordinator: %w", err)
	}

	return queue.NewReceiveQueue(
		receiveQueueCapacity,
		queue.WithWatermark[tuple.AddressedTuple](coordinator),
		queue.WithMetrics[tuple.AddressedTuple](coreMetrics, executorID, name),
	), nil
}

// buildSpoutSide wires the sentence spout's task, transport, core, and
// scheduler and starts the transfer pipeline; the scheduler and the
// SpoutExecutor itself are started by runTopology once Open has run.
func buildSpoutSide(ctx context.Context, cfg *CLIConfig, registry *metric.MetricsRegistry, logger *slog.Logger) (*side, *executor.SpoutExecutor, error) {
	executorID := "spout-executor"
	sideLogger := logger.With("side", executorID)

	client, err := dialNATS(ctx, cfg.NATSURL, sideLogger)
	if err != nil {
		return nil, nil, err
	}

	coreMetrics := registry.CoreMetrics()
	xfer, sender, err := newExecutorTransfer(ctx, client, coreMetrics, executorID, sideLogger)
	if err != nil {
		return nil, nil, err
	}

	groupers := grouping.NewGrouperRegistry()
	groupers.AddTarget(wordsStream, boltComponent, grouping.NewFields(0))
	downstream := map[tuple.ComponentID][]tuple.TaskID{boltComponent: {boltTaskID}}

	t, err := task.NewTask(ctx, spoutTaskID, spoutComponent, groupers, downstream, xfer,
		task.WithWorkerTopology(spoutWorker, natstransport.StaticResolver(taskToWorker)))
	if err != nil {
		return nil, nil, fmt.Errorf("build spout task: %w", err)
	}

	wh := worker.NewWorkerHandle("executor-demo", map[tuple.TaskID]tuple.ComponentID{spoutTaskID: spoutComponent})
	recv, err := newReceiveQueue("receive", wh, coreMetrics, executorID, sideLogger)
	if err != nil {
		return nil, nil, err
	}

	core, err := executor.NewCore(executorID, spoutComponent, map[tuple.TaskID]*task.Task{spoutTaskID: t}, recv, wh,
		executor.WithLogger(sideLogger), executor.WithMetrics(coreMetrics))
	if err != nil {
		return nil, nil, fmt.Errorf("build spout core: %w", err)
	}

	reporter := worker.NewErrorReporter(&slogClusterReporter{logger: sideLogger}, execerrors.DefaultRetryConfig(),
		"executor-demo", spoutComponent, "", 0, func() { logger.Error("spout suicide invoked, exiting") }, sideLogger)

	spoutLogic := newSentenceSpout(sideLogger)
	spoutExec := executor.NewSpoutExecutor(core, spoutLogic, reporter, wh,
		executor.WithMaxSpoutPending(cfg.MaxSpoutPending),
		executor.WithMessageTimeout(cfg.MessageTimeout),
		executor.WithSpoutWaitStrategy(50*time.Millisecond),
		executor.WithSpoutLogger(sideLogger))
	spoutLogic.attachExecutor(spoutExec)

	sched := scheduler.NewScheduler(scheduler.WithLogger(sideLogger), scheduler.WithMetrics(coreMetrics))
	if err := scheduler.ScheduleSystemTick(sched, recv, cfg.TickFreqSecs); err != nil {
		return nil, nil, fmt.Errorf("schedule spout system tick: %w", err)
	}

	s := &side{name: executorID, client: client, xfer: xfer, sender: sender, scheduler: sched, recv: recv}
	s.started = append(s.started, xfer.Stop, sender.Stop, sched.Stop)
	return s, spoutExec, nil
}

// buildBoltSide mirrors buildSpoutSide for the word-count bolt, adding
// a Receiver since the bolt is the transport's destination.
func buildBoltSide(ctx context.Context, cfg *CLIConfig, registry *metric.MetricsRegistry, logger *slog.Logger) (*side, *executor.BoltExecutor, *wordCountBolt, error) {
	executorID := "bolt-executor"
	sideLogger := logger.With("side", executorID)

	client, err := dialNATS(ctx, cfg.NATSURL, sideLogger)
	if err != nil {
		return nil, nil, nil, err
	}

	coreMetrics := registry.CoreMetrics()
	xfer, sender, err := newExecutorTransfer(ctx, client, coreMetrics, executorID, sideLogger)
	if err != nil {
		return nil, nil, nil, err
	}

	groupers := grouping.NewGrouperRegistry() // terminal bolt: no declared downstream targets
	downstream := map[tuple.ComponentID][]tuple.TaskID{}

	t, err := task.NewTask(ctx, boltTaskID, boltComponent, groupers, downstream, xfer,
		task.WithWorkerTopology(boltWorker, natstransport.StaticResolver(taskToWorker)))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build bolt task: %w", err)
	}

	wh := worker.NewWorkerHandle("executor-demo", map[tuple.TaskID]tuple.ComponentID{boltTaskID: boltComponent})
	recv, err := newReceiveQueue("receive", wh, coreMetrics, executorID, sideLogger)
	if err != nil {
		return nil, nil, nil, err
	}

	receiver := natstransport.NewReceiver(client, boltWorker, recv, sideLogger)
	if err := receiver.Start(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("start receiver: %w", err)
	}

	core, err := executor.NewCore(executorID, boltComponent, map[tuple.TaskID]*task.Task{boltTaskID: t}, recv, wh,
		executor.WithLogger(sideLogger), executor.WithMetrics(coreMetrics))
	if err != nil {
		return nil, nil, nil, fmt.Errorf("build bolt core: %w", err)
	}

	bolt := newWordCountBolt(sideLogger)
	if err := core.RegisterMetric(cfg.MetricsIntervalSecs, boltTaskID, "distinct_words", executor.MetricFunc(bolt.distinctWordCount)); err != nil {
		return nil, nil, nil, fmt.Errorf("register metric: %w", err)
	}

	sched := scheduler.NewScheduler(scheduler.WithLogger(sideLogger), scheduler.WithMetrics(coreMetrics))
	if err := core.SetupMetrics(executor.NewMetricsScheduler(sched)); err != nil {
		return nil, nil, nil, fmt.Errorf("setup metrics: %w", err)
	}
	if err := scheduler.ScheduleSystemTick(sched, recv, cfg.TickFreqSecs); err != nil {
		return nil, nil, nil, fmt.Errorf("schedule bolt system tick: %w", err)
	}

	reporter := worker.NewErrorReporter(&slogClusterReporter{logger: sideLogger}, execerrors.DefaultRetryConfig(),
		"executor-demo", boltComponent, "", 0, func() { logger.Error("bolt suicide invoked, exiting") }, sideLogger)

	boltExec := executor.NewBoltExecutor(core, bolt, reporter)

	s := &side{name: executorID, client: client, xfer: xfer, sender: sender, receiver: receiver, scheduler: sched, recv: recv}
	s.started = append(s.started, xfer.Stop, sender.Stop, sched.Stop)
	return s, boltExec, bolt, nil
}

// loadTopologyOptions builds the conf map Open/Prepare receives for
// one component: the worker-wide topology file overlaid with that
// component's own "components.<name>" override section, normalized
// through the same allow-listed strip-then-overlay a component JSON
// blob from Nimbus would go through. A topology file with no
// per-component section for name is not an error — the component
// simply sees the worker-wide options unmodified.
func loadTopologyOptions(path string, name tuple.ComponentID) (map[string]any, error) {
	if path == "" {
		return map[string]any{}, nil
	}
	opts, err := config.LoadTopologyOptions(path)
	if err != nil {
		return nil, err
	}

	var componentJSON []byte
	if compCfg, err := config.GetComponentConfig(opts, string(name)); err == nil {
		componentJSON, err = json.Marshal(compCfg)
		if err != nil {
			return nil, fmt.Errorf("marshal component config for %s: %w", name, err)
		}
	}

	effective, err := config.Normalize(opts, componentJSON, config.DefaultAllowList())
	if err != nil {
		return nil, fmt.Errorf("normalize topology options for %s: %w", name, err)
	}
	return effective, nil
}
