package transfer

import (
	"context"
	"sync"
	"time"

	"github.com/streamkit/executor/metric"
	"github.com/streamkit/executor/queue"
	"github.com/streamkit/executor/tuple"
)

const (
	defaultStagingCapacity = 4096
	defaultOutCapacity     = 1024
)

// ExecutorTransfer is the staging layer a task's emit path calls into.
// Transfer accepts (destination, tuple) pairs from any goroutine;
// a single drain loop resolves destinations to worker addresses,
// batches by worker, and publishes those batches onto an internal
// single-producer transfer queue that a Sender later drains.
type ExecutorTransfer struct {
	staging *queue.Ring[AddressedPayload]
	out     *queue.TransferQueue[WorkerBatch]
	resolve Resolver

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	cancel      context.CancelFunc
	done        chan struct{}
}

// Option configures an ExecutorTransfer at construction time.
type Option func(*config)

type config struct {
	stagingCapacity int
	outCapacity     int
	batchSize       int
	batchTimeout    time.Duration
	metrics         *metric.Metrics
	executorID      string
}

// WithStagingCapacity overrides the default staging ring capacity.
func WithStagingCapacity(n int) Option {
	return func(c *config) { c.stagingCapacity = n }
}

// WithOutCapacity overrides the default transfer queue capacity.
func WithOutCapacity(n int) Option {
	return func(c *config) { c.outCapacity = n }
}

// WithBatchSize caps how many staged payloads the staging ring delivers
// to the drain loop per batching round, mirroring queue.WithBatchSize.
func WithBatchSize(n int) Option {
	return func(c *config) { c.batchSize = n }
}

// WithBatchTimeout bounds how long the staging ring waits to fill a
// partial batch before delivering it to the drain loop.
func WithBatchTimeout(d time.Duration) Option {
	return func(c *config) { c.batchTimeout = d }
}

// WithMetrics enables queue-depth/capacity/backpressure reporting for
// both the staging and transfer queues, labeled by executorID.
func WithMetrics(m *metric.Metrics, executorID string) Option {
	return func(c *config) {
		c.metrics = m
		c.executorID = executorID
	}
}

// NewExecutorTransfer constructs an unstarted ExecutorTransfer. resolve
// must not be nil.
func NewExecutorTransfer(resolve Resolver, opts ...Option) (*ExecutorTransfer, error) {
	if resolve == nil {
		return nil, ErrNilResolver
	}

	c := &config{
		stagingCapacity: defaultStagingCapacity,
		outCapacity:     defaultOutCapacity,
	}
	for _, opt := range opts {
		opt(c)
	}

	var stagingOpts []queue.Option[AddressedPayload]
	var outOpts []queue.Option[WorkerBatch]
	if c.batchSize > 0 {
		stagingOpts = append(stagingOpts, queue.WithBatchSize[AddressedPayload](c.batchSize))
	}
	if c.batchTimeout > 0 {
		stagingOpts = append(stagingOpts, queue.WithBatchTimeout[AddressedPayload](c.batchTimeout))
	}
	if c.metrics != nil {
		stagingOpts = append(stagingOpts, queue.WithMetrics[AddressedPayload](c.metrics, c.executorID, "staging"))
		outOpts = append(outOpts, queue.WithMetrics[WorkerBatch](c.metrics, c.executorID, "transfer"))
	}

	return &ExecutorTransfer{
		staging: queue.NewRing[AddressedPayload](c.stagingCapacity, stagingOpts...),
		out:     queue.NewTransferQueue[WorkerBatch](c.outCapacity, outOpts...),
		resolve: resolve,
	}, nil
}

// Transfer stages one (dest, tuple) pair. Safe to call concurrently
// from any number of goroutines.
func (t *ExecutorTransfer) Transfer(ctx context.Context, dest tuple.TaskID, tup tuple.Tuple) error {
	return t.staging.PublishContext(ctx, []AddressedPayload{{Dest: dest, Tuple: tup}})
}

// Out returns the transfer queue a Sender drains. ExecutorTransfer is
// its only producer.
func (t *ExecutorTransfer) Out() *queue.TransferQueue[WorkerBatch] {
	return t.out
}

// Start launches the drain loop. It returns immediately; the loop runs
// until ctx is canceled or Stop is called.
func (t *ExecutorTransfer) Start(ctx context.Context) error {
	t.lifecycleMu.Lock()
	defer t.lifecycleMu.Unlock()

	if t.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})

	go func() {
		defer close(t.done)
		t.drain(runCtx)
	}()

	t.started = true
	return nil
}

// Stop cancels the drain loop and waits up to timeout for it to finish
// draining staged payloads and exit.
func (t *ExecutorTransfer) Stop(timeout time.Duration) error {
	t.lifecycleMu.Lock()
	defer t.lifecycleMu.Unlock()

	if !t.started {
		return ErrNotStarted
	}
	if t.stopped {
		return nil
	}

	t.staging.Close()
	t.cancel()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-t.done:
		t.stopped = true
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// drain consumes staged payloads, groups them by resolved worker
// address in arrival order, and flushes each batching round's groups
// onto out. Per-worker order is preserved because the staging ring
// delivers strictly FIFO and each group is only ever appended to.
func (t *ExecutorTransfer) drain(ctx context.Context) {
	order := make([]WorkerAddress, 0, 8)
	groups := make(map[WorkerAddress][]AddressedPayload, 8)

	flush := func(publishCtx context.Context) {
		for _, worker := range order {
			batch := groups[worker]
			if len(batch) == 0 {
				continue
			}
			_ = t.out.PublishContext(publishCtx, []WorkerBatch{{Worker: worker, Payload: batch}})
		}
		order = order[:0]
		groups = make(map[WorkerAddress][]AddressedPayload, 8)
	}

	_ = t.staging.Consume(ctx, func(event AddressedPayload, seq int64, endOfBatch bool) error {
		worker := t.resolve(event.Dest)
		if _, ok := groups[worker]; !ok {
			order = append(order, worker)
		}
		groups[worker] = append(groups[worker], event)
		if endOfBatch && ctx.Err() == nil {
			flush(ctx)
		}
		return nil
	})
	// Consume returns as soon as ctx is canceled, which can leave payloads
	// on the staging ring; collect them for the exit flush.
	for {
		event, ok := t.staging.TryConsume()
		if !ok {
			break
		}
		worker := t.resolve(event.Dest)
		if _, ok := groups[worker]; !ok {
			order = append(order, worker)
		}
		groups[worker] = append(groups[worker], event)
	}
	// ctx is canceled by the time Consume returns on shutdown; the exit
	// flush uses a fresh context so a still-open out queue still
	// receives whatever was left staged.
	flush(context.Background())
}
