package queue

import (
	"context"
	"sync"
	"time"

	"github.com/streamkit/executor/errors"
	"github.com/streamkit/executor/metric"
	"github.com/streamkit/executor/pkg/buffer"
)

// defaultBatchSize and defaultBatchTimeout apply when WithBatch is not
// supplied; they favor latency over throughput, matching what a newly
// constructed queue should do before a caller has tuned it.
const (
	defaultBatchSize    = 1
	defaultBatchTimeout = 0
)

// Ring is the bounded, blocking, single-consumer ring buffer shared by
// ReceiveQueue and TransferQueue. Producers publish batches and block
// on a full ring; the one consumer drains it with Consume, itself
// batching deliveries up to a configured size or timeout. Depth
// crossings of a registered WatermarkObserver's marks are reported
// edge-triggered.
type Ring[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	size     int
	head     int
	tail     int
	closed   bool

	notEmpty *sync.Cond
	notFull  *sync.Cond

	stats *buffer.Statistics

	batchSize    int
	batchTimeout time.Duration
	seq          int64

	watermark WatermarkObserver
	aboveHigh bool

	metrics    *metric.Metrics
	executorID string
	queueName  string
}

// Option configures a Ring at construction time.
type Option[T any] func(*Ring[T])

// WithBatchSize caps how many events Consume pulls off the ring in one
// round before delivering them to handler. Batching on the publish
// side is the caller's job; Publish always writes its whole batch.
func WithBatchSize[T any](n int) Option[T] {
	return func(r *Ring[T]) {
		if n > 0 {
			r.batchSize = n
		}
	}
}

// WithBatchTimeout bounds how long Consume waits to fill a partial
// batch before delivering what it has.
func WithBatchTimeout[T any](d time.Duration) Option[T] {
	return func(r *Ring[T]) {
		if d > 0 {
			r.batchTimeout = d
		}
	}
}

// WithWatermark registers the observer whose marks this ring reports
// edge-triggered crossings against.
func WithWatermark[T any](w WatermarkObserver) Option[T] {
	return func(r *Ring[T]) {
		r.watermark = w
	}
}

// WithMetrics enables the queue-depth, capacity, and backpressure
// gauges in m for this ring, labeled by executorID and queueName.
func WithMetrics[T any](m *metric.Metrics, executorID, queueName string) Option[T] {
	return func(r *Ring[T]) {
		r.metrics = m
		r.executorID = executorID
		r.queueName = queueName
	}
}

// NewRing allocates a ring of the given capacity. Capacity below 1 is
// raised to 1 — a zero-capacity ring can never hold anything to drain.
func NewRing[T any](capacity int, opts ...Option[T]) *Ring[T] {
	if capacity <= 0 {
		capacity = 1
	}

	r := &Ring[T]{
		items:        make([]T, capacity),
		capacity:     capacity,
		stats:        buffer.NewStatistics(),
		batchSize:    defaultBatchSize,
		batchTimeout: defaultBatchTimeout,
	}
	r.notEmpty = sync.NewCond(&r.mu)
	r.notFull = sync.NewCond(&r.mu)

	for _, opt := range opts {
		opt(r)
	}

	if r.metrics != nil {
		r.metrics.RecordQueueCapacity(r.executorID, r.queueName, r.capacity)
	}

	return r
}

// Depth returns the number of events currently occupying the ring.
func (r *Ring[T]) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.size
}

// Capacity returns the ring's fixed capacity.
func (r *Ring[T]) Capacity() int {
	return r.capacity
}

// Stats returns a snapshot of the ring's always-on statistics.
func (r *Ring[T]) Stats() buffer.StatsSummary {
	return r.stats.Summary()
}

// Close unblocks every producer and consumer waiting on the ring.
// Pending events remain available to a final Consume drain.
func (r *Ring[T]) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.notEmpty.Broadcast()
	r.notFull.Broadcast()
}

// Publish blocks until every event in batch has been written, or the
// ring is closed. Producers may call Publish concurrently; each event
// is appended under the same lock, so batches from different producers
// never interleave with each other mid-batch.
func (r *Ring[T]) Publish(batch []T) error {
	return r.PublishContext(context.Background(), batch)
}

// PublishContext is Publish honoring ctx for cancellation, the way a
// configured wait_timeout_ms would bound a blocked producer.
func (r *Ring[T]) PublishContext(ctx context.Context, batch []T) error {
	if len(batch) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return errors.NewExecError(errors.QueueInterruptedKind, errors.ErrAlreadyStopped,
			"Ring", "Publish", "ring closed")
	}

	cancel := r.watchContext(ctx, r.notFull)
	defer cancel()

	for _, item := range batch {
		for r.size == r.capacity && !r.closed {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return errors.NewExecError(errors.QueueInterruptedKind, ctxErr, "Ring", "Publish", "wait timeout")
			}
			r.notFull.Wait()
		}
		if r.closed {
			return errors.NewExecError(errors.QueueInterruptedKind, errors.ErrAlreadyStopped,
				"Ring", "Publish", "ring closed during wait")
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return errors.NewExecError(errors.QueueInterruptedKind, ctxErr, "Ring", "Publish", "wait timeout")
		}

		r.items[r.head] = item
		r.head = (r.head + 1) % r.capacity
		r.size++
		r.stats.Write()
		r.stats.UpdateSize(int64(r.size))
		r.checkWatermarkLocked()
	}

	r.recordDepthLocked()
	r.notEmpty.Broadcast()
	return nil
}

// Consume runs the single consumer loop until ctx is canceled or the
// ring is closed and drained. handler is invoked once per event in
// publication order; endOfBatch is true for the last event pulled in
// one batching round. A handler error aborts Consume and is returned
// as-is so callers can distinguish it from a QueueInterrupted kind.
func (r *Ring[T]) Consume(ctx context.Context, handler func(event T, seq int64, endOfBatch bool) error) error {
	for {
		batch, err := r.nextBatch(ctx)
		if err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil // closed and drained
		}
		for i, item := range batch {
			r.seq++
			if err := handler(item, r.seq, i == len(batch)-1); err != nil {
				return err
			}
		}
	}
}

// TryConsume pops one event without blocking, the non-blocking
// counterpart to Consume that a spout-style loop uses to service queued
// ticks/acks between calls into user code rather than waiting on an
// empty ring. ok is false if the ring currently has nothing to drain.
func (r *Ring[T]) TryConsume() (event T, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.size == 0 {
		return event, false
	}
	item := r.popLocked()
	r.recordDepthLocked()
	r.notFull.Broadcast()
	return item, true
}

// nextBatch blocks for up to one event, then opportunistically drains
// more (up to batchSize) within batchTimeout before returning. A nil,
// nil result means the ring is closed with nothing left to drain.
func (r *Ring[T]) nextBatch(ctx context.Context) ([]T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cancel := r.watchContext(ctx, r.notEmpty)
	defer cancel()

	for r.size == 0 && !r.closed {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, errors.NewExecError(errors.QueueInterruptedKind, ctxErr, "Ring", "Consume", "context canceled")
		}
		r.notEmpty.Wait()
	}
	if r.size == 0 && r.closed {
		return nil, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, errors.NewExecError(errors.QueueInterruptedKind, ctxErr, "Ring", "Consume", "context canceled")
	}

	batch := []T{r.popLocked()}

	deadline := time.Now().Add(r.batchTimeout)
	for len(batch) < r.batchSize && r.batchTimeout > 0 {
		if r.size > 0 {
			batch = append(batch, r.popLocked())
			continue
		}
		remaining := time.Until(deadline)
		if remaining <= 0 || r.closed {
			break
		}
		r.waitWithTimeout(remaining)
		if ctx.Err() != nil {
			break
		}
	}

	r.recordDepthLocked()
	r.notFull.Broadcast()
	return batch, nil
}

// popLocked removes and returns the head event. Caller must hold r.mu
// and have verified r.size > 0.
func (r *Ring[T]) popLocked() T {
	var zero T
	item := r.items[r.tail]
	r.items[r.tail] = zero
	r.tail = (r.tail + 1) % r.capacity
	r.size--
	r.stats.Read()
	r.stats.UpdateSize(int64(r.size))
	r.checkWatermarkLocked()
	return item
}

// checkWatermarkLocked fires the registered observer's crossing
// callback at most once per edge. Caller must hold r.mu.
func (r *Ring[T]) checkWatermarkLocked() {
	if r.watermark == nil {
		return
	}
	depth := r.size
	if !r.aboveHigh && depth >= r.watermark.HighWaterMark() {
		r.aboveHigh = true
		r.watermark.OnHighWaterMark()
	} else if r.aboveHigh && depth <= r.watermark.LowWaterMark() {
		r.aboveHigh = false
		r.watermark.OnLowWaterMark()
	}
}

// recordDepthLocked mirrors current depth into the optional Prometheus
// gauges. Caller must hold r.mu.
func (r *Ring[T]) recordDepthLocked() {
	if r.metrics == nil {
		return
	}
	r.metrics.RecordQueueDepth(r.executorID, r.queueName, r.size)
	r.metrics.RecordBackpressure(r.executorID, r.queueName, r.aboveHigh)
}

// waitWithTimeout waits on notEmpty for at most d, without holding the
// lock across the timer. Caller must hold r.mu; returns with r.mu
// re-acquired.
func (r *Ring[T]) waitWithTimeout(d time.Duration) {
	timer := time.AfterFunc(d, func() {
		r.mu.Lock()
		r.notEmpty.Broadcast()
		r.mu.Unlock()
	})
	defer timer.Stop()
	r.notEmpty.Wait()
}

// watchContext returns a cancel func that stops a background goroutine
// started to broadcast cond when ctx is done, waking a blocked
// producer or consumer on cancellation instead of leaving it parked on
// the condition variable forever. Caller must hold r.mu; the returned
// cancel func must be called without holding it released.
func (r *Ring[T]) watchContext(ctx context.Context, cond *sync.Cond) func() {
	if ctx.Done() == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			cond.Broadcast()
		case <-done:
		}
	}()
	return func() { close(done) }
}
