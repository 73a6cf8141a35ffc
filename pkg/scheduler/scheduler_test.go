package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamkit/executor/queue"
	"github.com/streamkit/executor/tuple"
)

type countingJob struct {
	name     string
	interval time.Duration
	block    chan struct{}
	runs     int64
}

func (j *countingJob) Name() string            { return j.name }
func (j *countingJob) Interval() time.Duration { return j.interval }
func (j *countingJob) Run(ctx context.Context) error {
	atomic.AddInt64(&j.runs, 1)
	if j.block != nil {
		select {
		case <-j.block:
		case <-ctx.Done():
		}
	}
	return nil
}

func TestScheduler_RunsOnInterval(t *testing.T) {
	job := &countingJob{name: "fast", interval: 10 * time.Millisecond}
	s := NewScheduler()
	require.NoError(t, s.Register(job))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	time.Sleep(55 * time.Millisecond)
	cancel()
	require.NoError(t, s.Stop(time.Second))

	runs := atomic.LoadInt64(&job.runs)
	assert.GreaterOrEqual(t, runs, int64(3), "expected several ticks to fire within 55ms at a 10ms interval")
}

func TestScheduler_SkipsOverrunTicks(t *testing.T) {
	block := make(chan struct{})
	job := &countingJob{name: "slow", interval: 10 * time.Millisecond, block: block}
	s := NewScheduler()
	require.NoError(t, s.Register(job))

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))

	// Let several ticks elapse while the first invocation is still
	// blocked; only that first invocation should have started.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int64(1), atomic.LoadInt64(&job.runs), "overrunning ticks must be skipped, not queued")

	close(block)
	time.Sleep(30 * time.Millisecond)
	assert.Greater(t, atomic.LoadInt64(&job.runs), int64(1), "once unblocked the job should resume ticking")

	cancel()
	require.NoError(t, s.Stop(time.Second))

	stats := s.Stats()
	require.Len(t, stats, 1)
	assert.Positive(t, stats[0].Skipped, "skip counter should reflect the overrun ticks")
}

func TestScheduler_RegisterAfterStartRejected(t *testing.T) {
	s := NewScheduler()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))

	err := s.Register(&countingJob{name: "late", interval: time.Second})
	assert.ErrorIs(t, err, ErrJobAfterStart)
}

func TestScheduler_StopBeforeStart(t *testing.T) {
	s := NewScheduler()
	err := s.Stop(time.Second)
	assert.ErrorIs(t, err, ErrNotStarted)
}

func TestScheduleSystemTick_PublishesBroadcastTuple(t *testing.T) {
	q := queue.NewReceiveQueue(4)
	defer q.Close()

	s := NewScheduler()
	require.NoError(t, ScheduleSystemTick(s, q, 1))

	ctx, cancel := context.WithTimeout(context.Background(), 1500*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Start(ctx))

	received := make(chan tuple.AddressedTuple, 1)
	go func() {
		_ = q.Consume(ctx, func(event tuple.AddressedTuple, seq int64, endOfBatch bool) error {
			received <- event
			cancel()
			return nil
		})
	}()

	select {
	case at := <-received:
		assert.Equal(t, tuple.BROADCAST, at.Dest)
		assert.Equal(t, tuple.SystemTickStream, at.Tuple.SourceStreamID)
		assert.Equal(t, tuple.SystemTaskID, at.Tuple.SourceTaskID)
		assert.Equal(t, 1, at.Tuple.Integer(0))
	case <-time.After(1500 * time.Millisecond):
		t.Fatal("expected a system tick tuple within the timeout")
	}

	_ = s.Stop(time.Second)
}

func TestScheduleMetricsTick_DistinctIntervalsGetDistinctNames(t *testing.T) {
	q := queue.NewReceiveQueue(4)
	defer q.Close()

	s := NewScheduler()
	require.NoError(t, ScheduleMetricsTick(s, q, 5))
	require.NoError(t, ScheduleMetricsTick(s, q, 10))

	ctx := context.Background()
	require.NoError(t, s.Start(ctx))
	defer func() { _ = s.Stop(time.Second) }()

	stats := s.Stats()
	require.Len(t, stats, 2)
	assert.NotEqual(t, stats[0].Name, stats[1].Name)
}

func TestScheduleSystemTick_RejectsNonPositiveInterval(t *testing.T) {
	q := queue.NewReceiveQueue(1)
	defer q.Close()

	s := NewScheduler()
	assert.ErrorIs(t, ScheduleSystemTick(s, q, 0), ErrInvalidInterval)
	assert.ErrorIs(t, ScheduleMetricsTick(s, q, -1), ErrInvalidInterval)
}
