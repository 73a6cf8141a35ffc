package queue

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRing_PublishConsumeOrder(t *testing.T) {
	r := NewRing[int](4)
	defer r.Close()

	require.NoError(t, r.Publish([]int{1, 2, 3}))
	assert.Equal(t, 3, r.Depth())
	assert.Equal(t, 4, r.Capacity())

	var got []int
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		_ = r.Consume(ctx, func(event int, seq int64, endOfBatch bool) error {
			got = append(got, event)
			if len(got) == 3 {
				cancel()
			}
			return nil
		})
	}()

	<-ctx.Done()
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestRing_PublishBlocksUntilSpace(t *testing.T) {
	r := NewRing[int](1)
	defer r.Close()

	require.NoError(t, r.Publish([]int{1}))

	published := make(chan struct{})
	go func() {
		_ = r.Publish([]int{2})
		close(published)
	}()

	select {
	case <-published:
		t.Fatal("second publish should have blocked on a full ring")
	case <-time.After(20 * time.Millisecond):
	}

	_, err := r.nextBatchForTest()
	require.NoError(t, err)

	select {
	case <-published:
	case <-time.After(50 * time.Millisecond):
		t.Fatal("publish should have unblocked after a slot freed")
	}
}

func TestRing_CloseUnblocksPublishAndConsume(t *testing.T) {
	r := NewRing[int](1)
	require.NoError(t, r.Publish([]int{1}))

	errCh := make(chan error, 1)
	go func() {
		errCh <- r.Publish([]int{2})
	}()

	time.Sleep(10 * time.Millisecond)
	r.Close()

	select {
	case err := <-errCh:
		assert.Error(t, err)
	case <-time.After(50 * time.Millisecond):
		t.Fatal("blocked publish should unblock on close")
	}
}

func TestRing_WatermarkEdgeTriggered(t *testing.T) {
	w := &recordingWatermark{high: 3, low: 1}
	r := NewRing[int](4, WithWatermark[int](w))
	defer r.Close()

	require.NoError(t, r.Publish([]int{1, 2}))
	assert.Equal(t, 0, w.highCrossings, "depth 2 should not cross high=3 yet")

	require.NoError(t, r.Publish([]int{3}))
	assert.Equal(t, 1, w.highCrossings, "depth 3 should cross high once")

	require.NoError(t, r.Publish([]int{4}))
	assert.Equal(t, 1, w.highCrossings, "staying above high must not refire")

	_, _ = r.nextBatchForTest()
	_, _ = r.nextBatchForTest()
	assert.Equal(t, 0, w.lowCrossings, "depth 2 should not cross low=1 yet")

	_, _ = r.nextBatchForTest()
	assert.Equal(t, 1, w.lowCrossings, "depth 1 should cross low once")
}

func TestRing_BatchedConsume(t *testing.T) {
	r := NewRing[int](10, WithBatchSize[int](3), WithBatchTimeout[int](20*time.Millisecond))
	defer r.Close()

	require.NoError(t, r.Publish([]int{1, 2, 3, 4, 5}))

	var mu sync.Mutex
	var batchSizes []int
	current := 0

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	go func() {
		_ = r.Consume(ctx, func(event int, seq int64, endOfBatch bool) error {
			mu.Lock()
			current++
			if endOfBatch {
				batchSizes = append(batchSizes, current)
				current = 0
			}
			mu.Unlock()
			return nil
		})
	}()

	time.Sleep(100 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	total := 0
	for _, n := range batchSizes {
		total += n
		assert.LessOrEqual(t, n, 3)
	}
	assert.Equal(t, 5, total)
}

// nextBatchForTest exposes nextBatch to black-box-adjacent tests in
// this package without making it part of the public API.
func (r *Ring[T]) nextBatchForTest() ([]T, error) {
	return r.nextBatch(context.Background())
}

type recordingWatermark struct {
	high, low                   int
	highCrossings, lowCrossings int
}

func (w *recordingWatermark) HighWaterMark() int { return w.high }
func (w *recordingWatermark) LowWaterMark() int  { return w.low }
func (w *recordingWatermark) OnHighWaterMark()   { w.highCrossings++ }
func (w *recordingWatermark) OnLowWaterMark()    { w.lowCrossings++ }
