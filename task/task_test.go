package task

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamkit/executor/grouping"
	"github.com/streamkit/executor/transfer"
	"github.com/streamkit/executor/tuple"
)

func newTestTransfer(t *testing.T) (*transfer.ExecutorTransfer, func()) {
	t.Helper()
	xfer, err := transfer.NewExecutorTransfer(func(tuple.TaskID) transfer.WorkerAddress { return "local" })
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, xfer.Start(ctx))
	return xfer, func() {
		cancel()
		_ = xfer.Stop(time.Second)
	}
}

func drainOne(t *testing.T, xfer *transfer.ExecutorTransfer) transfer.WorkerBatch {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	result := make(chan transfer.WorkerBatch, 1)
	go func() {
		_ = xfer.Out().Consume(ctx, func(batch transfer.WorkerBatch, seq int64, endOfBatch bool) error {
			result <- batch
			cancel()
			return nil
		})
	}()

	select {
	case b := <-result:
		return b
	case <-ctx.Done():
		t.Fatal("expected a batch on the transfer queue")
		return transfer.WorkerBatch{}
	}
}

func TestNewTask_EmitsStartupNoticeOnSystemStream(t *testing.T) {
	xfer, cleanup := newTestTransfer(t)
	defer cleanup()

	registry := grouping.NewGrouperRegistry()
	registry.AddTarget(tuple.SystemStream, "tracker", grouping.NewAll())
	downstream := map[tuple.ComponentID][]tuple.TaskID{"tracker": {100}}

	tk, err := NewTask(context.Background(), 1, "my-bolt", registry, downstream, xfer)
	require.NoError(t, err)
	assert.Equal(t, tuple.TaskID(1), tk.ID())

	batch := drainOne(t, xfer)
	require.Len(t, batch.Payload, 1)
	assert.Equal(t, tuple.SystemStream, batch.Payload[0].Tuple.SourceStreamID)
	assert.Equal(t, tuple.TaskID(100), batch.Payload[0].Dest)
}

func TestNewTask_NoSubscriberMakesStartupANoop(t *testing.T) {
	xfer, cleanup := newTestTransfer(t)
	defer cleanup()

	registry := grouping.NewGrouperRegistry()
	tk, err := NewTask(context.Background(), 2, "my-bolt", registry, nil, xfer)
	require.NoError(t, err)
	assert.Equal(t, tuple.TaskID(2), tk.ID())
}

func TestTask_EmitRoutesThroughGrouperAndStatsAccumulate(t *testing.T) {
	xfer, cleanup := newTestTransfer(t)
	defer cleanup()

	registry := grouping.NewGrouperRegistry()
	registry.AddTarget("default", "downstream", grouping.NewGlobal())
	downstream := map[tuple.ComponentID][]tuple.TaskID{"downstream": {10, 11}}

	tk, err := NewTask(context.Background(), 1, "spout", registry, downstream, xfer)
	require.NoError(t, err)

	dests, err := tk.Emit(context.Background(), "default", tuple.Values{"hello"})
	require.NoError(t, err)
	assert.Equal(t, []tuple.TaskID{10}, dests)

	stats := tk.Stats()
	assert.Equal(t, int64(1), stats["default"])
}

func TestTask_MakeTupleStampsAnchorContext(t *testing.T) {
	xfer, cleanup := newTestTransfer(t)
	defer cleanup()

	registry := grouping.NewGrouperRegistry()
	tk, err := NewTask(context.Background(), 1, "bolt", registry, nil, xfer)
	require.NoError(t, err)

	single := tk.MakeTuple("s", tuple.Values{1}, []any{"root-1"})
	id, ok := single.MessageID()
	require.True(t, ok)
	assert.Equal(t, "root-1", id)

	multi := tk.MakeTuple("s", tuple.Values{1}, []any{"root-1", "root-2"})
	multiID, ok := multi.MessageID()
	require.True(t, ok)
	assert.Equal(t, []any{"root-1", "root-2"}, multiID)

	none := tk.MakeTuple("s", tuple.Values{1}, nil)
	_, ok = none.MessageID()
	assert.False(t, ok)
}

func TestTask_EmitAnchored(t *testing.T) {
	xfer, cleanup := newTestTransfer(t)
	defer cleanup()

	registry := grouping.NewGrouperRegistry()
	registry.AddTarget("default", "downstream", grouping.NewGlobal())
	downstream := map[tuple.ComponentID][]tuple.TaskID{"downstream": {20}}

	tk, err := NewTask(context.Background(), 1, "bolt", registry, downstream, xfer)
	require.NoError(t, err)

	dests, err := tk.EmitAnchored(context.Background(), "default", tuple.Values{"v"}, "anchor-1")
	require.NoError(t, err)
	assert.Equal(t, []tuple.TaskID{20}, dests)

	batch := drainOne(t, xfer)
	require.Len(t, batch.Payload, 1)
	id, ok := batch.Payload[0].Tuple.MessageID()
	require.True(t, ok)
	assert.Equal(t, "anchor-1", id)
}
