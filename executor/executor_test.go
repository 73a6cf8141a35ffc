package executor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/streamkit/executor/grouping"
	"github.com/streamkit/executor/queue"
	"github.com/streamkit/executor/task"
	"github.com/streamkit/executor/transfer"
	"github.com/streamkit/executor/tuple"
	"github.com/streamkit/executor/worker"
)

// newTestTasks builds a Core-ready idToTask map for taskIDs, all of the
// same component, with no outbound subscribers (the tests that care
// about emission wire their own registry).
func newTestTasks(t *testing.T, componentID tuple.ComponentID, taskIDs ...tuple.TaskID) (map[tuple.TaskID]*task.Task, *transfer.ExecutorTransfer, func()) {
	t.Helper()

	xfer, err := transfer.NewExecutorTransfer(func(tuple.TaskID) transfer.WorkerAddress { return "local" })
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, xfer.Start(ctx))

	registry := grouping.NewGrouperRegistry()
	idToTask := make(map[tuple.TaskID]*task.Task, len(taskIDs))
	for _, id := range taskIDs {
		tk, err := task.NewTask(context.Background(), id, componentID, registry, nil, xfer)
		require.NoError(t, err)
		idToTask[id] = tk
	}

	cleanup := func() {
		cancel()
		_ = xfer.Stop(time.Second)
	}
	return idToTask, xfer, cleanup
}

func newTestWorkerHandle() *worker.WorkerHandle {
	return worker.NewWorkerHandle("test-topology", nil)
}

func newReceiveQueueForTest() *queue.ReceiveQueue {
	return queue.NewReceiveQueue(64)
}

func newTestCore(t *testing.T, componentID tuple.ComponentID, taskIDs ...tuple.TaskID) (*Core, *queue.ReceiveQueue, func()) {
	t.Helper()

	idToTask, _, cleanupXfer := newTestTasks(t, componentID, taskIDs...)
	recv := queue.NewReceiveQueue(64)

	core, err := NewCore("exec-1", componentID, idToTask, recv, newTestWorkerHandle())
	require.NoError(t, err)

	return core, recv, func() {
		recv.Close()
		cleanupXfer()
	}
}
