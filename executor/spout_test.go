package executor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/streamkit/executor/task"
	"github.com/streamkit/executor/tuple"
	"github.com/streamkit/executor/worker"
)

type recordingSpoutLogic struct {
	mu      sync.Mutex
	opened  []tuple.TaskID
	emitted int
	acked   []any
	failed  []any
}

func (s *recordingSpoutLogic) Open(ctx context.Context, t *task.Task, conf map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.opened = append(s.opened, t.ID())
	return nil
}

func (s *recordingSpoutLogic) NextTuple(ctx context.Context, t *task.Task) error {
	s.mu.Lock()
	s.emitted++
	s.mu.Unlock()
	return nil
}

func (s *recordingSpoutLogic) Ack(ctx context.Context, t *task.Task, msgID any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, msgID)
	return nil
}

func (s *recordingSpoutLogic) Fail(ctx context.Context, t *task.Task, msgID any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, msgID)
	return nil
}

func (s *recordingSpoutLogic) Close() error { return nil }

func (s *recordingSpoutLogic) snapshot() (emitted int, acked, failed []any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ackedCopy := make([]any, len(s.acked))
	copy(ackedCopy, s.acked)
	failedCopy := make([]any, len(s.failed))
	copy(failedCopy, s.failed)
	return s.emitted, ackedCopy, failedCopy
}

func TestSpoutExecutor_OpenCallsEveryOwnedTask(t *testing.T) {
	core, _, cleanup := newTestCore(t, "spout", 1, 2)
	defer cleanup()

	logic := &recordingSpoutLogic{}
	reporter := newTestErrorReporter(&recordingClusterReporter{}, func() {})
	wh := newTestWorkerHandle()
	s := NewSpoutExecutor(core, logic, reporter, wh)

	require.NoError(t, s.Open(context.Background(), nil))
	assert.ElementsMatch(t, []tuple.TaskID{1, 2}, logic.opened)
}

func TestSpoutExecutor_TrackThenAckDeliversToLogicAck(t *testing.T) {
	core, _, cleanup := newTestCore(t, "spout", 1)
	defer cleanup()

	logic := &recordingSpoutLogic{}
	reporter := newTestErrorReporter(&recordingClusterReporter{}, func() {})
	wh := newTestWorkerHandle()
	s := NewSpoutExecutor(core, logic, reporter, wh)

	require.NoError(t, s.Open(context.Background(), nil))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(time.Second)

	s.Track(1, "msg-1")
	require.NoError(t, s.Ack(context.Background(), "msg-1"))

	require.Eventually(t, func() bool {
		_, acked, _ := logic.snapshot()
		return len(acked) == 1 && acked[0] == "msg-1"
	}, time.Second, time.Millisecond)
}

func TestSpoutExecutor_TrackThenFailDeliversToLogicFail(t *testing.T) {
	core, _, cleanup := newTestCore(t, "spout", 1)
	defer cleanup()

	logic := &recordingSpoutLogic{}
	reporter := newTestErrorReporter(&recordingClusterReporter{}, func() {})
	wh := newTestWorkerHandle()
	s := NewSpoutExecutor(core, logic, reporter, wh)

	require.NoError(t, s.Open(context.Background(), nil))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(time.Second)

	s.Track(1, "msg-2")
	require.NoError(t, s.Fail(context.Background(), "msg-2"))

	require.Eventually(t, func() bool {
		_, _, failed := logic.snapshot()
		return len(failed) == 1 && failed[0] == "msg-2"
	}, time.Second, time.Millisecond)
}

func TestSpoutExecutor_AckForUnknownMessageIDIsIgnored(t *testing.T) {
	core, _, cleanup := newTestCore(t, "spout", 1)
	defer cleanup()

	logic := &recordingSpoutLogic{}
	reporter := newTestErrorReporter(&recordingClusterReporter{}, func() {})
	wh := newTestWorkerHandle()
	s := NewSpoutExecutor(core, logic, reporter, wh)

	require.NoError(t, s.Open(context.Background(), nil))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(time.Second)

	require.NoError(t, s.Ack(context.Background(), "never-tracked"))
	time.Sleep(20 * time.Millisecond)

	_, acked, failed := logic.snapshot()
	assert.Empty(t, acked)
	assert.Empty(t, failed)
}

func TestSpoutExecutor_MaxSpoutPendingBlocksFurtherEmission(t *testing.T) {
	core, _, cleanup := newTestCore(t, "spout", 1)
	defer cleanup()

	logic := &recordingSpoutLogic{}
	reporter := newTestErrorReporter(&recordingClusterReporter{}, func() {})
	wh := newTestWorkerHandle()
	s := NewSpoutExecutor(core, logic, reporter, wh, WithMaxSpoutPending(1))

	s.Track(1, "blocker")
	assert.False(t, s.canEmit())

	s.handleAck(context.Background(), ackSignal{msgID: "blocker", success: true})
	assert.True(t, s.canEmit())
}

func TestSpoutExecutor_ThrottleAndInactiveBlockEmission(t *testing.T) {
	core, _, cleanup := newTestCore(t, "spout", 1)
	defer cleanup()

	logic := &recordingSpoutLogic{}
	reporter := newTestErrorReporter(&recordingClusterReporter{}, func() {})
	wh := newTestWorkerHandle()
	s := NewSpoutExecutor(core, logic, reporter, wh)

	assert.True(t, s.canEmit())

	wh.SetThrottle(true)
	assert.False(t, s.canEmit())
	wh.SetThrottle(false)

	wh.SetActive(false)
	assert.False(t, s.canEmit())
}

func TestSpoutExecutor_ScanTimeoutsFailsStaleEntries(t *testing.T) {
	core, _, cleanup := newTestCore(t, "spout", 1)
	defer cleanup()

	logic := &recordingSpoutLogic{}
	reporter := newTestErrorReporter(&recordingClusterReporter{}, func() {})
	wh := newTestWorkerHandle()
	s := NewSpoutExecutor(core, logic, reporter, wh, WithMessageTimeout(10*time.Millisecond))

	s.Track(1, "stale")
	time.Sleep(20 * time.Millisecond)
	s.scanTimeouts(context.Background())

	_, _, failed := logic.snapshot()
	require.Len(t, failed, 1)
	assert.Equal(t, "stale", failed[0])
	assert.Empty(t, s.pending)
}

func TestSpoutExecutor_ScanTimeoutsDisabledWhenTimeoutNotSet(t *testing.T) {
	core, _, cleanup := newTestCore(t, "spout", 1)
	defer cleanup()

	logic := &recordingSpoutLogic{}
	reporter := newTestErrorReporter(&recordingClusterReporter{}, func() {})
	wh := newTestWorkerHandle()
	s := NewSpoutExecutor(core, logic, reporter, wh)

	s.Track(1, "never-expires")
	time.Sleep(10 * time.Millisecond)
	s.scanTimeouts(context.Background())

	_, _, failed := logic.snapshot()
	assert.Empty(t, failed)
	assert.Len(t, s.pending, 1)
}

func TestSpoutExecutor_RunEmitsUntilStopped(t *testing.T) {
	core, _, cleanup := newTestCore(t, "spout", 1)
	defer cleanup()

	logic := &recordingSpoutLogic{}
	reporter := newTestErrorReporter(&recordingClusterReporter{}, func() {})
	wh := newTestWorkerHandle()
	s := NewSpoutExecutor(core, logic, reporter, wh)

	require.NoError(t, s.Open(context.Background(), nil))
	require.NoError(t, s.Start(context.Background()))

	require.Eventually(t, func() bool {
		emitted, _, _ := logic.snapshot()
		return emitted > 0
	}, time.Second, time.Millisecond)

	require.NoError(t, s.Stop(time.Second))
}

func TestSpoutExecutor_NextTupleErrorReportsWithoutStoppingLoop(t *testing.T) {
	core, _, cleanup := newTestCore(t, "spout", 1)
	defer cleanup()

	var mu sync.Mutex
	calls := 0
	logic := &failingNextTupleLogic{
		onNextTuple: func() error {
			mu.Lock()
			calls++
			n := calls
			mu.Unlock()
			if n == 1 {
				return errors.New("transient next-tuple blip")
			}
			return nil
		},
	}
	clusterReporter := &recordingClusterReporter{}
	reporter := newTestErrorReporter(clusterReporter, func() {})
	wh := newTestWorkerHandle()
	s := NewSpoutExecutor(core, logic, reporter, wh)

	require.NoError(t, s.Open(context.Background(), nil))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(time.Second)

	require.Eventually(t, func() bool { return clusterReporter.reportedCount() >= 1 }, time.Second, time.Millisecond)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, time.Second, time.Millisecond)
}

// failingNextTupleLogic lets a test control NextTuple's return per call
// without needing the full recordingSpoutLogic emit-tracking machinery.
type failingNextTupleLogic struct {
	onNextTuple func() error
}

func (f *failingNextTupleLogic) Open(ctx context.Context, t *task.Task, conf map[string]any) error { return nil }
func (f *failingNextTupleLogic) NextTuple(ctx context.Context, t *task.Task) error                  { return f.onNextTuple() }
func (f *failingNextTupleLogic) Ack(ctx context.Context, t *task.Task, msgID any) error              { return nil }
func (f *failingNextTupleLogic) Fail(ctx context.Context, t *task.Task, msgID any) error             { return nil }
func (f *failingNextTupleLogic) Close() error                                                        { return nil }

var _ worker.ClusterStateReporter = (*recordingClusterReporter)(nil)
