package worker

import (
	"sync/atomic"

	"github.com/streamkit/executor/tuple"
)

// DebugOptions mirrors the per-component (or per-topology) event-logger
// debug setting: whether sampled tuples should be forwarded at all, and
// at what percentage.
type DebugOptions struct {
	Enabled     bool
	SamplingPct float64
}

// WorkerHandle is the explicit collaborator value an executor takes
// from its worker process, per the design note on shared mutable
// atomics: typed slots instead of a heterogeneous string-keyed map.
// StormActive and ThrottleOn are read-only from the executor's side —
// the worker process is the sole writer — and ComponentDebug is swapped
// wholesale rather than mutated key-by-key, so every field here is safe
// for concurrent reads without a lock.
type WorkerHandle struct {
	active  atomic.Bool
	throttle atomic.Bool
	debug   atomic.Pointer[map[tuple.ComponentID]DebugOptions]

	taskToComponent map[tuple.TaskID]tuple.ComponentID // immutable after construction
	stormID         string
}

// NewWorkerHandle constructs a handle with storm_active true and
// throttle clear, matching a freshly started worker.
func NewWorkerHandle(stormID string, taskToComponent map[tuple.TaskID]tuple.ComponentID) *WorkerHandle {
	w := &WorkerHandle{
		taskToComponent: taskToComponent,
		stormID:         stormID,
	}
	w.active.Store(true)
	empty := map[tuple.ComponentID]DebugOptions{}
	w.debug.Store(&empty)
	return w
}

// Active reports storm_active.
func (w *WorkerHandle) Active() bool { return w.active.Load() }

// SetActive is the worker-side write to storm_active.
func (w *WorkerHandle) SetActive(active bool) { w.active.Store(active) }

// ThrottleOn reports throttle_on.
func (w *WorkerHandle) ThrottleOn() bool { return w.throttle.Load() }

// SetThrottle is the worker-side write to throttle_on.
func (w *WorkerHandle) SetThrottle(on bool) { w.throttle.Store(on) }

// SetComponentDebug replaces the whole component-debug map atomically,
// the way nimbus pushing a new debug configuration would.
func (w *WorkerHandle) SetComponentDebug(m map[tuple.ComponentID]DebugOptions) {
	if m == nil {
		m = map[tuple.ComponentID]DebugOptions{}
	}
	w.debug.Store(&m)
}

// ComponentDebug resolves componentID's debug options, falling back to
// a topology-wide entry keyed by this worker's storm id when no
// per-component entry is set.
func (w *WorkerHandle) ComponentDebug(componentID tuple.ComponentID) DebugOptions {
	m := *w.debug.Load()
	if opts, ok := m[componentID]; ok {
		return opts
	}
	if opts, ok := m[tuple.ComponentID(w.stormID)]; ok {
		return opts
	}
	return DebugOptions{}
}

// TaskComponent looks up the component a task id belongs to.
func (w *WorkerHandle) TaskComponent(taskID tuple.TaskID) (tuple.ComponentID, bool) {
	c, ok := w.taskToComponent[taskID]
	return c, ok
}
