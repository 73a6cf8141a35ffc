package executor

import (
	"sync"

	execerrors "github.com/streamkit/executor/errors"
	"github.com/streamkit/executor/tuple"
)

// Metric is one registered gauge's pull interface: IMetric's
// getValueAndReset narrowed to the single method metrics_tick needs. A
// nil return means "nothing to report this interval", matching the
// original's null-skip behavior.
type Metric interface {
	ValueAndReset() any
}

// MetricFunc adapts a plain function to Metric.
type MetricFunc func() any

// ValueAndReset implements Metric.
func (f MetricFunc) ValueAndReset() any { return f() }

// DataPoint is one (name, value) pair collected for a metrics tick.
type DataPoint struct {
	Name  string
	Value any
}

// TaskInfo identifies the task a metrics tick's data points came from.
type TaskInfo struct {
	Host          string
	Port          int
	ComponentID   tuple.ComponentID
	TaskID        tuple.TaskID
	TimestampSecs int64
	IntervalSecs  int
}

// metricRegistry is intervalToTaskToMetricToRegistry: every metric a
// task has registered, indexed by the reporting interval it belongs to.
// Registration is expected to finish before SetupMetrics runs — the
// idempotence guard on setupDone exists to catch a registration that
// arrives late rather than let it silently become inert.
type metricRegistry struct {
	mu         sync.RWMutex
	byInterval map[int]map[tuple.TaskID]map[string]Metric
	setupDone  bool
}

func newMetricRegistry() *metricRegistry {
	return &metricRegistry{byInterval: make(map[int]map[tuple.TaskID]map[string]Metric)}
}

// register adds m under (intervalSecs, taskID, name), rejecting the
// call once SetupMetrics has already run.
func (r *metricRegistry) register(intervalSecs int, taskID tuple.TaskID, name string, m Metric) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.setupDone {
		return execerrors.NewExecError(execerrors.ConfigErrorKind, ErrMetricsAlreadySetUp,
			"Core", "RegisterMetric", name)
	}

	byTask, ok := r.byInterval[intervalSecs]
	if !ok {
		byTask = make(map[tuple.TaskID]map[string]Metric)
		r.byInterval[intervalSecs] = byTask
	}
	byName, ok := byTask[taskID]
	if !ok {
		byName = make(map[string]Metric)
		byTask[taskID] = byName
	}
	byName[name] = m
	return nil
}

// intervals returns every distinct interval with at least one
// registration, the set setupMetrics schedules a recurring job for.
func (r *metricRegistry) intervals() []int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]int, 0, len(r.byInterval))
	for interval := range r.byInterval {
		out = append(out, interval)
	}
	return out
}

// dataPoints collects every non-nil value for (intervalSecs, taskID).
func (r *metricRegistry) dataPoints(intervalSecs int, taskID tuple.TaskID) []DataPoint {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byTask, ok := r.byInterval[intervalSecs]
	if !ok {
		return nil
	}
	byName, ok := byTask[taskID]
	if !ok {
		return nil
	}

	points := make([]DataPoint, 0, len(byName))
	for name, m := range byName {
		if v := m.ValueAndReset(); v != nil {
			points = append(points, DataPoint{Name: name, Value: v})
		}
	}
	return points
}

// markSetupDone flips the idempotence guard, failing if it was already
// flipped.
func (r *metricRegistry) markSetupDone() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.setupDone {
		return execerrors.NewExecError(execerrors.ConfigErrorKind, ErrMetricsAlreadySetUp,
			"Core", "SetupMetrics", "idempotent guard")
	}
	r.setupDone = true
	return nil
}
