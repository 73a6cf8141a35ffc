package executor

import (
	"github.com/streamkit/executor/pkg/scheduler"
	"github.com/streamkit/executor/queue"
)

// MetricsScheduler adapts the worker-wide tick scheduler to what
// SetupMetrics needs: schedule one recurring __metrics_tick job per
// distinct interval, without the executor package depending on
// scheduler.Scheduler's full registration surface directly in its
// exported API.
type MetricsScheduler struct {
	s *scheduler.Scheduler
}

// NewMetricsScheduler wraps s for use by SetupMetrics.
func NewMetricsScheduler(s *scheduler.Scheduler) *MetricsScheduler {
	return &MetricsScheduler{s: s}
}

func (m *MetricsScheduler) scheduleMetricsTick(q *queue.ReceiveQueue, intervalSecs int) error {
	return scheduler.ScheduleMetricsTick(m.s, q, intervalSecs)
}
