package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/streamkit/executor/queue"
	"github.com/streamkit/executor/tuple"
)

// tickJob publishes a single broadcast tuple carrying freqSecs as its
// only field onto a receive queue every interval. ScheduleSystemTick and
// ScheduleMetricsTick are both built from it, differing only in job
// name and stream name; both take the interval and target queue from
// their caller.
type tickJob struct {
	name     string
	interval time.Duration
	queue    *queue.ReceiveQueue
	stream   string
	freqSecs int
}

func (j *tickJob) Name() string            { return j.name }
func (j *tickJob) Interval() time.Duration { return j.interval }

func (j *tickJob) Run(ctx context.Context) error {
	t := tuple.NewTuple(tuple.SystemTaskID, j.stream, tuple.Values{j.freqSecs})
	return j.queue.PublishContext(ctx, []tuple.AddressedTuple{{Dest: tuple.BROADCAST, Tuple: t}})
}

// ScheduleSystemTick registers the job that delivers __tick tuples to
// every task the executor owns every freqSecs seconds. Callers decide
// whether to register it at all: a system component or a spout with
// message timeouts disabled never gets one, per tuple.IsSystemComponent
// and the component's own configuration.
func ScheduleSystemTick(s *Scheduler, q *queue.ReceiveQueue, freqSecs int) error {
	if freqSecs <= 0 {
		return ErrInvalidInterval
	}
	return s.Register(&tickJob{
		name:     "system-tick",
		interval: time.Duration(freqSecs) * time.Second,
		queue:    q,
		stream:   tuple.SystemTickStream,
		freqSecs: freqSecs,
	})
}

// ScheduleMetricsTick registers the job that delivers __metrics_tick
// tuples every intervalSecs seconds. An executor may register more than
// one of these, one per distinct interval its components declare.
func ScheduleMetricsTick(s *Scheduler, q *queue.ReceiveQueue, intervalSecs int) error {
	if intervalSecs <= 0 {
		return ErrInvalidInterval
	}
	return s.Register(&tickJob{
		name:     fmt.Sprintf("metrics-tick-%ds", intervalSecs),
		interval: time.Duration(intervalSecs) * time.Second,
		queue:    q,
		stream:   tuple.MetricsTickStream,
		freqSecs: intervalSecs,
	})
}
