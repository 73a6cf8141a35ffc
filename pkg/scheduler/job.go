package scheduler

import (
	"context"
	"time"
)

// RecurringJob is one independently ticking unit of work. Name
// identifies it in logs, metrics, and Stats; Interval is read once at
// registration time — a job that needs a different interval later
// re-registers under a new name rather than mutating itself in place.
type RecurringJob interface {
	Name() string
	Interval() time.Duration
	Run(ctx context.Context) error
}

// JobStats reports one registered job's delivery counters.
type JobStats struct {
	Name    string
	Invoked int64
	Skipped int64
	Failed  int64
}
