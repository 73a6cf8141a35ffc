package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/streamkit/executor/metric"
)

// Scheduler runs a fixed set of RecurringJobs, each on its own
// time.Ticker goroutine, for as long as it is started. Unlike a worker
// pool there is no shared queue: a job that is still running when its
// next tick arrives has that tick skipped rather than queued, so a slow
// job never builds up a backlog of deferred runs.
type Scheduler struct {
	logger  *slog.Logger
	metrics *metric.Metrics

	lifecycleMu sync.Mutex
	started     bool
	stopped     bool
	runners     []*jobRunner
	wg          sync.WaitGroup
	cancel      context.CancelFunc
}

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithLogger overrides the default logger, slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables tick-latency reporting for every job this
// scheduler runs, labeled by job name.
func WithMetrics(m *metric.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler constructs an unstarted Scheduler. Jobs must be
// registered with Register before Start.
func NewScheduler(opts ...Option) *Scheduler {
	s := &Scheduler{
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register adds job to the set this scheduler will run. It must be
// called before Start; registering after Start returns ErrJobAfterStart.
func (s *Scheduler) Register(job RecurringJob) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if job == nil {
		return ErrNilJob
	}
	if job.Interval() <= 0 {
		return ErrInvalidInterval
	}
	if s.started {
		return ErrJobAfterStart
	}

	s.runners = append(s.runners, &jobRunner{job: job, scheduler: s})
	return nil
}

// Start launches one ticker goroutine per registered job. It returns
// immediately; jobs keep running until ctx is canceled or Stop is
// called.
func (s *Scheduler) Start(ctx context.Context) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if s.started {
		return ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, r := range s.runners {
		s.wg.Add(1)
		go func(r *jobRunner) {
			defer s.wg.Done()
			r.loop(runCtx)
		}(r)
	}

	s.started = true
	return nil
}

// Stop cancels every job's ticker loop and waits up to timeout for
// in-flight invocations to return. A zero in-flight invocation that
// never returns causes Stop to report ErrStopTimeout without forcibly
// killing the goroutine running it.
func (s *Scheduler) Stop(timeout time.Duration) error {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	if !s.started {
		return ErrNotStarted
	}
	if s.stopped {
		return nil
	}

	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		s.stopped = true
		return nil
	case <-timer.C:
		return ErrStopTimeout
	}
}

// Stats returns a snapshot of every registered job's delivery counters.
func (s *Scheduler) Stats() []JobStats {
	s.lifecycleMu.Lock()
	defer s.lifecycleMu.Unlock()

	stats := make([]JobStats, len(s.runners))
	for i, r := range s.runners {
		stats[i] = JobStats{
			Name:    r.job.Name(),
			Invoked: atomic.LoadInt64(&r.invoked),
			Skipped: atomic.LoadInt64(&r.skipped),
			Failed:  atomic.LoadInt64(&r.failed),
		}
	}
	return stats
}

// jobRunner owns one job's ticker goroutine and its at-most-one-
// outstanding-invocation bookkeeping.
type jobRunner struct {
	job       RecurringJob
	scheduler *Scheduler

	inFlight atomic.Bool
	invoked  int64
	skipped  int64
	failed   int64
}

// loop fires job.Run at most once per tick, skipping a tick that
// arrives while the previous invocation is still in flight rather than
// letting it queue up.
func (r *jobRunner) loop(ctx context.Context) {
	ticker := time.NewTicker(r.job.Interval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case due := <-ticker.C:
			if !r.inFlight.CompareAndSwap(false, true) {
				atomic.AddInt64(&r.skipped, 1)
				r.scheduler.logger.Warn("tick skipped, previous invocation still running",
					"job", r.job.Name())
				continue
			}
			r.scheduler.wg.Add(1)
			go r.invoke(ctx, due)
		}
	}
}

// invoke runs one job invocation and clears the in-flight flag when it
// returns, regardless of outcome.
func (r *jobRunner) invoke(ctx context.Context, due time.Time) {
	defer r.scheduler.wg.Done()
	defer r.inFlight.Store(false)

	atomic.AddInt64(&r.invoked, 1)
	err := r.job.Run(ctx)
	if r.scheduler.metrics != nil {
		r.scheduler.metrics.RecordTickLatency(r.job.Name(), time.Since(due))
	}
	if err != nil {
		atomic.AddInt64(&r.failed, 1)
		r.scheduler.logger.Error("job invocation failed", "job", r.job.Name(), "error", err)
	}
}
