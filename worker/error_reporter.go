package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/streamkit/executor/errors"
	"github.com/streamkit/executor/tuple"
)

// ErrorReporter implements ReportError/ReportErrorAndDie against a
// ClusterStateReporter, rate-limiting how often it actually calls
// through. It reuses errors.RetryConfig's InitialDelay field as a
// rate-limit window rather than a backoff schedule, so callers don't
// need a second small config type just to express "don't report more
// often than every N seconds".
type ErrorReporter struct {
	reporter ClusterStateReporter
	window   time.Duration
	suicide  func()
	logger   *slog.Logger

	stormID     string
	componentID tuple.ComponentID
	host        string
	port        int

	mu         sync.Mutex
	lastReport time.Time
}

// NewErrorReporter constructs an ErrorReporter. window.InitialDelay is
// the minimum spacing between two ReportError calls actually reaching
// reporter; use errors.DefaultRetryConfig() for a sensible default.
// An empty host is reported as-is rather than substituted, per the
// open question decision on hostname lookup fallback.
func NewErrorReporter(reporter ClusterStateReporter, window errors.RetryConfig, stormID string, componentID tuple.ComponentID, host string, port int, suicide func(), logger *slog.Logger) *ErrorReporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ErrorReporter{
		reporter:    reporter,
		window:      window.InitialDelay,
		suicide:     suicide,
		logger:      logger,
		stormID:     stormID,
		componentID: componentID,
		host:        host,
		port:        port,
	}
}

// ReportError forwards err to cluster state for taskID, silently
// dropping it if called again within the rate-limit window. A dropped
// report is not itself an error — it is the rate limit doing its job.
func (r *ErrorReporter) ReportError(ctx context.Context, taskID tuple.TaskID, err error) error {
	if err == nil {
		return nil
	}

	r.mu.Lock()
	now := time.Now()
	if r.window > 0 && !r.lastReport.IsZero() && now.Sub(r.lastReport) < r.window {
		r.mu.Unlock()
		return nil
	}
	r.lastReport = now
	r.mu.Unlock()

	if r.reporter == nil {
		return nil
	}
	if reportErr := r.reporter.ReportError(ctx, r.stormID, r.componentID, taskID, r.host, r.port, err); reportErr != nil {
		r.logger.Error("failed to report error to cluster state",
			"component", r.componentID, "task", taskID, "original_error", err, "report_error", reportErr)
		return reportErr
	}
	return nil
}

// ReportErrorAndDie reports err (best effort — a failed or rate-limited
// report never blocks this) and then always invokes the suicide
// function, per the escalation propagation policy.
func (r *ErrorReporter) ReportErrorAndDie(ctx context.Context, taskID tuple.TaskID, err error) {
	_ = r.ReportError(ctx, taskID, err)
	r.logger.Error("fatal error, invoking suicide", "component", r.componentID, "task", taskID, "error", err)
	if r.suicide != nil {
		r.suicide()
	}
}
