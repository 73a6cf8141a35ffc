package main

import (
	"context"
	"log/slog"

	"github.com/streamkit/executor/tuple"
)

// slogClusterReporter stands in for the cluster state store a real
// worker process would report task errors to: it just logs. A demo
// process has no Nimbus or ZooKeeper to report against.
type slogClusterReporter struct {
	logger *slog.Logger
}

func (r *slogClusterReporter) ReportError(ctx context.Context, stormID string, componentID tuple.ComponentID, taskID tuple.TaskID, host string, port int, err error) error {
	r.logger.Error("task error reported",
		"storm_id", stormID, "component", componentID, "task", taskID, "error", err)
	return nil
}
