package worker

import (
	"context"

	"github.com/streamkit/executor/tuple"
)

// ClusterStateReporter is IStormClusterState narrowed to the one
// operation this module needs: recording a task error keyed by
// (storm_id, component_id, task_id, host, port).
type ClusterStateReporter interface {
	ReportError(ctx context.Context, stormID string, componentID tuple.ComponentID, taskID tuple.TaskID, host string, port int, err error) error
}
