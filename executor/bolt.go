package executor

import (
	"context"
	"time"

	execerrors "github.com/streamkit/executor/errors"
	"github.com/streamkit/executor/tuple"
	"github.com/streamkit/executor/worker"
)

// BoltExecutor drives a Core whose tuple_action dispatches on the
// incoming tuple's stream id, per §4.8: metrics-tick tuples are
// serviced by the core, while system ticks and everything else reach
// the user's Execute. The core never auto-acks — acking or failing a tuple is the
// user bolt's own responsibility, out of scope for this executor.
type BoltExecutor struct {
	core     *Core
	logic    BoltLogic
	reporter *worker.ErrorReporter
}

// NewBoltExecutor wires logic's Execute into core's dispatch loop and
// returns the specialization ready for core.Start.
func NewBoltExecutor(core *Core, logic BoltLogic, reporter *worker.ErrorReporter) *BoltExecutor {
	b := &BoltExecutor{core: core, logic: logic, reporter: reporter}
	core.Action = b.tupleAction
	return b
}

// Prepare calls logic.Prepare for every task this executor owns, the
// bolt analogue of open_or_prepare_was_called.
func (b *BoltExecutor) Prepare(ctx context.Context, conf map[string]any) error {
	for _, id := range b.core.TaskIDs() {
		t, _ := b.core.Task(id)
		if err := b.logic.Prepare(ctx, t, conf); err != nil {
			return execerrors.NewExecError(execerrors.FatalKind, err, "BoltExecutor", "Prepare", string(t.ComponentID()))
		}
	}
	return nil
}

// Start launches the underlying core's event loop. Prepare must be
// called first.
func (b *BoltExecutor) Start(ctx context.Context) error { return b.core.Start(ctx) }

// Stop stops the underlying core's event loop and closes logic.
func (b *BoltExecutor) Stop(timeout time.Duration) error {
	err := b.core.Stop(timeout)
	if closeErr := b.logic.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func (b *BoltExecutor) tupleAction(ctx context.Context, taskID tuple.TaskID, tup tuple.Tuple) error {
	t, ok := b.core.Task(taskID)
	if !ok {
		b.core.logger.Warn("tuple addressed to unknown task, dropping", "task", taskID, "stream", tup.SourceStreamID)
		return nil
	}

	switch tup.SourceStreamID {
	case tuple.MetricsTickStream:
		if err := b.core.MetricsTick(ctx, t, tup); err != nil {
			_ = b.reporter.ReportError(ctx, taskID, err)
		}
		return nil

	case tuple.SystemTickStream:
		if b.core.metrics != nil {
			b.core.metrics.RecordTupleProcessed(string(t.ComponentID()), tup.SourceStreamID)
		}
		if err := b.logic.Execute(ctx, t, tup); err != nil {
			b.reportUserError(ctx, taskID, err)
		}
		return nil

	default:
		if err := b.logic.Execute(ctx, t, tup); err != nil {
			b.reportUserError(ctx, taskID, err)
		}
		return nil
	}
}

// reportUserError escalates to ReportErrorAndDie when err is declared
// fatal, otherwise reports and keeps the executor running, per §7's
// user-logic-error propagation policy.
func (b *BoltExecutor) reportUserError(ctx context.Context, taskID tuple.TaskID, err error) {
	wrapped := execerrors.NewExecError(execerrors.UserLogicErrorKind, err, "BoltExecutor", "Execute", "")
	if execerrors.IsFatal(err) {
		b.reporter.ReportErrorAndDie(ctx, taskID, wrapped)
		return
	}
	_ = b.reporter.ReportError(ctx, taskID, wrapped)
}
