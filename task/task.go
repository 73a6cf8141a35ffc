package task

import (
	"context"

	"github.com/streamkit/executor/grouping"
	"github.com/streamkit/executor/transfer"
	"github.com/streamkit/executor/tuple"
)

// Task binds one task id to the groupers and transfer staging it needs
// to emit. The downstream task-id sets and grouper registry it holds
// are immutable snapshots taken at construction — per the executor's
// own lifecycle contract, idToTask and stream_to_component_to_grouper
// never change after initialization.
type Task struct {
	id          tuple.TaskID
	componentID tuple.ComponentID

	groupers   *grouping.GrouperRegistry
	downstream map[tuple.ComponentID][]tuple.TaskID

	transfer *transfer.ExecutorTransfer

	resolveWorker transfer.Resolver
	sourceWorker  transfer.WorkerAddress
	load          grouping.LoadFeedback

	stats *Stats
}

// Option configures a Task at construction time.
type Option func(*Task)

// WithWorkerTopology supplies the task's own worker address and the
// resolver used to tell which downstream tasks share it, enabling
// Local-or-shuffle groupers to prefer same-worker destinations.
func WithWorkerTopology(source transfer.WorkerAddress, resolve transfer.Resolver) Option {
	return func(t *Task) {
		t.sourceWorker = source
		t.resolveWorker = resolve
	}
}

// WithLoadFeedback supplies GroupContext.Load for this task's emits,
// which a Custom grouper may read. A Shuffle grouper does not consult
// it; its load comes from the LoadFeedback given to NewShuffle.
func WithLoadFeedback(load grouping.LoadFeedback) Option {
	return func(t *Task) {
		t.load = load
	}
}

// NewTask constructs a Task and immediately emits its startup notice on
// the system stream via send_unanchored, before the caller inserts it
// into the executor's task map — so no consumer can observe a task id
// that has not yet announced itself. A grouper registry with no target
// registered for the system stream makes the notice a silent no-op,
// which is the expected shape when no tracker subscribes to it.
func NewTask(
	ctx context.Context,
	id tuple.TaskID,
	componentID tuple.ComponentID,
	groupers *grouping.GrouperRegistry,
	downstream map[tuple.ComponentID][]tuple.TaskID,
	xfer *transfer.ExecutorTransfer,
	opts ...Option,
) (*Task, error) {
	t := &Task{
		id:          id,
		componentID: componentID,
		groupers:    groupers,
		downstream:  downstream,
		transfer:    xfer,
		stats:       newStats(),
	}
	for _, opt := range opts {
		opt(t)
	}

	if _, err := t.emit(ctx, tuple.SystemStream, tuple.Values{"startup"}, nil); err != nil {
		return nil, err
	}
	return t, nil
}

// ID returns the task id this Task owns.
func (t *Task) ID() tuple.TaskID { return t.id }

// ComponentID returns the component this task is an instance of.
func (t *Task) ComponentID() tuple.ComponentID { return t.componentID }

// Stats returns a snapshot of per-stream emit counts.
func (t *Task) Stats() map[string]int64 { return t.stats.Snapshot() }

// MakeTuple stamps a tuple from this task's identity: source task id,
// stream, and — when anchors is non-empty — the anchor context a
// downstream ACK tracker (out of this module's scope) would use to
// link the new tuple to the in-flight message(s) it descends from. A
// single anchor is stamped as-is; more than one is stamped as a slice,
// mirroring how Storm's multi-anchor emit carries a set of root ids.
func (t *Task) MakeTuple(stream string, values tuple.Values, anchors []any) tuple.Tuple {
	tup := tuple.NewTuple(t.id, stream, values)
	switch len(anchors) {
	case 0:
	case 1:
		tup = tup.WithMessageID(anchors[0])
	default:
		tup = tup.WithMessageID(anchors)
	}
	return tup
}

// OutgoingTasks resolves the destination task ids for emitting values
// on stream, consulting this task's grouper registry. A stream with no
// subscribers resolves to an empty, non-error result.
func (t *Task) OutgoingTasks(stream string, values tuple.Values) ([]tuple.TaskID, error) {
	ctx := grouping.GroupContext{Load: t.load}
	if t.resolveWorker != nil {
		ctx.SourceWorker = string(t.sourceWorker)
		ctx.TaskWorker = func(id tuple.TaskID) string { return string(t.resolveWorker(id)) }
	}
	return t.groupers.Resolve(stream, values, t.downstream, ctx)
}

// Emit is send_unanchored: compose OutgoingTasks and MakeTuple, and
// stage the result onto ExecutorTransfer for each resolved destination.
// It returns the destinations the tuple was (or would have been, for an
// unsubscribed stream) routed to.
func (t *Task) Emit(ctx context.Context, stream string, values tuple.Values) ([]tuple.TaskID, error) {
	return t.emit(ctx, stream, values, nil)
}

// EmitAnchored is send_anchored: Emit with an anchor context attached
// to the outgoing tuple so a downstream ACK tracker can link it back to
// the in-flight message(s) named in anchors.
func (t *Task) EmitAnchored(ctx context.Context, stream string, values tuple.Values, anchors ...any) ([]tuple.TaskID, error) {
	return t.emit(ctx, stream, values, anchors)
}

func (t *Task) emit(ctx context.Context, stream string, values tuple.Values, anchors []any) ([]tuple.TaskID, error) {
	dests, err := t.OutgoingTasks(stream, values)
	if err != nil {
		return nil, err
	}
	if len(dests) == 0 {
		return dests, nil
	}

	tup := t.MakeTuple(stream, values, anchors)
	t.stats.recordEmit(stream)

	for _, dest := range dests {
		if err := t.transfer.Transfer(ctx, dest, tup); err != nil {
			return dests, err
		}
	}
	return dests, nil
}
