package grouping

import "github.com/streamkit/executor/tuple"

// LoadFeedback reports a task's current load, on whatever scale the
// caller finds meaningful (queue depth, utilization, in-flight count).
// A load-aware grouper biases selection toward tasks this reports as
// less loaded, without itself tracking anything — it is a pure
// snapshot function.
type LoadFeedback func(tuple.TaskID) float64

// GroupContext carries everything a Grouper needs to pick destinations
// for one emit. Downstream is always sorted ascending by task id so
// that deterministic groupers (Global, Fields) agree on "lowest" and
// "slot N" regardless of declaration order.
type GroupContext struct {
	Stream     string
	Values     tuple.Values
	Downstream []tuple.TaskID

	// ExplicitDest is the task id the emitter asked for directly; only
	// the Direct grouper reads it.
	ExplicitDest tuple.TaskID
	HasExplicit  bool

	// SourceWorker and TaskWorker let Local-or-shuffle tell which
	// downstream tasks share the emitting task's worker process.
	SourceWorker string
	TaskWorker   func(tuple.TaskID) string

	// Load is the optional feedback a load-aware grouper consults.
	Load LoadFeedback
}

// Grouper selects the downstream task ids one emitted tuple should be
// routed to. A Grouper must return a non-empty list whenever Downstream
// is non-empty; an empty Downstream yields an empty result rather than
// an error, since that represents a declared stream with no
// subscribing component.
type Grouper interface {
	Select(ctx GroupContext) ([]tuple.TaskID, error)
}

// GrouperFunc adapts a plain function to the Grouper interface, the way
// a user registers a Custom grouper by value rather than by name.
type GrouperFunc func(ctx GroupContext) ([]tuple.TaskID, error)

// Select implements Grouper.
func (f GrouperFunc) Select(ctx GroupContext) ([]tuple.TaskID, error) { return f(ctx) }
