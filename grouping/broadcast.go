package grouping

import "github.com/streamkit/executor/tuple"

// allGrouper fans a tuple out to every downstream task id.
type allGrouper struct{}

// NewAll returns the All grouper kind.
func NewAll() Grouper { return allGrouper{} }

// Select implements Grouper.
func (allGrouper) Select(ctx GroupContext) ([]tuple.TaskID, error) {
	if len(ctx.Downstream) == 0 {
		return nil, nil
	}
	out := make([]tuple.TaskID, len(ctx.Downstream))
	copy(out, ctx.Downstream)
	return out, nil
}

// globalGrouper always routes to the lowest downstream task id,
// concentrating every tuple on one designated task.
type globalGrouper struct{}

// NewGlobal returns the Global grouper kind.
func NewGlobal() Grouper { return globalGrouper{} }

// Select implements Grouper. Downstream is sorted ascending by the
// registry before a grouper ever sees it, so the first element is the
// lowest task id.
func (globalGrouper) Select(ctx GroupContext) ([]tuple.TaskID, error) {
	if len(ctx.Downstream) == 0 {
		return nil, nil
	}
	return []tuple.TaskID{ctx.Downstream[0]}, nil
}
