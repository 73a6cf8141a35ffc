package grouping

import "github.com/streamkit/executor/tuple"

// directGrouper routes to the task id the emitter explicitly asked
// for, after validating it is actually a subscriber of this stream.
type directGrouper struct{}

// NewDirect returns the Direct grouper kind.
func NewDirect() Grouper { return directGrouper{} }

// Select implements Grouper.
func (directGrouper) Select(ctx GroupContext) ([]tuple.TaskID, error) {
	if len(ctx.Downstream) == 0 {
		return nil, nil
	}
	if !ctx.HasExplicit {
		return nil, ErrNoExplicitDest
	}
	for _, id := range ctx.Downstream {
		if id == ctx.ExplicitDest {
			return []tuple.TaskID{id}, nil
		}
	}
	return nil, ErrDestNotSubscribed
}
