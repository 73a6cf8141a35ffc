package grouping

import "github.com/streamkit/executor/tuple"

// localOrShuffleGrouper prefers the downstream task ids that share the
// emitting task's worker, falling back to a plain shuffle across the
// whole downstream set when none do.
type localOrShuffleGrouper struct {
	fallback Grouper
}

// NewLocalOrShuffle returns the Local-or-shuffle grouper kind.
func NewLocalOrShuffle() Grouper {
	return &localOrShuffleGrouper{fallback: NewShuffle(nil)}
}

// Select implements Grouper.
func (g *localOrShuffleGrouper) Select(ctx GroupContext) ([]tuple.TaskID, error) {
	if len(ctx.Downstream) == 0 {
		return nil, nil
	}
	if ctx.TaskWorker == nil || ctx.SourceWorker == "" {
		return g.fallback.Select(ctx)
	}

	local := make([]tuple.TaskID, 0, len(ctx.Downstream))
	for _, id := range ctx.Downstream {
		if ctx.TaskWorker(id) == ctx.SourceWorker {
			local = append(local, id)
		}
	}
	if len(local) == 0 {
		return g.fallback.Select(ctx)
	}

	localCtx := ctx
	localCtx.Downstream = local
	return g.fallback.Select(localCtx)
}
