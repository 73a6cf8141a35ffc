package grouping

import (
	"sync/atomic"

	"github.com/streamkit/executor/tuple"
)

// shuffleGrouper round-robins across the downstream task ids. With a
// LoadFeedback configured, each selection instead scans the downstream
// set once starting from the round-robin cursor and picks the least
// loaded task. The cursor only decides between equally loaded tasks, so
// a task that keeps reporting a higher load than another is not chosen.
type shuffleGrouper struct {
	cursor uint64
	load   LoadFeedback
}

// NewShuffle returns a Grouper implementing both the Shuffle and None
// kinds, which share the same semantics. A nil load is plain
// round-robin.
func NewShuffle(load LoadFeedback) Grouper {
	return &shuffleGrouper{load: load}
}

// Select implements Grouper.
func (g *shuffleGrouper) Select(ctx GroupContext) ([]tuple.TaskID, error) {
	n := len(ctx.Downstream)
	if n == 0 {
		return nil, nil
	}

	start := int(atomic.AddUint64(&g.cursor, 1)-1) % n
	if g.load == nil {
		return []tuple.TaskID{ctx.Downstream[start]}, nil
	}

	best := ctx.Downstream[start]
	bestLoad := g.load(best)
	for i := 1; i < n; i++ {
		candidate := ctx.Downstream[(start+i)%n]
		if l := g.load(candidate); l < bestLoad {
			best, bestLoad = candidate, l
		}
	}
	return []tuple.TaskID{best}, nil
}
