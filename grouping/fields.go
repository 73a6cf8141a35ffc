package grouping

import (
	"fmt"
	"hash/fnv"

	"github.com/streamkit/executor/tuple"
)

// fieldsGrouper routes deterministically by hashing the selected field
// values modulo the downstream task count, so every tuple carrying the
// same field values lands on the same task id for the lifetime of the
// downstream set.
type fieldsGrouper struct {
	fieldIndexes []int
}

// NewFields returns a Grouper selecting on the given field indexes.
func NewFields(fieldIndexes ...int) Grouper {
	return &fieldsGrouper{fieldIndexes: fieldIndexes}
}

// Select implements Grouper.
func (g *fieldsGrouper) Select(ctx GroupContext) ([]tuple.TaskID, error) {
	n := len(ctx.Downstream)
	if n == 0 {
		return nil, nil
	}

	h := fnv.New32a()
	for _, idx := range g.fieldIndexes {
		var v any
		if idx >= 0 && idx < len(ctx.Values) {
			v = ctx.Values[idx]
		}
		fmt.Fprintf(h, "%v\x00", v)
	}

	slot := int(h.Sum32() % uint32(n))
	return []tuple.TaskID{ctx.Downstream[slot]}, nil
}
