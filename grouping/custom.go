package grouping

import "github.com/streamkit/executor/tuple"

// NewCustom wraps a user-supplied selection function as a Grouper. The
// registry holds it by value, the same way every other grouper kind is
// held — there is no string-keyed lookup for custom groupers. fn may
// read ctx.Load to bias its own selection; that is what makes a custom
// grouper load-aware, there is no separate variant to construct.
func NewCustom(fn func(ctx GroupContext) ([]tuple.TaskID, error)) Grouper {
	return GrouperFunc(fn)
}
