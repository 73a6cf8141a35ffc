package grouping

import (
	"sort"
	"sync"

	"github.com/streamkit/executor/tuple"
)

// target pairs one subscribing component with the grouper compiled for
// it on a given stream.
type target struct {
	component tuple.ComponentID
	grouper   Grouper
}

// GrouperRegistry holds the compiled grouper for every (stream,
// downstream component) pair a component declares, built once from the
// topology at construction time and consulted on every emit thereafter.
type GrouperRegistry struct {
	mu       sync.RWMutex
	declared map[string]bool
	targets  map[string][]target
}

// NewGrouperRegistry returns an empty registry. Callers populate it
// with Declare and AddTarget while walking the topology's outgoing
// stream declarations.
func NewGrouperRegistry() *GrouperRegistry {
	return &GrouperRegistry{
		declared: make(map[string]bool),
		targets:  make(map[string][]target),
	}
}

// Declare records stream as a declared outgoing stream even if no
// target is ever added for it, so Resolve can tell "no subscribers"
// apart from "unknown stream".
func (r *GrouperRegistry) Declare(stream string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.declared[stream] = true
}

// AddTarget compiles one (stream, component) subscription into the
// registry, in the order components are declared for that stream.
func (r *GrouperRegistry) AddTarget(stream string, component tuple.ComponentID, grouper Grouper) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.declared[stream] = true
	r.targets[stream] = append(r.targets[stream], target{component: component, grouper: grouper})
}

// HasSubscribers reports whether stream has at least one downstream
// component registered.
func (r *GrouperRegistry) HasSubscribers(stream string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.targets[stream]) > 0
}

// Resolve returns the destination task ids for emitting values on
// stream, in component-declaration order, flattening each subscribing
// component's grouper output. downstreamByComponent supplies the live
// task ids for each subscribing component; Resolve sorts each slice
// ascending before handing it to a grouper so deterministic groupers
// agree on "lowest" and "slot N".
//
// A stream with no subscribers returns an empty, non-error result —
// that is the null-entry case the registry represents implicitly by
// having no targets for it.
func (r *GrouperRegistry) Resolve(
	stream string,
	values tuple.Values,
	downstreamByComponent map[tuple.ComponentID][]tuple.TaskID,
	groupCtx GroupContext,
) ([]tuple.TaskID, error) {
	r.mu.RLock()
	targets := append([]target(nil), r.targets[stream]...)
	r.mu.RUnlock()

	if len(targets) == 0 {
		return nil, nil
	}

	var out []tuple.TaskID
	for _, t := range targets {
		downstream := append([]tuple.TaskID(nil), downstreamByComponent[t.component]...)
		sort.Slice(downstream, func(i, j int) bool { return downstream[i] < downstream[j] })

		ctx := groupCtx
		ctx.Stream = stream
		ctx.Values = values
		ctx.Downstream = downstream

		ids, err := t.grouper.Select(ctx)
		if err != nil {
			return nil, err
		}
		out = append(out, ids...)
	}
	return out, nil
}
