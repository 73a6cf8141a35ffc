package executor

import (
	"context"

	"github.com/streamkit/executor/task"
	"github.com/streamkit/executor/tuple"
)

// SpoutLogic is the user-facing capability set a spout component
// implements: {open, next_tuple, ack, fail, close} from the design
// note's capability-set framing.
type SpoutLogic interface {
	Open(ctx context.Context, t *task.Task, conf map[string]any) error
	NextTuple(ctx context.Context, t *task.Task) error
	Ack(ctx context.Context, t *task.Task, msgID any) error
	Fail(ctx context.Context, t *task.Task, msgID any) error
	Close() error
}

// BoltLogic is the user-facing capability set a bolt component
// implements: {prepare, execute, close}.
type BoltLogic interface {
	Prepare(ctx context.Context, t *task.Task, conf map[string]any) error
	Execute(ctx context.Context, t *task.Task, tup tuple.Tuple) error
	Close() error
}

// Kind tags which variant of the ComponentLogic sum type is populated.
type Kind int

const (
	// SpoutKind marks a ComponentLogic carrying SpoutLogic.
	SpoutKind Kind = iota
	// BoltKind marks a ComponentLogic carrying BoltLogic.
	BoltKind
)

// ComponentLogic is the sum type from design note §9, replacing the
// dynamic dispatch the original Executor hierarchy used: exactly one
// of Spout or Bolt is populated, selected by Kind.
type ComponentLogic struct {
	Kind  Kind
	Spout SpoutLogic
	Bolt  BoltLogic
}

// NewSpoutLogic wraps a SpoutLogic as a ComponentLogic.
func NewSpoutLogic(s SpoutLogic) ComponentLogic {
	return ComponentLogic{Kind: SpoutKind, Spout: s}
}

// NewBoltLogic wraps a BoltLogic as a ComponentLogic.
func NewBoltLogic(b BoltLogic) ComponentLogic {
	return ComponentLogic{Kind: BoltKind, Bolt: b}
}
