package queue

import "github.com/streamkit/executor/tuple"

// ReceiveQueue is the multi-producer ring an executor's event loop
// consumes from. Any task's emit path, the tick scheduler, and the
// metrics tick scheduler may publish to it concurrently; only the
// executor's own event loop goroutine calls Consume.
type ReceiveQueue = Ring[tuple.AddressedTuple]

// NewReceiveQueue allocates a ReceiveQueue of the given capacity.
func NewReceiveQueue(capacity int, opts ...Option[tuple.AddressedTuple]) *ReceiveQueue {
	return NewRing[tuple.AddressedTuple](capacity, opts...)
}
