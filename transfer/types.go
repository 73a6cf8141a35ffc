package transfer

import (
	"context"

	"github.com/streamkit/executor/tuple"
)

// WorkerAddress identifies the worker process that owns a task id, in
// whatever form the transport layer understands (host:port, a NATS
// subject prefix, a cluster member id).
type WorkerAddress string

// Resolver maps a destination task id to the worker address that owns
// it. The core package only ever sees this function type; a transport
// package supplies the concrete lookup (backed by the worker's static
// task-to-address map).
type Resolver func(dest tuple.TaskID) WorkerAddress

// TransferFn hands a batch of tuples for one worker off to the wire. A
// transport package supplies the concrete implementation; the core
// package only calls through the type.
type TransferFn func(ctx context.Context, worker WorkerAddress, batch []AddressedPayload) error

// AddressedPayload is one staged (destination, tuple) pair as it
// travels from Transfer through to a Sender's TransferFn call.
type AddressedPayload struct {
	Dest  tuple.TaskID
	Tuple tuple.Tuple
}

// WorkerBatch groups addressed payloads bound for the same worker, the
// unit ExecutorTransfer's drain loop publishes onto the transfer queue.
type WorkerBatch struct {
	Worker  WorkerAddress
	Payload []AddressedPayload
}
