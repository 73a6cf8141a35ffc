package nats

import (
	"context"
	"log/slog"

	"github.com/streamkit/executor/queue"
	"github.com/streamkit/executor/transfer"
	"github.com/streamkit/executor/tuple"
)

// Receiver subscribes to one worker's own subject and redelivers every
// decoded AddressedPayload onto that worker's executors' shared
// ReceiveQueue, the inbound half of the transport Sender drives
// outbound. It is the only thing in this module that turns wire bytes
// back into tuple.AddressedTuple values.
type Receiver struct {
	client *Client
	self   transfer.WorkerAddress
	recv   *queue.ReceiveQueue
	logger *slog.Logger
}

// NewReceiver constructs a Receiver that will deliver onto recv once
// Start is called.
func NewReceiver(client *Client, self transfer.WorkerAddress, recv *queue.ReceiveQueue, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{client: client, self: self, recv: recv, logger: logger}
}

// Start subscribes to self's subject. The subscription is torn down
// when ctx is canceled.
func (r *Receiver) Start(ctx context.Context) error {
	return r.client.Subscribe(ctx, Subject(r.self), func(ctx context.Context, data []byte) {
		batch, latency, err := decodeBatch(data)
		if err != nil {
			r.logger.Error("failed to decode inbound transfer batch", "error", err)
			return
		}
		r.logger.Debug("inbound transfer batch decoded", "size", len(batch), "wire_latency", latency)

		addressed := make([]tuple.AddressedTuple, len(batch))
		for i, p := range batch {
			addressed[i] = tuple.AddressedTuple{Dest: p.Dest, Tuple: p.Tuple}
		}

		if err := r.recv.PublishContext(ctx, addressed); err != nil {
			r.logger.Error("failed to publish inbound batch to receive queue", "error", err)
		}
	})
}
