package nats

import (
	"context"

	"github.com/streamkit/executor/transfer"
)

// TransferFn adapts c into a transfer.TransferFn: one worker's batch
// becomes one JSON-encoded NATS publish to that worker's subject. A
// transfer.Sender drains ExecutorTransfer's outbound queue and calls
// this once per WorkerBatch.
func (c *Client) TransferFn() transfer.TransferFn {
	return func(ctx context.Context, worker transfer.WorkerAddress, batch []transfer.AddressedPayload) error {
		data, err := encodeBatch(batch)
		if err != nil {
			return err
		}
		return c.Publish(ctx, Subject(worker), data)
	}
}
