// Package queue implements the two bounded ring buffers an executor
// moves tuples through: a multi-producer ReceiveQueue feeding its
// event loop, and a single-producer TransferQueue feeding its
// outbound transfer loop. Both are built on the same generic Ring,
// which blocks producers on a full queue, batches deliveries to its
// single consumer, and reports edge-triggered watermark crossings.
package queue
