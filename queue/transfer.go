package queue

// TransferQueue is the single-producer ring an ExecutorTransfer drain
// loop publishes batches onto; that drain goroutine, not the event
// handler thread, is its only producer, so it is safe to batch without the
// cross-goroutine interleaving a ReceiveQueue has to tolerate. T is
// whatever batch shape the transfer layer groups tuples into (by
// destination worker, typically).
type TransferQueue[T any] = Ring[T]

// NewTransferQueue allocates a TransferQueue of the given capacity.
func NewTransferQueue[T any](capacity int, opts ...Option[T]) *TransferQueue[T] {
	return NewRing[T](capacity, opts...)
}
