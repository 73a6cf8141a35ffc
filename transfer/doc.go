// Package transfer implements ExecutorTransfer: the staging layer
// between a task emitting a tuple and the outbound worker-to-worker
// transport. Transfer accepts (destination task, tuple) pairs from any
// number of goroutines onto a multi-producer staging ring; a single
// drain loop resolves each destination to its owning worker, batches by
// worker, and publishes those batches onto a single-producer transfer
// queue. A Sender on the far end of that queue is the only thing that
// ever calls out to a real transport — ExecutorTransfer itself knows
// nothing about NATS or any other wire protocol, only the Resolver and
// TransferFn function types a transport package supplies.
package transfer
