// Package buffer provides a thread-safe, fixed-capacity circular buffer
// with configurable overflow policy and always-on statistics.
//
// # Quick Start
//
//	buf, err := buffer.NewCircularBuffer[int](1000)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = buf.Write(42)
//	value, ok := buf.Read()
//
// With an overflow policy and metrics:
//
//	buf, err := buffer.NewCircularBuffer[[]byte](5000,
//		buffer.WithOverflowPolicy[[]byte](buffer.DropOldest),
//		buffer.WithMetrics[[]byte](registry, "recent_words"),
//	)
//
// # Overflow Policies
//
//   - DropOldest: remove the oldest item to make room (default)
//   - DropNewest: reject new items when full
//   - Block: Write waits for available space
//
// With the Block policy, Write waits until space is available or the
// buffer is closed; it takes no context and has no timeout. The
// concrete buffer type also has WriteWithContext and WriteWithTimeout,
// which give up when the context ends or the timeout passes, but
// neither method is part of the Buffer interface that NewCircularBuffer
// returns.
//
// # Statistics and metrics
//
// Stats() is always populated (atomic counters, no external
// dependency) and is what backs a component's own introspection of
// its buffer — how full it is, how many items it has dropped. Metrics
// via WithMetrics() additionally exports the same counters to
// Prometheus for time-series dashboards; it is optional and adds
// Prometheus's own counter/gauge overhead on top of the atomic ones
// Stats() already pays.
//
// # Thread Safety
//
// All buffer operations are safe for concurrent use. Statistics use
// atomic operations; buffer state is protected by sync.RWMutex; the
// Block overflow policy waits on sync.Cond.
//
// # Functional options
//
//	buf, _ := buffer.NewCircularBuffer[T](capacity,
//		buffer.WithOverflowPolicy[T](policy),
//		buffer.WithMetrics[T](registry, prefix),
//		buffer.WithDropCallback[T](callback),
//	)
package buffer
