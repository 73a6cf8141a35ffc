package nats

import "errors"

var (
	// ErrNotConnected is returned by Publish/Subscribe before Connect
	// has succeeded.
	ErrNotConnected = errors.New("nats transport: not connected")
	// ErrCircuitOpen is returned by Publish while the circuit breaker is
	// tripped.
	ErrCircuitOpen = errors.New("nats transport: circuit breaker is open")
	// ErrUnknownWorker names a task id with no static worker mapping.
	// StaticResolver does not return it: a transfer.Resolver has no
	// error result, so such ids resolve to an "unknown-<id>" address.
	ErrUnknownWorker = errors.New("nats transport: no worker address for task id")
)
