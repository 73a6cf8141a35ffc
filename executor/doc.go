// Package executor drives one executor's event loop: it pulls
// AddressedTuples off a receive queue and dispatches them to the tasks
// it owns, with the actual per-tuple behavior supplied by a Spout or
// Bolt specialization. Core exposes the few operations both
// specializations share — unanchored emit, event-logger sampling, and
// metrics-tick fan-out — while pending-message tracking (spout) and
// tuple-source dispatch (bolt) live in their own files.
package executor
