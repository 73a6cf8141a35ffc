// Package tuple defines the wire-level data model that flows through an
// executor: task identity, addressed tuples, and the reserved system
// streams that ticks, startup notices and metrics are published on.
package tuple
