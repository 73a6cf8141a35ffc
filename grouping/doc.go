// Package grouping compiles the stream-to-downstream-component routing
// rules of a topology into callable Groupers, and holds them in a
// GrouperRegistry keyed by (stream, component). A Task consults the
// registry once per emit to turn a stream name and a tuple's field
// values into the list of downstream task ids that should receive it.
package grouping
