// Package task implements Task: the binding between one task id and
// the grouping/transfer machinery an executor's event loop calls into
// when user logic emits. A Task turns (stream, values) into a stamped
// Tuple, resolves it to downstream task ids through a grouper registry,
// and stages it onto an ExecutorTransfer — the same composition
// ExecutorCore's send_unanchored/send_anchored helpers perform, just
// owned by the Task itself rather than duplicated at the call site.
package task
