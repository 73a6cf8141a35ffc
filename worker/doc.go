// Package worker holds the small set of collaborators an executor takes
// from its surrounding worker process rather than owning itself: shared
// atomic flags, the task-to-component map, and the cluster-state error
// reporting path. transfer_fn, backpressure_trigger, and user_timer are
// deliberately not duplicated here — they are already the function
// types and types in transfer, backpressure, and pkg/scheduler.
package worker
