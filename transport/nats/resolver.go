package nats

import (
	"fmt"

	"github.com/streamkit/executor/transfer"
	"github.com/streamkit/executor/tuple"
)

// subjectPrefix namespaces every subject this transport touches so a
// NATS server shared with other traffic never collides with it.
const subjectPrefix = "executor.transfer."

// Subject returns the NATS subject a worker's inbound traffic is
// published to.
func Subject(worker transfer.WorkerAddress) string {
	return subjectPrefix + string(worker)
}

// StaticResolver returns a transfer.Resolver backed by a fixed
// task-id-to-worker-address table, the shape a worker process builds
// once from its topology assignment at startup.
func StaticResolver(taskToWorker map[tuple.TaskID]transfer.WorkerAddress) transfer.Resolver {
	return func(dest tuple.TaskID) transfer.WorkerAddress {
		if addr, ok := taskToWorker[dest]; ok {
			return addr
		}
		return transfer.WorkerAddress(fmt.Sprintf("unknown-%d", dest))
	}
}
