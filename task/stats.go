package task

import "sync"

// Stats accumulates per-stream emit counts for one task. It is written
// only by the task's own emit path and read via Snapshot, the same
// single-writer/memory-safe-snapshot discipline the executor core uses
// for its own stats.
type Stats struct {
	mu      sync.Mutex
	emitted map[string]int64
}

func newStats() *Stats {
	return &Stats{emitted: make(map[string]int64)}
}

func (s *Stats) recordEmit(stream string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.emitted[stream]++
}

// Snapshot returns a copy of the current per-stream emit counts.
func (s *Stats) Snapshot() map[string]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int64, len(s.emitted))
	for k, v := range s.emitted {
		out[k] = v
	}
	return out
}
