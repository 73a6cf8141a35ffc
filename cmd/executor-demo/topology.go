package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/streamkit/executor/config"
	"github.com/streamkit/executor/executor"
	"github.com/streamkit/executor/pkg/buffer"
	"github.com/streamkit/executor/task"
	"github.com/streamkit/executor/tuple"
)

// recentWordHistoryCapacity bounds how many of the most recently
// counted words this demo keeps around for debug inspection.
const recentWordHistoryCapacity = 32

// wordsStream is the only stream this demo's spout emits on.
const wordsStream = "words"

var sampleSentences = []string{
	"the quick brown fox jumps over the lazy dog",
	"storm executors dispatch tuples to bolts and spouts",
	"every task owns a slice of the topology graph",
	"backpressure throttles a spout before queues overflow",
}

// sentenceSpout emits one word at a time from a fixed sentence corpus,
// cycling forever. Every emission gets a fresh uuid message id, tracked
// against the owning SpoutExecutor the same way a real at-least-once
// spout would — this demo has no acker bolt to close the loop, so every
// tracked message eventually fails on message.timeout rather than being
// acked, exercising the timeout-scan path instead of leaving emission
// fire-and-forget.
type sentenceSpout struct {
	logger *slog.Logger
	rng    *rand.Rand
	exec   *executor.SpoutExecutor

	sentence []string
	pos      int
}

func newSentenceSpout(logger *slog.Logger) *sentenceSpout {
	return &sentenceSpout{logger: logger, rng: rand.New(rand.NewSource(1))}
}

// attachExecutor wires the SpoutExecutor back into the logic so
// NextTuple can call Track, as its own contract requires. This two-step
// construction mirrors the fact that NewSpoutExecutor itself needs the
// logic to already exist.
func (s *sentenceSpout) attachExecutor(exec *executor.SpoutExecutor) {
	s.exec = exec
}

func (s *sentenceSpout) Open(ctx context.Context, t *task.Task, conf map[string]any) error {
	debug := config.GetBool(conf, "topology.debug", false)
	waitStrategy := config.GetString(conf, "topology.spout.wait.strategy", "")
	s.logger.Info("spout opened", "task", t.ID(), "component", t.ComponentID(),
		"debug", debug, "wait_strategy", waitStrategy)
	s.nextSentence()
	return nil
}

func (s *sentenceSpout) NextTuple(ctx context.Context, t *task.Task) error {
	if s.pos >= len(s.sentence) {
		s.nextSentence()
	}
	word := s.sentence[s.pos]
	s.pos++

	msgID := uuid.New().String()
	if _, err := t.EmitAnchored(ctx, wordsStream, tuple.Values{word}, msgID); err != nil {
		return err
	}
	s.exec.Track(t.ID(), msgID)
	return nil
}

func (s *sentenceSpout) Ack(ctx context.Context, t *task.Task, msgID any) error {
	s.logger.Debug("message acked", "msg_id", msgID)
	return nil
}

func (s *sentenceSpout) Fail(ctx context.Context, t *task.Task, msgID any) error {
	s.logger.Debug("message timed out with no acker present", "msg_id", msgID)
	return nil
}

func (s *sentenceSpout) Close() error {
	s.logger.Info("spout closed")
	return nil
}

func (s *sentenceSpout) nextSentence() {
	sentence := sampleSentences[s.rng.Intn(len(sampleSentences))]
	s.sentence = strings.Fields(sentence)
	s.pos = 0
}

// wordCountBolt tallies how many times each word it receives has been
// seen and logs a running total on every tick.
type wordCountBolt struct {
	logger *slog.Logger

	mu     sync.Mutex
	counts map[string]int64
	total  int64

	// recent is a small DropOldest ring of the words most recently
	// counted, independent of counts — it exists purely so an operator
	// (or a future debug endpoint) can see what the bolt just did,
	// without scanning the whole tally map.
	recent buffer.Buffer[string]
}

func newWordCountBolt(logger *slog.Logger) *wordCountBolt {
	recent, err := buffer.NewCircularBuffer[string](recentWordHistoryCapacity,
		buffer.WithOverflowPolicy[string](buffer.DropOldest))
	if err != nil {
		// Capacity is a positive compile-time constant, so construction
		// cannot fail; a non-nil error here would indicate a bug in the
		// buffer package itself.
		panic(fmt.Sprintf("build recent-word buffer: %v", err))
	}
	return &wordCountBolt{logger: logger, counts: make(map[string]int64), recent: recent}
}

func (b *wordCountBolt) Prepare(ctx context.Context, t *task.Task, conf map[string]any) error {
	if config.HasKey(conf, "topology.tick.tuple.freq.secs") {
		b.logger.Info("bolt prepared with topology-level tick override",
			"tick_freq_secs", config.GetInt(conf, "topology.tick.tuple.freq.secs", 0))
	}
	b.logger.Info("bolt prepared", "task", t.ID(), "component", t.ComponentID())
	return nil
}

func (b *wordCountBolt) Execute(ctx context.Context, t *task.Task, tup tuple.Tuple) error {
	switch tup.SourceStreamID {
	case tuple.SystemTickStream:
		b.logTotals()
		return nil
	case wordsStream:
		word, _ := tup.Fields[0].(string)
		b.mu.Lock()
		b.counts[word]++
		b.total++
		b.mu.Unlock()
		if err := b.recent.Write(word); err != nil {
			b.logger.Warn("recent-word history write failed", "error", err)
		}
		return nil
	default:
		return nil
	}
}

func (b *wordCountBolt) Close() error {
	b.logger.Info("bolt closed")
	return b.recent.Close()
}

func (b *wordCountBolt) logTotals() {
	b.mu.Lock()
	total := b.total
	distinct := len(b.counts)
	b.mu.Unlock()
	b.logger.Info("word count tick", "total_words", total, "distinct_words", distinct,
		"recent", b.recent.ReadBatch(b.recent.Size()), "recent_stats", b.recent.Stats())
}

// distinctWordCount is read by the registered metrics-tick data point;
// it never resets, so it is reported as a running gauge rather than a
// per-interval counter.
func (b *wordCountBolt) distinctWordCount() any {
	b.mu.Lock()
	defer b.mu.Unlock()
	return int64(len(b.counts))
}
