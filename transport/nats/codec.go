package nats

import (
	"encoding/json"
	"time"

	"github.com/streamkit/executor/pkg/timestamp"
	"github.com/streamkit/executor/transfer"
	"github.com/streamkit/executor/tuple"
)

// wireTuple is tuple.Tuple's over-the-wire shape: the same fields,
// exported so encoding/json can see them, with the anchor carried
// alongside rather than through Tuple's private message-id flag.
type wireTuple struct {
	SourceTaskID   tuple.TaskID   `json:"source_task_id"`
	SourceStreamID string         `json:"source_stream_id"`
	Fields         tuple.Values   `json:"fields"`
	MessageID      any            `json:"message_id,omitempty"`
	HasMessageID   bool           `json:"has_message_id,omitempty"`
}

type wirePayload struct {
	Dest  tuple.TaskID `json:"dest"`
	Tuple wireTuple    `json:"tuple"`

	// SentAtMs is stamped at encode time as canonical
	// milliseconds-since-epoch, so a Receiver can log wire latency
	// without carrying a full time.Time across the wire.
	SentAtMs int64 `json:"sent_at_ms"`
}

// encodeBatch serializes one worker's batch of addressed payloads with
// plain encoding/json — no custom wire framing.
func encodeBatch(batch []transfer.AddressedPayload) ([]byte, error) {
	sentAt := timestamp.Now()
	out := make([]wirePayload, len(batch))
	for i, p := range batch {
		msgID, hasMsgID := p.Tuple.MessageID()
		out[i] = wirePayload{
			Dest: p.Dest,
			Tuple: wireTuple{
				SourceTaskID:   p.Tuple.SourceTaskID,
				SourceStreamID: p.Tuple.SourceStreamID,
				Fields:         p.Tuple.Fields,
				MessageID:      msgID,
				HasMessageID:   hasMsgID,
			},
			SentAtMs: sentAt,
		}
	}
	return json.Marshal(out)
}

// decodeBatch is encodeBatch's inverse. It also returns the wire
// latency measured against the batch's own SentAtMs, so a Receiver can
// log it without re-deriving a timestamp from the raw bytes; a batch
// with no entries reports zero latency.
func decodeBatch(data []byte) ([]transfer.AddressedPayload, time.Duration, error) {
	var in []wirePayload
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, 0, err
	}

	out := make([]transfer.AddressedPayload, len(in))
	var latency time.Duration
	for i, p := range in {
		tup := tuple.NewTuple(p.Tuple.SourceTaskID, p.Tuple.SourceStreamID, p.Tuple.Fields)
		if p.Tuple.HasMessageID {
			tup = tup.WithMessageID(p.Tuple.MessageID)
		}
		out[i] = transfer.AddressedPayload{Dest: p.Dest, Tuple: tup}
		if i == 0 {
			latency = timestamp.Since(p.SentAtMs)
		}
	}
	return out, latency, nil
}
