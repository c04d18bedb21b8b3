package events

import (
	"encoding/json"
	"time"
)

// Envelope is the wire shape of every fan-out event. ActorID names the
// connection that already holds the authoritative synchronous result;
// the websocket bridge skips it on delivery.
type Envelope struct {
	EventType  string          `json:"event_type"`
	ThreadKind string          `json:"thread_kind"`
	ThreadID   string          `json:"thread_id"`
	ActorID    string          `json:"actor_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
