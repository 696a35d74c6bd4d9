package events

import (
	"context"
	"encoding/json"
	"time"
)

// Envelope is the wire form of an outbox event as published to subscribers.
type Envelope struct {
	EventType     string          `json:"event_type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// Publisher delivers a serialized envelope to a named channel.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RouteChannel maps an envelope to its pub/sub channel.
func RouteChannel(env Envelope) string {
	switch env.AggregateType {
	case "message":
		return "channel:message:" + env.AggregateID
	default:
		return "channel:system:outbox"
	}
}
