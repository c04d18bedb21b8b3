package events

import "context"

// Bus publishes fan-out events. Publishing is best-effort from the
// caller's point of view: the owning request has already committed its
// transaction by the time Publish runs.
type Bus interface {
	Publish(ctx context.Context, env Envelope) error
}

// Subscriber delivers raw payloads from subscribed channels; the
// websocket bridge is the consumer.
type Subscriber interface {
	Subscribe(ctx context.Context, pattern string, handle func(channel string, payload []byte)) error
}

// NoopBus discards events. Used in tests that exercise services
// without a live broker.
type NoopBus struct{}

func (NoopBus) Publish(ctx context.Context, env Envelope) error { return nil }
