package websocket

import (
	"context"
	"encoding/json"

	"relay-chat/internal/events"
)

// RedisBridge pumps broker events into the local hub. The actor's own
// connections are skipped: they already received the synchronous HTTP
// response for the mutation.
type RedisBridge struct {
	subscriber events.Subscriber
	hub        *Hub
}

func NewRedisBridge(subscriber events.Subscriber, hub *Hub) *RedisBridge {
	return &RedisBridge{subscriber: subscriber, hub: hub}
}

func (b *RedisBridge) Run(ctx context.Context) error {
	return b.subscriber.Subscribe(ctx, events.ChannelPattern, func(channel string, payload []byte) {
		var env events.Envelope
		if err := json.Unmarshal(payload, &env); err != nil {
			b.hub.Broadcast(channel, payload)
			return
		}
		b.hub.BroadcastExcept(channel, payload, env.ActorID)
	})
}
