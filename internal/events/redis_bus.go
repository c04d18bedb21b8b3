package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisBus implements Bus and Subscriber over Redis Pub/Sub.
type RedisBus struct {
	client   *redis.Client
	resolver ChannelResolver
}

func NewRedisBus(client *redis.Client, resolver ChannelResolver) *RedisBus {
	if resolver == nil {
		resolver = NewThreadChannelResolver()
	}
	return &RedisBus{client: client, resolver: resolver}
}

func (b *RedisBus) Publish(ctx context.Context, env Envelope) error {
	channels := b.resolver.ResolveChannels(env)
	if len(channels) == 0 {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	for _, channel := range channels {
		if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
			return fmt.Errorf("failed to publish to %s: %w", channel, err)
		}
	}
	return nil
}

// Subscribe blocks delivering payloads for every channel matching the
// pattern until ctx is done.
func (b *RedisBus) Subscribe(ctx context.Context, pattern string, handle func(channel string, payload []byte)) error {
	pubsub := b.client.PSubscribe(ctx, pattern)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handle(msg.Channel, []byte(msg.Payload))
		}
	}
}
