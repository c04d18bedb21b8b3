package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBus(t *testing.T) *RedisBus {
	t.Helper()
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisBus(client, NewThreadChannelResolver())
}

func TestRedisBusPublishReachesSubscriber(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	received := make(chan Envelope, 1)
	go func() {
		_ = bus.Subscribe(ctx, ChannelPattern, func(channel string, payload []byte) {
			var env Envelope
			if err := json.Unmarshal(payload, &env); err != nil {
				return
			}
			received <- env
		})
	}()
	// Give the pattern subscription a moment to register.
	time.Sleep(50 * time.Millisecond)

	sent := Envelope{
		EventType:  EventTypeMessageCreated,
		ThreadKind: "group",
		ThreadID:   "g-1",
		ActorID:    "u-1",
		OccurredAt: time.Now().UTC().Truncate(time.Second),
	}
	require.NoError(t, bus.Publish(context.Background(), sent))

	select {
	case got := <-received:
		assert.Equal(t, sent.EventType, got.EventType)
		assert.Equal(t, sent.ThreadID, got.ThreadID)
		assert.Equal(t, sent.ActorID, got.ActorID)
	case <-time.After(2 * time.Second):
		t.Fatal("no envelope delivered")
	}
}

func TestRedisBusPublishSkipsUnroutableEnvelopes(t *testing.T) {
	bus := newTestBus(t)
	err := bus.Publish(context.Background(), Envelope{EventType: EventTypeTypingStarted})
	assert.NoError(t, err, "an envelope with no thread resolves to no channels")
}

func TestRedisBusSubscribeStopsOnContextCancel(t *testing.T) {
	bus := newTestBus(t)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() {
		done <- bus.Subscribe(ctx, ChannelPattern, func(string, []byte) {})
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("subscribe did not return after cancel")
	}
}
