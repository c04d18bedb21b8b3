package services

import (
	"testing"

	"relay-chat/internal/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Walks a full direct exchange: send, fetch, read, idempotent resend.
func TestDirectExchangeEndToEnd(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")
	bob := f.user(t, "bob", "+10000000002")
	thread := f.directThread(t, alice.ID, bob.ID)

	// A sends with a client id.
	sent, created, err := f.messages.Send(t.Context(), thread, alice.ID, SendInput{
		Body:       "hi",
		ClientUUID: "x1",
	})
	require.NoError(t, err)
	require.True(t, created)

	// B fetches: the message arrives already delivery-stamped, unread.
	page, err := f.messages.List(t.Context(), thread, bob.ID, ListInput{})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, sent.ID, page[0].ID)

	receipts, err := f.receipts.Receipts(t.Context(), thread.Kind(), sent.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.NotNil(t, receipts[0].DeliveredAt)
	assert.Nil(t, receipts[0].ReadAt)

	unread, err := f.receipts.UnreadCount(t.Context(), thread, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), unread)

	// B marks it read: a read event fans out and the count drops to zero.
	require.NoError(t, f.receipts.MarkRead(t.Context(), thread, bob.ID, []uuid.UUID{sent.ID}))
	assert.Contains(t, f.eventTypes(), events.EventTypeReceiptRead)

	unread, err = f.receipts.UnreadCount(t.Context(), thread, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), unread)

	receipts, err = f.receipts.Receipts(t.Context(), thread.Kind(), sent.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.NotNil(t, receipts[0].ReadAt)

	// A resends the same client id: same message, no duplicate.
	replay, created, err := f.messages.Send(t.Context(), thread, alice.ID, SendInput{
		Body:       "hi",
		ClientUUID: "x1",
	})
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, sent.ID, replay.ID)

	page, err = f.messages.List(t.Context(), thread, bob.ID, ListInput{})
	require.NoError(t, err)
	assert.Len(t, page, 1)
}
