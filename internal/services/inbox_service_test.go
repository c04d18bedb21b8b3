package services

import (
	"testing"
	"time"

	"relay-chat/internal/domain/message"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInboxOrdersByActivityWithPinnedFirst(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")
	bob := f.user(t, "bob", "+10000000002")
	carol := f.user(t, "carol", "+10000000003")
	dave := f.user(t, "dave", "+10000000004")

	base := time.Now().Add(-time.Hour)
	clock := base
	f.messages.now = func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}

	ab := f.directThread(t, alice.ID, bob.ID)
	ac := f.directThread(t, alice.ID, carol.ID)
	ad := f.directThread(t, alice.ID, dave.ID)

	// Activity order: bob, then carol, then dave (most recent).
	for _, thread := range []Thread{ab, ac, ad} {
		_, _, err := f.messages.Send(t.Context(), thread, alice.ID, SendInput{Body: "ping"})
		require.NoError(t, err)
	}
	// Pin the quietest thread.
	require.NoError(t, f.convs.SetPinned(t.Context(), ab.ID(), alice.ID, true))

	rows, err := f.inbox.List(t.Context(), alice.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "bob", rows[0].Title, "pinned thread leads regardless of activity")
	assert.True(t, rows[0].Pinned)
	assert.Equal(t, "dave", rows[1].Title)
	assert.Equal(t, "carol", rows[2].Title)
}

func TestInboxUnreadAndPreview(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")
	bob := f.user(t, "bob", "+10000000002")
	thread := f.directThread(t, alice.ID, bob.ID)

	_, _, err := f.messages.Send(t.Context(), thread, alice.ID, SendInput{Body: "first"})
	require.NoError(t, err)
	_, _, err = f.messages.Send(t.Context(), thread, alice.ID, SendInput{Body: "hello bob"})
	require.NoError(t, err)

	rows, err := f.inbox.List(t.Context(), bob.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "alice", rows[0].Title)
	assert.Equal(t, "hello bob", rows[0].Preview)
	assert.Equal(t, alice.ID, rows[0].PreviewSender)
	assert.Equal(t, int64(2), rows[0].UnreadCount)

	// The sender's own inbox shows the same preview with nothing unread.
	rows, err = f.inbox.List(t.Context(), alice.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, int64(0), rows[0].UnreadCount)
}

func TestInboxPreviewPlaceholders(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")
	bob := f.user(t, "bob", "+10000000002")

	t.Run("encrypted bodies are masked", func(t *testing.T) {
		thread := f.directThread(t, alice.ID, bob.ID)
		_, _, err := f.messages.Send(t.Context(), thread, alice.ID, SendInput{Body: "secret", IsEncrypted: true})
		require.NoError(t, err)

		rows, err := f.inbox.List(t.Context(), bob.ID, false)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "[Encrypted]", rows[0].Preview)
	})

	t.Run("attachment-only messages show a count", func(t *testing.T) {
		carol := f.user(t, "carol", "+10000000003")
		thread := f.directThread(t, alice.ID, carol.ID)

		att := message.Attachment{
			ID:        uuid.New(),
			OwnerID:   alice.ID,
			FilePath:  "uploads/photo.jpg",
			MimeType:  "image/jpeg",
			SizeBytes: 2048,
			CreatedAt: time.Now(),
		}
		require.NoError(t, f.attachments.Create(t.Context(), &att))

		_, _, err := f.messages.Send(t.Context(), thread, alice.ID, SendInput{AttachmentIDs: []uuid.UUID{att.ID}})
		require.NoError(t, err)

		rows, err := f.inbox.List(t.Context(), carol.ID, false)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "[1 attachment]", rows[0].Preview)
	})
}

func TestInboxArchivedThreadsAreHidden(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")
	bob := f.user(t, "bob", "+10000000002")
	thread := f.directThread(t, alice.ID, bob.ID)

	_, _, err := f.messages.Send(t.Context(), thread, bob.ID, SendInput{Body: "hi"})
	require.NoError(t, err)
	require.NoError(t, f.convs.SetArchived(t.Context(), thread.ID(), alice.ID, true))

	rows, err := f.inbox.List(t.Context(), alice.ID, false)
	require.NoError(t, err)
	assert.Empty(t, rows)

	rows, err = f.inbox.List(t.Context(), alice.ID, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Archived)

	// Archiving is per member; bob still sees the thread.
	rows, err = f.inbox.List(t.Context(), bob.ID, false)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestInboxMutedFlagTracksHorizon(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")
	bob := f.user(t, "bob", "+10000000002")
	thread := f.directThread(t, alice.ID, bob.ID)

	require.NoError(t, f.convs.Mute(t.Context(), thread.ID(), alice.ID, true, nil))
	rows, err := f.inbox.List(t.Context(), alice.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Muted)

	// An expired horizon reads as unmuted.
	past := time.Now().Add(-time.Minute)
	require.NoError(t, f.convs.Mute(t.Context(), thread.ID(), alice.ID, true, &past))
	rows, err = f.inbox.List(t.Context(), alice.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Muted)
}

func TestInboxSelfConversation(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")
	thread := f.directThread(t, alice.ID, alice.ID)

	_, _, err := f.messages.Send(t.Context(), thread, alice.ID, SendInput{Body: "note to self"})
	require.NoError(t, err)

	rows, err := f.inbox.List(t.Context(), alice.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.True(t, rows[0].IsSelf)
	assert.Equal(t, "alice", rows[0].Title)
	assert.Equal(t, "note to self", rows[0].Preview)
	assert.Equal(t, int64(0), rows[0].UnreadCount, "own messages never count as unread")
}

func TestInboxMixesGroupsAndConversations(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")
	bob := f.user(t, "bob", "+10000000002")

	direct := f.directThread(t, alice.ID, bob.ID)
	_, _, err := f.messages.Send(t.Context(), direct, bob.ID, SendInput{Body: "dm"})
	require.NoError(t, err)

	grp := f.groupThread(t, bob.ID, alice.ID)
	_, _, err = f.messages.Send(t.Context(), grp, bob.ID, SendInput{Body: "announcement"})
	require.NoError(t, err)

	rows, err := f.inbox.List(t.Context(), alice.ID, false)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	kinds := map[message.Kind]ThreadSummary{}
	for _, row := range rows {
		kinds[row.Kind] = row
	}
	assert.Equal(t, "crew", kinds[message.KindGroup].Title)
	assert.Equal(t, "dm", kinds[message.KindDirect].Preview)
	assert.Equal(t, int64(1), kinds[message.KindGroup].UnreadCount)
}
