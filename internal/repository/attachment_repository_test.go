package repository

import (
	"testing"
	"time"

	"relay-chat/internal/domain/message"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedAttachment(t *testing.T, repo AttachmentRepository, ownerID uuid.UUID) message.Attachment {
	t.Helper()
	a := message.Attachment{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		FilePath:  "uploads/file.bin",
		MimeType:  "application/octet-stream",
		SizeBytes: 42,
		CreatedAt: time.Now(),
	}
	require.NoError(t, repo.Create(t.Context(), &a))
	return a
}

func TestAttachmentReparent(t *testing.T) {
	db := newTestDB(t)
	repo := NewAttachmentRepository(db)

	alice := seedUser(t, db, "alice", "+10000000001")
	bob := seedUser(t, db, "bob", "+10000000002")

	messageID := uuid.New()

	t.Run("links detached attachments", func(t *testing.T) {
		a := seedAttachment(t, repo, alice.ID)
		b := seedAttachment(t, repo, alice.ID)

		err := repo.Reparent(t.Context(), []uuid.UUID{a.ID, b.ID}, alice.ID, message.KindDirect, messageID)
		require.NoError(t, err)

		linked, err := repo.ListForMessages(t.Context(), message.KindDirect, []uuid.UUID{messageID})
		require.NoError(t, err)
		assert.Len(t, linked, 2)
	})

	t.Run("rejects foreign attachments", func(t *testing.T) {
		foreign := seedAttachment(t, repo, bob.ID)
		err := repo.Reparent(t.Context(), []uuid.UUID{foreign.ID}, alice.ID, message.KindDirect, uuid.New())
		assert.ErrorIs(t, err, relay_errors.ErrForbidden)
	})

	t.Run("rejects re-parenting twice", func(t *testing.T) {
		a := seedAttachment(t, repo, alice.ID)
		require.NoError(t, repo.Reparent(t.Context(), []uuid.UUID{a.ID}, alice.ID, message.KindDirect, uuid.New()))
		err := repo.Reparent(t.Context(), []uuid.UUID{a.ID}, alice.ID, message.KindDirect, uuid.New())
		assert.ErrorIs(t, err, relay_errors.ErrForbidden)
	})
}

func TestReactionUpsertReplaces(t *testing.T) {
	db := newTestDB(t)
	repo := NewReactionRepository(db)

	userID := uuid.New()
	messageID := uuid.New()

	require.NoError(t, repo.Upsert(t.Context(), &message.Reaction{
		MessageKind: message.KindDirect,
		MessageID:   messageID,
		UserID:      userID,
		Emoji:       "👍",
		CreatedAt:   time.Now(),
	}))
	require.NoError(t, repo.Upsert(t.Context(), &message.Reaction{
		MessageKind: message.KindDirect,
		MessageID:   messageID,
		UserID:      userID,
		Emoji:       "❤️",
		CreatedAt:   time.Now(),
	}))

	reactions, err := repo.ListForMessages(t.Context(), message.KindDirect, []uuid.UUID{messageID})
	require.NoError(t, err)
	require.Len(t, reactions, 1)
	assert.Equal(t, "❤️", reactions[0].Emoji)
}

func TestReactionDelete(t *testing.T) {
	db := newTestDB(t)
	repo := NewReactionRepository(db)

	userID := uuid.New()
	messageID := uuid.New()

	require.NoError(t, repo.Upsert(t.Context(), &message.Reaction{
		MessageKind: message.KindDirect,
		MessageID:   messageID,
		UserID:      userID,
		Emoji:       "👍",
		CreatedAt:   time.Now(),
	}))
	require.NoError(t, repo.Delete(t.Context(), message.KindDirect, messageID, userID))

	err := repo.Delete(t.Context(), message.KindDirect, messageID, userID)
	assert.ErrorIs(t, err, relay_errors.ErrNotFound)
}
