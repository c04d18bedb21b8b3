package repository

import (
	"testing"
	"time"

	relay_errors "relay-chat/pkg/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUserFindByPhoneToleratesFormatting(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)

	u := seedUser(t, db, "dana", "+491712345678")

	t.Run("exact match", func(t *testing.T) {
		found, err := repo.FindByPhone(t.Context(), "+491712345678")
		require.NoError(t, err)
		assert.Equal(t, u.ID, found.ID)
	})

	t.Run("suffix match", func(t *testing.T) {
		found, err := repo.FindByPhone(t.Context(), "0171 234 5678")
		require.NoError(t, err)
		assert.Equal(t, u.ID, found.ID)
	})

	t.Run("unknown number", func(t *testing.T) {
		_, err := repo.FindByPhone(t.Context(), "+15559990000")
		assert.ErrorIs(t, err, relay_errors.ErrNotFound)
	})

	t.Run("too short for suffix fallback", func(t *testing.T) {
		_, err := repo.FindByPhone(t.Context(), "12345")
		assert.ErrorIs(t, err, relay_errors.ErrNotFound)
	})
}

func TestUserPhoneIsUnique(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "dana", "+491712345678")

	repo := NewUserRepository(db)
	dup := seedableUser("copy", "+491712345678")
	err := repo.Create(t.Context(), &dup)
	assert.ErrorIs(t, err, relay_errors.ErrAlreadyExists)
}

func TestUserTouchLastSeen(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	u := seedUser(t, db, "dana", "+491712345678")

	at := time.Now().Truncate(time.Second)
	require.NoError(t, repo.TouchLastSeen(t.Context(), u.ID, at))

	got, err := repo.GetByID(t.Context(), u.ID)
	require.NoError(t, err)
	require.True(t, got.LastSeenAt.Valid)
	assert.True(t, got.LastSeenAt.Time.Equal(at))
}
