package services

import (
	"testing"

	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	auth := NewAuthService("test-secret", 15)
	userID := uuid.New()

	token, err := auth.IssueAccessToken(userID)
	require.NoError(t, err)

	claims, err := auth.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID.String(), claims.UserID)
	assert.Equal(t, userID.String(), claims.Subject)
}

func TestParseAccessTokenRejections(t *testing.T) {
	auth := NewAuthService("test-secret", 15)

	t.Run("empty token", func(t *testing.T) {
		_, err := auth.ParseAccessToken("")
		assert.ErrorIs(t, err, relay_errors.ErrUnauthorized)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := auth.ParseAccessToken("not.a.jwt")
		assert.ErrorIs(t, err, relay_errors.ErrUnauthorized)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := NewAuthService("other-secret", 15).IssueAccessToken(uuid.New())
		require.NoError(t, err)

		_, err = auth.ParseAccessToken(token)
		assert.ErrorIs(t, err, relay_errors.ErrUnauthorized)
	})
}

func TestUserContextHelpers(t *testing.T) {
	userID := uuid.New()
	ctx := WithUserContext(t.Context(), userID)

	got, ok := UserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, userID, got)

	_, ok = UserIDFromContext(t.Context())
	assert.False(t, ok)
}
