package services

import (
	"testing"
	"time"

	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetOrCreateDirectIsCanonical(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")
	bob := f.user(t, "bob", "+10000000002")

	first, err := f.convs.GetOrCreateDirect(t.Context(), alice.ID, bob.ID)
	require.NoError(t, err)

	second, err := f.convs.GetOrCreateDirect(t.Context(), bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "(a,b) and (b,a) share one conversation")
}

func TestGetOrCreateDirectUnknownPeer(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")

	_, err := f.convs.GetOrCreateDirect(t.Context(), alice.ID, uuid.New())
	assert.ErrorIs(t, err, relay_errors.ErrNotFound)
}

func TestSelfConversation(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")

	conv, err := f.convs.GetOrCreateDirect(t.Context(), alice.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, conv.IsSelf())

	member, err := f.conversations.GetMember(t.Context(), conv.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, alice.ID, member.UserID)
}

func TestMuteDefaultsToHorizon(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")
	bob := f.user(t, "bob", "+10000000002")
	conv, err := f.convs.GetOrCreateDirect(t.Context(), alice.ID, bob.ID)
	require.NoError(t, err)

	before := time.Now()
	require.NoError(t, f.convs.Mute(t.Context(), conv.ID, alice.ID, true, nil))

	member, err := f.conversations.GetMember(t.Context(), conv.ID, alice.ID)
	require.NoError(t, err)
	require.True(t, member.MutedUntil.Valid)
	assert.True(t, member.MutedUntil.Time.After(before.Add(DefaultMuteDuration-time.Minute)))

	require.NoError(t, f.convs.Mute(t.Context(), conv.ID, alice.ID, false, nil))
	member, err = f.conversations.GetMember(t.Context(), conv.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, member.MutedUntil.Valid)
}

func TestSetLastReadRejectsForeignMessage(t *testing.T) {
	f := newFixture(t)
	alice := f.user(t, "alice", "+10000000001")
	bob := f.user(t, "bob", "+10000000002")
	carol := f.user(t, "carol", "+10000000003")

	ab := f.directThread(t, alice.ID, bob.ID)
	ac := f.directThread(t, alice.ID, carol.ID)

	foreign, _, err := f.messages.Send(t.Context(), ac, alice.ID, SendInput{Body: "elsewhere"})
	require.NoError(t, err)

	err = f.convs.SetLastRead(t.Context(), ab.ID(), alice.ID, foreign.ID)
	assert.ErrorIs(t, err, relay_errors.ErrNotFound)

	own, _, err := f.messages.Send(t.Context(), ab, alice.ID, SendInput{Body: "here"})
	require.NoError(t, err)
	require.NoError(t, f.convs.SetLastRead(t.Context(), ab.ID(), alice.ID, own.ID))

	member, err := f.conversations.GetMember(t.Context(), ab.ID(), alice.ID)
	require.NoError(t, err)
	require.True(t, member.LastReadMessageID.Valid)
	assert.Equal(t, own.ID, member.LastReadMessageID.UUID)
}
