package services

import (
	"encoding/json"
	"testing"

	"relay-chat/internal/domain/group"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/events"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGroupCreateSetsOwnerAndInvite(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner", "+10000000001")
	member := f.user(t, "member", "+10000000002")

	grp, err := f.grps.Create(t.Context(), owner.ID, CreateGroupInput{
		Name:      "crew",
		MemberIDs: []uuid.UUID{member.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, owner.ID, grp.OwnerID)
	assert.NotEmpty(t, grp.InviteCode)

	members, err := f.groups.ListMembers(t.Context(), grp.ID)
	require.NoError(t, err)
	assert.Len(t, members, 2)
}

func TestGroupJoinRules(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner", "+10000000001")
	joiner := f.user(t, "joiner", "+10000000002")

	t.Run("private groups reject open join", func(t *testing.T) {
		grp, err := f.grps.Create(t.Context(), owner.ID, CreateGroupInput{Name: "private"})
		require.NoError(t, err)

		err = f.grps.Join(t.Context(), grp.ID, joiner.ID)
		assert.ErrorIs(t, err, relay_errors.ErrForbidden)

		// The invite code still works for a private group.
		joined, err := f.grps.JoinByInvite(t.Context(), grp.InviteCode, joiner.ID)
		require.NoError(t, err)
		assert.Equal(t, grp.ID, joined.ID)
	})

	t.Run("public join and rejoin", func(t *testing.T) {
		grp, err := f.grps.Create(t.Context(), owner.ID, CreateGroupInput{Name: "public", IsPublic: true})
		require.NoError(t, err)

		require.NoError(t, f.grps.Join(t.Context(), grp.ID, joiner.ID))
		require.NoError(t, f.grps.Join(t.Context(), grp.ID, joiner.ID), "rejoin is a no-op")
	})
}

func TestGroupOwnerInvariants(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner", "+10000000001")
	admin := f.user(t, "admin", "+10000000002")
	member := f.user(t, "member", "+10000000003")

	grp, err := f.grps.Create(t.Context(), owner.ID, CreateGroupInput{
		Name:      "crew",
		MemberIDs: []uuid.UUID{admin.ID, member.ID},
	})
	require.NoError(t, err)
	require.NoError(t, f.grps.Promote(t.Context(), grp.ID, owner.ID, admin.ID))

	t.Run("only the owner promotes", func(t *testing.T) {
		err := f.grps.Promote(t.Context(), grp.ID, admin.ID, member.ID)
		assert.ErrorIs(t, err, relay_errors.ErrForbidden)
	})

	t.Run("the owner cannot be demoted", func(t *testing.T) {
		err := f.grps.Demote(t.Context(), grp.ID, owner.ID, owner.ID)
		assert.ErrorIs(t, err, relay_errors.ErrForbidden)
	})

	t.Run("the owner cannot be removed", func(t *testing.T) {
		err := f.grps.Remove(t.Context(), grp.ID, admin.ID, owner.ID)
		assert.ErrorIs(t, err, relay_errors.ErrForbidden)
	})

	t.Run("the owner cannot leave", func(t *testing.T) {
		err := f.grps.Leave(t.Context(), grp.ID, owner.ID)
		assert.ErrorIs(t, err, relay_errors.ErrForbidden)
	})

	t.Run("admins remove regular members", func(t *testing.T) {
		require.NoError(t, f.grps.Remove(t.Context(), grp.ID, admin.ID, member.ID))
		ok, err := f.groups.IsMember(t.Context(), grp.ID, member.ID)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestAddByPhonesClassifies(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner", "+10000000001")
	existing := f.user(t, "existing", "+10000000002")
	fresh := f.user(t, "fresh", "+491712345678")

	grp, err := f.grps.Create(t.Context(), owner.ID, CreateGroupInput{
		Name:      "crew",
		MemberIDs: []uuid.UUID{existing.ID},
	})
	require.NoError(t, err)

	result, err := f.grps.AddByPhones(t.Context(), grp.ID, owner.ID, []string{
		"+10000000002",  // already a member
		"0171 234 5678", // resolves via suffix
		"+15550001111",  // unknown
	})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{existing.ID}, result.AlreadyMember)
	assert.Equal(t, []uuid.UUID{fresh.ID}, result.Added)
	assert.Equal(t, []string{"+15550001111"}, result.NotFound)
}

func TestMembershipTransitionsWriteSystemMessages(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner", "+10000000001")
	joiner := f.user(t, "joiner", "+10000000002")

	grp, err := f.grps.Create(t.Context(), owner.ID, CreateGroupInput{Name: "crew", IsPublic: true})
	require.NoError(t, err)
	require.NoError(t, f.grps.Join(t.Context(), grp.ID, joiner.ID))

	thread, err := f.resolver.Group(t.Context(), grp.ID)
	require.NoError(t, err)
	list, err := f.messages.List(t.Context(), thread, owner.ID, ListInput{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, message.TypeSystem, list[0].Type)

	var meta map[string]string
	require.NoError(t, json.Unmarshal([]byte(list[0].Metadata), &meta))
	assert.Equal(t, events.EventTypeMemberJoined, meta["event"])
	assert.Equal(t, joiner.ID.String(), meta["target"])
}

func TestMessageLockRequiresAdmin(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner", "+10000000001")
	member := f.user(t, "member", "+10000000002")

	grp, err := f.grps.Create(t.Context(), owner.ID, CreateGroupInput{
		Name:      "crew",
		MemberIDs: []uuid.UUID{member.ID},
	})
	require.NoError(t, err)

	err = f.grps.SetMessageLock(t.Context(), grp.ID, member.ID, true)
	assert.ErrorIs(t, err, relay_errors.ErrForbidden)
	require.NoError(t, f.grps.SetMessageLock(t.Context(), grp.ID, owner.ID, true))
}

func TestChannelsAreOwnerPostOnly(t *testing.T) {
	f := newFixture(t)
	owner := f.user(t, "owner", "+10000000001")
	member := f.user(t, "member", "+10000000002")

	grp, err := f.grps.Create(t.Context(), owner.ID, CreateGroupInput{
		Name:      "announcements",
		Type:      group.TypeChannel,
		MemberIDs: []uuid.UUID{member.ID},
	})
	require.NoError(t, err)

	thread, err := f.resolver.Group(t.Context(), grp.ID)
	require.NoError(t, err)

	_, _, err = f.messages.Send(t.Context(), thread, member.ID, SendInput{Body: "hi"})
	assert.ErrorIs(t, err, relay_errors.ErrForbidden)

	_, _, err = f.messages.Send(t.Context(), thread, owner.ID, SendInput{Body: "welcome"})
	assert.NoError(t, err)
}
