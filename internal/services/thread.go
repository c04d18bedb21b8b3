package services

import (
	"context"
	"errors"

	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/domain/group"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
)

// Thread is the capability view of a message parent. The message
// service, receipt tracker and aggregate view are written once against
// it; conversations and groups implement it.
type Thread interface {
	Kind() message.Kind
	ID() uuid.UUID
	MemberIDs(ctx context.Context) ([]uuid.UUID, error)
	IsMember(ctx context.Context, userID uuid.UUID) (bool, error)
	// CanPost enforces membership plus any posting restriction
	// (group message lock).
	CanPost(ctx context.Context, userID uuid.UUID) error
	// IsSelf reports whether the thread is a single-member notes
	// conversation, where delete-for-everyone is suppressed.
	IsSelf() bool
	// SupportsTTL reports whether disappearing messages apply.
	SupportsTTL() bool
}

// ThreadResolver loads threads by id for either family.
type ThreadResolver struct {
	conversations repository.ConversationRepository
	groups        repository.GroupRepository
}

func NewThreadResolver(conversations repository.ConversationRepository, groups repository.GroupRepository) *ThreadResolver {
	return &ThreadResolver{conversations: conversations, groups: groups}
}

func (r *ThreadResolver) Conversation(ctx context.Context, id uuid.UUID) (Thread, error) {
	conv, err := r.conversations.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &conversationThread{repo: r.conversations, conv: conv}, nil
}

func (r *ThreadResolver) Group(ctx context.Context, id uuid.UUID) (Thread, error) {
	grp, err := r.groups.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &groupThread{repo: r.groups, grp: grp}, nil
}

// Resolve loads the thread a message kind belongs to.
func (r *ThreadResolver) Resolve(ctx context.Context, kind message.Kind, id uuid.UUID) (Thread, error) {
	if kind == message.KindGroup {
		return r.Group(ctx, id)
	}
	return r.Conversation(ctx, id)
}

type conversationThread struct {
	repo repository.ConversationRepository
	conv conversation.Conversation
}

func (t *conversationThread) Kind() message.Kind { return message.KindDirect }
func (t *conversationThread) ID() uuid.UUID      { return t.conv.ID }
func (t *conversationThread) IsSelf() bool       { return t.conv.IsSelf() }
func (t *conversationThread) SupportsTTL() bool  { return true }

func (t *conversationThread) MemberIDs(ctx context.Context) ([]uuid.UUID, error) {
	if t.conv.IsSelf() {
		return []uuid.UUID{t.conv.UserOneID}, nil
	}
	return []uuid.UUID{t.conv.UserOneID, t.conv.UserTwoID}, nil
}

func (t *conversationThread) IsMember(ctx context.Context, userID uuid.UUID) (bool, error) {
	return userID == t.conv.UserOneID || userID == t.conv.UserTwoID, nil
}

func (t *conversationThread) CanPost(ctx context.Context, userID uuid.UUID) error {
	ok, err := t.IsMember(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return relay_errors.ErrForbidden
	}
	return nil
}

type groupThread struct {
	repo repository.GroupRepository
	grp  group.Group
}

func (t *groupThread) Kind() message.Kind { return message.KindGroup }
func (t *groupThread) ID() uuid.UUID      { return t.grp.ID }
func (t *groupThread) IsSelf() bool       { return false }
func (t *groupThread) SupportsTTL() bool  { return false }

func (t *groupThread) MemberIDs(ctx context.Context) ([]uuid.UUID, error) {
	members, err := t.repo.ListMembers(ctx, t.grp.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids, nil
}

func (t *groupThread) IsMember(ctx context.Context, userID uuid.UUID) (bool, error) {
	return t.repo.IsMember(ctx, t.grp.ID, userID)
}

func (t *groupThread) CanPost(ctx context.Context, userID uuid.UUID) error {
	member, err := t.repo.GetMember(ctx, t.grp.ID, userID)
	if err != nil {
		if errors.Is(err, relay_errors.ErrNotFound) {
			return relay_errors.ErrForbidden
		}
		return err
	}
	if t.grp.MessageLock || t.grp.Type == group.TypeChannel {
		if !t.grp.IsOwner(userID) && member.Role != group.RoleAdmin {
			return relay_errors.ErrForbidden
		}
	}
	return nil
}
