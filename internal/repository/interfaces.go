package repository

import (
	"context"
	"time"

	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/domain/group"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/user"

	"github.com/google/uuid"
)

// ListQuery drives cursor pagination over one parent's messages. The
// visibility predicate (expiry, per-viewer soft delete, global delete)
// is applied inside the repository so every listing shares it.
type ListQuery struct {
	ParentID uuid.UUID
	ViewerID uuid.UUID
	Before   uuid.NullUUID
	After    uuid.NullUUID
	Limit    int
	Now      time.Time
	// IncludeGlobalDeleted is set for self-conversations, where
	// delete-for-everyone is suppressed.
	IncludeGlobalDeleted bool
}

type MessageRepository interface {
	Kind() message.Kind
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)
	GetByClientUUID(ctx context.Context, parentID, senderID uuid.UUID, clientUUID string) (message.Message, error)
	Update(ctx context.Context, m message.Message) error
	SetDeletedForEveryone(ctx context.Context, id uuid.UUID, at time.Time) error
	ListVisible(ctx context.Context, q ListQuery) ([]message.Message, error)
	LatestVisible(ctx context.Context, parentID, viewerID uuid.UUID, now time.Time, includeGlobalDeleted bool) (message.Message, error)
	CountUnread(ctx context.Context, parentID, viewerID uuid.UUID, now time.Time, includeGlobalDeleted bool) (int64, error)
	Search(ctx context.Context, parentID, viewerID uuid.UUID, term string, limit int, now time.Time, includeGlobalDeleted bool) ([]message.Message, error)
	// IDsInParent filters candidate ids down to those belonging to the
	// parent; batch receipt operations fail closed through it.
	IDsInParent(ctx context.Context, parentID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error)
}

type StatusRepository interface {
	Get(ctx context.Context, kind message.Kind, messageID, userID uuid.UUID) (message.Status, error)
	ListForMessage(ctx context.Context, kind message.Kind, messageID uuid.UUID) ([]message.Status, error)
	MarkDelivered(ctx context.Context, kind message.Kind, messageIDs []uuid.UUID, userID uuid.UUID, now time.Time) error
	MarkRead(ctx context.Context, kind message.Kind, messageIDs []uuid.UUID, userID uuid.UUID, now time.Time) error
	// ClearRead resets read_at on the user's statuses for messages in
	// the parent that they did not send. The explicit mark-unread
	// action is the only caller.
	ClearRead(ctx context.Context, kind message.Kind, parentID, userID uuid.UUID) error
	MarkDeleted(ctx context.Context, kind message.Kind, messageID uuid.UUID, userIDs []uuid.UUID, now time.Time) error
}

type ReactionRepository interface {
	Upsert(ctx context.Context, r *message.Reaction) error
	Delete(ctx context.Context, kind message.Kind, messageID, userID uuid.UUID) error
	ListForMessages(ctx context.Context, kind message.Kind, messageIDs []uuid.UUID) ([]message.Reaction, error)
}

type AttachmentRepository interface {
	Create(ctx context.Context, a *message.Attachment) error
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]message.Attachment, error)
	// Reparent links detached attachments owned by ownerID to a message.
	// It refuses attachments owned by someone else or already parented.
	Reparent(ctx context.Context, ids []uuid.UUID, ownerID uuid.UUID, kind message.Kind, messageID uuid.UUID) error
	ListForMessages(ctx context.Context, kind message.Kind, messageIDs []uuid.UUID) ([]message.Attachment, error)
}

type ConversationRepository interface {
	Create(ctx context.Context, c *conversation.Conversation, members []conversation.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error)
	GetByPair(ctx context.Context, userOne, userTwo uuid.UUID) (conversation.Conversation, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]conversation.Conversation, error)
	GetMember(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Member, error)
	IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error)
	SetPinned(ctx context.Context, conversationID, userID uuid.UUID, at *time.Time) error
	SetMuted(ctx context.Context, conversationID, userID uuid.UUID, until *time.Time) error
	SetArchived(ctx context.Context, conversationID, userID uuid.UUID, at *time.Time) error
	SetLastRead(ctx context.Context, conversationID, userID, messageID uuid.UUID) error
}

type GroupRepository interface {
	Create(ctx context.Context, g *group.Group, members []group.Member) error
	GetByID(ctx context.Context, id uuid.UUID) (group.Group, error)
	GetByInviteCode(ctx context.Context, code string) (group.Group, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]group.Group, error)
	AddMember(ctx context.Context, m *group.Member) error
	RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error
	GetMember(ctx context.Context, groupID, userID uuid.UUID) (group.Member, error)
	ListMembers(ctx context.Context, groupID uuid.UUID) ([]group.Member, error)
	IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error)
	UpdateRole(ctx context.Context, groupID, userID uuid.UUID, role string) error
	SetMessageLock(ctx context.Context, groupID uuid.UUID, locked bool) error
	SetPinned(ctx context.Context, groupID, userID uuid.UUID, at *time.Time) error
	SetMuted(ctx context.Context, groupID, userID uuid.UUID, until *time.Time) error
	SetArchived(ctx context.Context, groupID, userID uuid.UUID, at *time.Time) error
}

type UserRepository interface {
	Create(ctx context.Context, u *user.User) error
	GetByID(ctx context.Context, id uuid.UUID) (user.User, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) ([]user.User, error)
	GetByPhone(ctx context.Context, phone string) (user.User, error)
	// FindByPhone resolves a phone tolerantly: exact match first, then
	// a last-9-digit suffix match to absorb country-code formatting.
	FindByPhone(ctx context.Context, phone string) (user.User, error)
	TouchLastSeen(ctx context.Context, id uuid.UUID, at time.Time) error
}
