package services

import (
	"context"
	"errors"
	"time"

	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"
	"relay-chat/pkg/logger"

	"github.com/google/uuid"
)

// DefaultMuteDuration applies when a mute request names no horizon.
const DefaultMuteDuration = 8 * time.Hour

// ConversationService manages one-to-one (and notes-to-self)
// conversations and the caller's per-conversation preferences.
type ConversationService struct {
	conversations repository.ConversationRepository
	users         repository.UserRepository
	direct        repository.MessageRepository
	log           *logger.Logger
	now           func() time.Time
}

func NewConversationService(
	conversations repository.ConversationRepository,
	users repository.UserRepository,
	direct repository.MessageRepository,
	log *logger.Logger,
) *ConversationService {
	return &ConversationService{
		conversations: conversations,
		users:         users,
		direct:        direct,
		log:           log,
		now:           time.Now,
	}
}

// GetOrCreateDirect returns the single conversation between the two
// users, creating it on first contact. The pair is canonicalized so
// (a,b) and (b,a) land on the same row; (u,u) is the notes-to-self
// conversation.
func (s *ConversationService) GetOrCreateDirect(ctx context.Context, callerID, otherID uuid.UUID) (conversation.Conversation, error) {
	if _, err := s.users.GetByID(ctx, otherID); err != nil {
		return conversation.Conversation{}, err
	}

	one, two := conversation.CanonicalPair(callerID, otherID)
	existing, err := s.conversations.GetByPair(ctx, one, two)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, relay_errors.ErrNotFound) {
		return conversation.Conversation{}, err
	}

	now := s.now()
	conv := conversation.Conversation{
		ID:        uuid.New(),
		UserOneID: one,
		UserTwoID: two,
		CreatedAt: now,
		UpdatedAt: now,
	}
	members := []conversation.Member{
		{ConversationID: conv.ID, UserID: one, JoinedAt: now},
	}
	if one != two {
		members = append(members, conversation.Member{ConversationID: conv.ID, UserID: two, JoinedAt: now})
	}

	err = s.conversations.Create(ctx, &conv, members)
	if err != nil {
		// Lost the creation race against the peer; their row wins.
		if errors.Is(err, relay_errors.ErrAlreadyExists) {
			return s.conversations.GetByPair(ctx, one, two)
		}
		return conversation.Conversation{}, err
	}
	return conv, nil
}

func (s *ConversationService) Get(ctx context.Context, conversationID, callerID uuid.UUID) (conversation.Conversation, error) {
	conv, err := s.conversations.GetByID(ctx, conversationID)
	if err != nil {
		return conversation.Conversation{}, err
	}
	if callerID != conv.UserOneID && callerID != conv.UserTwoID {
		return conversation.Conversation{}, relay_errors.ErrForbidden
	}
	return conv, nil
}

func (s *ConversationService) SetPinned(ctx context.Context, conversationID, callerID uuid.UUID, pinned bool) error {
	if _, err := s.Get(ctx, conversationID, callerID); err != nil {
		return err
	}
	var at *time.Time
	if pinned {
		now := s.now()
		at = &now
	}
	return s.conversations.SetPinned(ctx, conversationID, callerID, at)
}

func (s *ConversationService) SetArchived(ctx context.Context, conversationID, callerID uuid.UUID, archived bool) error {
	if _, err := s.Get(ctx, conversationID, callerID); err != nil {
		return err
	}
	var at *time.Time
	if archived {
		now := s.now()
		at = &now
	}
	return s.conversations.SetArchived(ctx, conversationID, callerID, at)
}

// Mute silences the conversation until the given horizon. A nil until
// with muted=true uses the default duration; muted=false clears it.
func (s *ConversationService) Mute(ctx context.Context, conversationID, callerID uuid.UUID, muted bool, until *time.Time) error {
	if _, err := s.Get(ctx, conversationID, callerID); err != nil {
		return err
	}
	if !muted {
		return s.conversations.SetMuted(ctx, conversationID, callerID, nil)
	}
	if until == nil {
		horizon := s.now().Add(DefaultMuteDuration)
		until = &horizon
	}
	return s.conversations.SetMuted(ctx, conversationID, callerID, until)
}

// SetLastRead records the caller's read pointer. The message must
// belong to the conversation.
func (s *ConversationService) SetLastRead(ctx context.Context, conversationID, callerID, messageID uuid.UUID) error {
	if _, err := s.Get(ctx, conversationID, callerID); err != nil {
		return err
	}
	msg, err := s.direct.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ParentID != conversationID {
		return relay_errors.ErrNotFound
	}
	return s.conversations.SetLastRead(ctx, conversationID, callerID, messageID)
}

// TouchLastSeen updates the caller's presence timestamp. Called from
// the auth middleware on each authenticated request.
func (s *ConversationService) TouchLastSeen(ctx context.Context, userID uuid.UUID) {
	if err := s.users.TouchLastSeen(ctx, userID, s.now()); err != nil && s.log != nil {
		s.log.Warnf("touch last seen failed: %v", err)
	}
}
