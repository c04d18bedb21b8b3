package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	"relay-chat/pkg/cipher"
	relay_errors "relay-chat/pkg/errors"
	"relay-chat/pkg/logger"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// DeleteForEveryoneWindow bounds how long after sending a message may
// still be recalled for all recipients. Measured against server time
// at the moment of the delete request.
const DeleteForEveryoneWindow = time.Hour

// MessageService implements the message store for both families: send,
// edit, the two delete flavors, reactions and listing, all written
// against the Thread interface.
type MessageService struct {
	db          *gorm.DB
	resolver    *ThreadResolver
	direct      repository.MessageRepository
	group       repository.MessageRepository
	statuses    repository.StatusRepository
	reactions   repository.ReactionRepository
	attachments repository.AttachmentRepository
	users       repository.UserRepository
	bus         events.Bus
	box         *cipher.Box
	log         *logger.Logger
	now         func() time.Time
}

func NewMessageService(
	db *gorm.DB,
	resolver *ThreadResolver,
	statuses repository.StatusRepository,
	reactions repository.ReactionRepository,
	attachments repository.AttachmentRepository,
	users repository.UserRepository,
	bus events.Bus,
	box *cipher.Box,
	log *logger.Logger,
) *MessageService {
	if bus == nil {
		bus = events.NoopBus{}
	}
	return &MessageService{
		db:          db,
		resolver:    resolver,
		direct:      repository.NewDirectMessageRepository(db),
		group:       repository.NewGroupMessageRepository(db),
		statuses:    statuses,
		reactions:   reactions,
		attachments: attachments,
		users:       users,
		bus:         bus,
		box:         box,
		log:         log,
		now:         time.Now,
	}
}

func (s *MessageService) repoFor(kind message.Kind) repository.MessageRepository {
	if kind == message.KindGroup {
		return s.group
	}
	return s.direct
}

func (s *MessageService) assembler() *viewAssembler {
	return &viewAssembler{
		users:       s.users,
		attachments: s.attachments,
		reactions:   s.reactions,
		directRepo:  s.direct,
		groupRepo:   s.group,
		box:         s.box,
	}
}

// ForwardRef names the message a forward copies from.
type ForwardRef struct {
	Kind      message.Kind
	MessageID uuid.UUID
}

type SendInput struct {
	Body          string
	ClientUUID    string
	ReplyToID     uuid.NullUUID
	ForwardFrom   *ForwardRef
	AttachmentIDs []uuid.UUID
	IsEncrypted   bool
	TTLHours      int
}

// Send creates a message in the thread. The whole mutation (message
// row, attachment re-parent, delivery seeding) commits atomically;
// fan-out happens after the commit and never fails the request.
// The returned bool is false on an idempotent replay.
func (s *MessageService) Send(ctx context.Context, thread Thread, senderID uuid.UUID, in SendInput) (MessageView, bool, error) {
	if err := thread.CanPost(ctx, senderID); err != nil {
		return MessageView{}, false, err
	}

	repo := s.repoFor(thread.Kind())
	if in.ClientUUID != "" {
		existing, err := repo.GetByClientUUID(ctx, thread.ID(), senderID, in.ClientUUID)
		if err == nil {
			view, verr := s.viewOne(ctx, thread.Kind(), existing)
			return view, false, verr
		}
		if !errors.Is(err, relay_errors.ErrNotFound) {
			return MessageView{}, false, err
		}
	}

	if strings.TrimSpace(in.Body) == "" && len(in.AttachmentIDs) == 0 && in.ForwardFrom == nil {
		return MessageView{}, false, relay_errors.ErrEmptyMessage
	}

	now := s.now()
	msg := message.Message{
		ID:          uuid.New(),
		ParentID:    thread.ID(),
		SenderID:    senderID,
		Type:        message.TypeText,
		IsEncrypted: in.IsEncrypted,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.ClientUUID != "" {
		msg.ClientUUID = sql.NullString{String: in.ClientUUID, Valid: true}
	}
	if in.Body != "" {
		body := in.Body
		if in.IsEncrypted {
			sealed, err := s.box.Seal(body)
			if err != nil {
				return MessageView{}, false, err
			}
			body = sealed
		}
		msg.Body = sql.NullString{String: body, Valid: true}
	}
	if in.TTLHours > 0 && thread.SupportsTTL() {
		msg.ExpiresAt = sql.NullTime{Time: now.Add(time.Duration(in.TTLHours) * time.Hour), Valid: true}
	}

	if in.ReplyToID.Valid {
		target, err := repo.GetByID(ctx, in.ReplyToID.UUID)
		if err != nil {
			return MessageView{}, false, err
		}
		if target.ParentID != thread.ID() {
			return MessageView{}, false, relay_errors.ErrNotFound
		}
		msg.ReplyToID = in.ReplyToID
	}

	if in.ForwardFrom != nil {
		if err := s.applyForward(ctx, &msg, senderID, *in.ForwardFrom); err != nil {
			return MessageView{}, false, err
		}
	}

	members, err := thread.MemberIDs(ctx)
	if err != nil {
		return MessageView{}, false, err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txRepo := txMessageRepo(tx, thread.Kind())
		if err := txRepo.Create(ctx, &msg); err != nil {
			return err
		}
		if len(in.AttachmentIDs) > 0 {
			txAttachments := repository.NewAttachmentRepository(tx)
			if err := txAttachments.Reparent(ctx, in.AttachmentIDs, senderID, thread.Kind(), msg.ID); err != nil {
				return err
			}
		}
		txStatuses := repository.NewStatusRepository(tx)
		for _, memberID := range members {
			if memberID == senderID {
				continue
			}
			if err := txStatuses.MarkDelivered(ctx, thread.Kind(), []uuid.UUID{msg.ID}, memberID, now); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		// A concurrent retry with the same client uuid lost the insert
		// race; the surviving row is the answer.
		if errors.Is(err, relay_errors.ErrAlreadyExists) && in.ClientUUID != "" {
			existing, ferr := repo.GetByClientUUID(ctx, thread.ID(), senderID, in.ClientUUID)
			if ferr == nil {
				view, verr := s.viewOne(ctx, thread.Kind(), existing)
				return view, false, verr
			}
		}
		return MessageView{}, false, err
	}

	view, err := s.viewOne(ctx, thread.Kind(), msg)
	if err != nil {
		return MessageView{}, false, err
	}
	s.publish(ctx, thread, senderID, events.EventTypeMessageCreated, view)
	return view, true, nil
}

// applyForward resolves provenance: re-forwarding keeps the original
// author, a first forward seeds it from the source message.
func (s *MessageService) applyForward(ctx context.Context, msg *message.Message, senderID uuid.UUID, ref ForwardRef) error {
	srcRepo := s.repoFor(ref.Kind)
	src, err := srcRepo.GetByID(ctx, ref.MessageID)
	if err != nil {
		return err
	}
	srcThread, err := s.resolver.Resolve(ctx, ref.Kind, src.ParentID)
	if err != nil {
		return err
	}
	ok, err := srcThread.IsMember(ctx, senderID)
	if err != nil {
		return err
	}
	if !ok {
		return relay_errors.ErrForbidden
	}

	msg.ForwardedFromID = uuid.NullUUID{UUID: src.ID, Valid: true}
	if src.ForwardOriginSenderID.Valid {
		msg.ForwardOriginSenderID = src.ForwardOriginSenderID
		msg.ForwardOriginSentAt = src.ForwardOriginSentAt
	} else {
		msg.ForwardOriginSenderID = uuid.NullUUID{UUID: src.SenderID, Valid: true}
		msg.ForwardOriginSentAt = sql.NullTime{Time: src.CreatedAt, Valid: true}
	}
	if !msg.Body.Valid {
		msg.Body = src.Body
		msg.IsEncrypted = src.IsEncrypted
	}
	return nil
}

// Edit replaces the body. Only the sender may edit; encrypted bodies
// are re-sealed before persisting.
func (s *MessageService) Edit(ctx context.Context, kind message.Kind, messageID, editorID uuid.UUID, newBody string) (MessageView, error) {
	repo := s.repoFor(kind)
	msg, err := repo.GetByID(ctx, messageID)
	if err != nil {
		return MessageView{}, err
	}
	if msg.SenderID != editorID {
		return MessageView{}, relay_errors.ErrForbidden
	}
	if strings.TrimSpace(newBody) == "" {
		return MessageView{}, relay_errors.ErrEmptyMessage
	}

	body := newBody
	if msg.IsEncrypted {
		sealed, err := s.box.Seal(body)
		if err != nil {
			return MessageView{}, err
		}
		body = sealed
	}
	now := s.now()
	msg.Body = sql.NullString{String: body, Valid: true}
	msg.EditedAt = sql.NullTime{Time: now, Valid: true}
	msg.UpdatedAt = now
	if err := repo.Update(ctx, msg); err != nil {
		return MessageView{}, err
	}

	view, err := s.viewOne(ctx, kind, msg)
	if err != nil {
		return MessageView{}, err
	}
	if thread, terr := s.resolver.Resolve(ctx, kind, msg.ParentID); terr == nil {
		s.publish(ctx, thread, editorID, events.EventTypeMessageUpdated, view)
	}
	return view, nil
}

// DeleteForMe hides the message from one member only.
func (s *MessageService) DeleteForMe(ctx context.Context, kind message.Kind, messageID, userID uuid.UUID) error {
	repo := s.repoFor(kind)
	msg, err := repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	thread, err := s.resolver.Resolve(ctx, kind, msg.ParentID)
	if err != nil {
		return err
	}
	ok, err := thread.IsMember(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return relay_errors.ErrForbidden
	}
	return s.statuses.MarkDeleted(ctx, kind, messageID, []uuid.UUID{userID}, s.now())
}

// DeleteForEveryone recalls the message for all members. Sender only,
// within the recall window. In a self-conversation the global flag is
// suppressed and the deletion collapses to delete-for-me.
func (s *MessageService) DeleteForEveryone(ctx context.Context, kind message.Kind, messageID, actorID uuid.UUID) error {
	repo := s.repoFor(kind)
	msg, err := repo.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != actorID {
		return relay_errors.ErrForbidden
	}
	if msg.DeletedForEveryoneAt.Valid {
		return relay_errors.ErrAlreadyDeleted
	}
	now := s.now()
	if now.Sub(msg.CreatedAt) > DeleteForEveryoneWindow {
		return relay_errors.ErrExpired
	}

	thread, err := s.resolver.Resolve(ctx, kind, msg.ParentID)
	if err != nil {
		return err
	}
	if thread.IsSelf() {
		return s.statuses.MarkDeleted(ctx, kind, messageID, []uuid.UUID{actorID}, now)
	}

	members, err := thread.MemberIDs(ctx)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := txMessageRepo(tx, kind).SetDeletedForEveryone(ctx, messageID, now); err != nil {
			return err
		}
		return repository.NewStatusRepository(tx).MarkDeleted(ctx, kind, messageID, members, now)
	})
	if err != nil {
		return err
	}

	s.publish(ctx, thread, actorID, events.EventTypeMessageDeleted, map[string]string{
		"message_id": messageID.String(),
	})
	return nil
}

// React sets the user's reaction, replacing any previous one.
func (s *MessageService) React(ctx context.Context, kind message.Kind, messageID, userID uuid.UUID, emoji string) error {
	if strings.TrimSpace(emoji) == "" {
		return relay_errors.ErrInvalidInput
	}
	thread, err := s.threadForMessage(ctx, kind, messageID, userID)
	if err != nil {
		return err
	}
	err = s.reactions.Upsert(ctx, &message.Reaction{
		MessageKind: kind,
		MessageID:   messageID,
		UserID:      userID,
		Emoji:       emoji,
		CreatedAt:   s.now(),
	})
	if err != nil {
		return err
	}
	s.publish(ctx, thread, userID, events.EventTypeReactionAdded, map[string]string{
		"message_id": messageID.String(),
		"emoji":      emoji,
	})
	return nil
}

// Unreact removes the user's reaction. A user holds at most one per
// message, so no emoji argument is needed.
func (s *MessageService) Unreact(ctx context.Context, kind message.Kind, messageID, userID uuid.UUID) error {
	thread, err := s.threadForMessage(ctx, kind, messageID, userID)
	if err != nil {
		return err
	}
	if err := s.reactions.Delete(ctx, kind, messageID, userID); err != nil {
		return err
	}
	s.publish(ctx, thread, userID, events.EventTypeReactionRemoved, map[string]string{
		"message_id": messageID.String(),
	})
	return nil
}

type ListInput struct {
	Before uuid.NullUUID
	After  uuid.NullUUID
	Limit  int
}

// List returns a visible page in chronological order and backfills
// missing delivery stamps for the viewer.
func (s *MessageService) List(ctx context.Context, thread Thread, viewerID uuid.UUID, in ListInput) ([]MessageView, error) {
	ok, err := thread.IsMember(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, relay_errors.ErrForbidden
	}

	now := s.now()
	msgs, err := s.repoFor(thread.Kind()).ListVisible(ctx, repository.ListQuery{
		ParentID:             thread.ID(),
		ViewerID:             viewerID,
		Before:               in.Before,
		After:                in.After,
		Limit:                in.Limit,
		Now:                  now,
		IncludeGlobalDeleted: thread.IsSelf(),
	})
	if err != nil {
		return nil, err
	}

	var undelivered []uuid.UUID
	for _, m := range msgs {
		if m.SenderID != viewerID {
			undelivered = append(undelivered, m.ID)
		}
	}
	if len(undelivered) > 0 {
		if err := s.statuses.MarkDelivered(ctx, thread.Kind(), undelivered, viewerID, now); err != nil {
			return nil, err
		}
	}

	return s.assembler().assemble(ctx, thread.Kind(), msgs)
}

// Search finds plain-text matches within one thread, under the same
// visibility filter as listing.
func (s *MessageService) Search(ctx context.Context, thread Thread, viewerID uuid.UUID, term string, limit int) ([]MessageView, error) {
	ok, err := thread.IsMember(ctx, viewerID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, relay_errors.ErrForbidden
	}
	msgs, err := s.repoFor(thread.Kind()).Search(ctx, thread.ID(), viewerID, term, limit, s.now(), thread.IsSelf())
	if err != nil {
		return nil, err
	}
	return s.assembler().assemble(ctx, thread.Kind(), msgs)
}

// Typing publishes an ephemeral typing signal; nothing is persisted.
func (s *MessageService) Typing(ctx context.Context, thread Thread, userID uuid.UUID, started bool) error {
	ok, err := thread.IsMember(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return relay_errors.ErrForbidden
	}
	eventType := events.EventTypeTypingStarted
	if !started {
		eventType = events.EventTypeTypingStopped
	}
	s.publish(ctx, thread, userID, eventType, map[string]string{"user_id": userID.String()})
	return nil
}

func (s *MessageService) threadForMessage(ctx context.Context, kind message.Kind, messageID, userID uuid.UUID) (Thread, error) {
	msg, err := s.repoFor(kind).GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	thread, err := s.resolver.Resolve(ctx, kind, msg.ParentID)
	if err != nil {
		return nil, err
	}
	ok, err := thread.IsMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, relay_errors.ErrForbidden
	}
	return thread, nil
}

func (s *MessageService) viewOne(ctx context.Context, kind message.Kind, msg message.Message) (MessageView, error) {
	views, err := s.assembler().assemble(ctx, kind, []message.Message{msg})
	if err != nil {
		return MessageView{}, err
	}
	return views[0], nil
}

// publish sends a fan-out envelope after the owning mutation has
// committed. Failures are logged and swallowed.
func (s *MessageService) publish(ctx context.Context, thread Thread, actorID uuid.UUID, eventType string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		return
	}
	env := events.Envelope{
		EventType:  eventType,
		ThreadKind: string(thread.Kind()),
		ThreadID:   thread.ID().String(),
		ActorID:    actorID.String(),
		OccurredAt: s.now(),
		Payload:    data,
	}
	if err := s.bus.Publish(ctx, env); err != nil && s.log != nil {
		s.log.Warnf("fan-out publish failed: %v", err)
	}
}

func txMessageRepo(tx *gorm.DB, kind message.Kind) repository.MessageRepository {
	if kind == message.KindGroup {
		return repository.NewGroupMessageRepository(tx)
	}
	return repository.NewDirectMessageRepository(tx)
}
