package services

import (
	"context"
	"encoding/json"
	"time"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	relay_errors "relay-chat/pkg/errors"
	"relay-chat/pkg/logger"

	"github.com/google/uuid"
)

// ReceiptService owns per-recipient delivered/read state. Stamps are
// set-once; the explicit mark-unread action is the only regression.
type ReceiptService struct {
	direct   repository.MessageRepository
	group    repository.MessageRepository
	statuses repository.StatusRepository
	resolver *ThreadResolver
	bus      events.Bus
	log      *logger.Logger
	now      func() time.Time
}

func NewReceiptService(
	direct, group repository.MessageRepository,
	statuses repository.StatusRepository,
	resolver *ThreadResolver,
	bus events.Bus,
	log *logger.Logger,
) *ReceiptService {
	if bus == nil {
		bus = events.NoopBus{}
	}
	return &ReceiptService{
		direct:   direct,
		group:    group,
		statuses: statuses,
		resolver: resolver,
		bus:      bus,
		log:      log,
		now:      time.Now,
	}
}

func (s *ReceiptService) repoFor(kind message.Kind) repository.MessageRepository {
	if kind == message.KindGroup {
		return s.group
	}
	return s.direct
}

// MarkRead stamps the given messages read for the user. Candidate ids
// are filtered down to the thread so a crafted batch cannot touch
// other conversations.
func (s *ReceiptService) MarkRead(ctx context.Context, thread Thread, userID uuid.UUID, messageIDs []uuid.UUID) error {
	ids, err := s.scope(ctx, thread, userID, messageIDs)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.statuses.MarkRead(ctx, thread.Kind(), ids, userID, s.now()); err != nil {
		return err
	}
	s.publish(ctx, thread, userID, events.EventTypeReceiptRead, ids)
	return nil
}

// MarkDelivered stamps delivery, typically when a client acknowledges
// push receipt.
func (s *ReceiptService) MarkDelivered(ctx context.Context, thread Thread, userID uuid.UUID, messageIDs []uuid.UUID) error {
	ids, err := s.scope(ctx, thread, userID, messageIDs)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}
	if err := s.statuses.MarkDelivered(ctx, thread.Kind(), ids, userID, s.now()); err != nil {
		return err
	}
	s.publish(ctx, thread, userID, events.EventTypeReceiptDelivered, ids)
	return nil
}

// MarkUnread clears the user's read stamps across the whole thread so
// it surfaces as unread again.
func (s *ReceiptService) MarkUnread(ctx context.Context, thread Thread, userID uuid.UUID) error {
	ok, err := thread.IsMember(ctx, userID)
	if err != nil {
		return err
	}
	if !ok {
		return relay_errors.ErrForbidden
	}
	if err := s.statuses.ClearRead(ctx, thread.Kind(), thread.ID(), userID); err != nil {
		return err
	}
	s.publish(ctx, thread, userID, events.EventTypeReceiptUnread, nil)
	return nil
}

// UnreadCount counts visible messages from others the user has not
// read.
func (s *ReceiptService) UnreadCount(ctx context.Context, thread Thread, userID uuid.UUID) (int64, error) {
	ok, err := thread.IsMember(ctx, userID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, relay_errors.ErrForbidden
	}
	return s.repoFor(thread.Kind()).CountUnread(ctx, thread.ID(), userID, s.now(), thread.IsSelf())
}

// ReceiptView is the per-recipient state of one message.
type ReceiptView struct {
	UserID      uuid.UUID  `json:"user_id"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	ReadAt      *time.Time `json:"read_at,omitempty"`
}

// Receipts lists delivered/read stamps for one message. Only the
// sender sees the full breakdown.
func (s *ReceiptService) Receipts(ctx context.Context, kind message.Kind, messageID, viewerID uuid.UUID) ([]ReceiptView, error) {
	msg, err := s.repoFor(kind).GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != viewerID {
		return nil, relay_errors.ErrForbidden
	}
	statuses, err := s.statuses.ListForMessage(ctx, kind, messageID)
	if err != nil {
		return nil, err
	}
	views := make([]ReceiptView, 0, len(statuses))
	for _, st := range statuses {
		v := ReceiptView{UserID: st.UserID}
		if st.DeliveredAt.Valid {
			t := st.DeliveredAt.Time
			v.DeliveredAt = &t
		}
		if st.ReadAt.Valid {
			t := st.ReadAt.Time
			v.ReadAt = &t
		}
		views = append(views, v)
	}
	return views, nil
}

func (s *ReceiptService) scope(ctx context.Context, thread Thread, userID uuid.UUID, messageIDs []uuid.UUID) ([]uuid.UUID, error) {
	ok, err := thread.IsMember(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, relay_errors.ErrForbidden
	}
	if len(messageIDs) == 0 {
		return nil, nil
	}
	return s.repoFor(thread.Kind()).IDsInParent(ctx, thread.ID(), messageIDs)
}

func (s *ReceiptService) publish(ctx context.Context, thread Thread, actorID uuid.UUID, eventType string, messageIDs []uuid.UUID) {
	payload := map[string]interface{}{"user_id": actorID.String()}
	if len(messageIDs) > 0 {
		ids := make([]string, 0, len(messageIDs))
		for _, id := range messageIDs {
			ids = append(ids, id.String())
		}
		payload["message_ids"] = ids
	}
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
		s.log.Warnf("receipt fan-out failed: %v", err)
	}
}
