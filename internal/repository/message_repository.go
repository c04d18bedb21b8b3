package repository

import (
	"context"
	"errors"
	"time"

	"relay-chat/internal/domain/message"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PostgresMessageRepository serves one message family. The direct and
// group families share the row shape and every query; only the table
// differs, so the repository is instantiated once per kind.
type PostgresMessageRepository struct {
	db   *gorm.DB
	kind message.Kind
}

func NewDirectMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db, kind: message.KindDirect}
}

func NewGroupMessageRepository(db *gorm.DB) MessageRepository {
	return &PostgresMessageRepository{db: db, kind: message.KindGroup}
}

func (r *PostgresMessageRepository) Kind() message.Kind {
	return r.kind
}

func (r *PostgresMessageRepository) scope(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table(r.kind.Table())
}

func (r *PostgresMessageRepository) Create(ctx context.Context, m *message.Message) error {
	res := r.scope(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return relay_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresMessageRepository) GetByID(ctx context.Context, id uuid.UUID) (message.Message, error) {
	var m message.Message
	err := r.scope(ctx).Where("id = ?", id).First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, relay_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) GetByClientUUID(ctx context.Context, parentID, senderID uuid.UUID, clientUUID string) (message.Message, error) {
	var m message.Message
	err := r.scope(ctx).
		Where("parent_id = ? AND sender_id = ? AND client_uuid = ?", parentID, senderID, clientUUID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, relay_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) Update(ctx context.Context, m message.Message) error {
	res := r.scope(ctx).Where("id = ?", m.ID).Updates(&m)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresMessageRepository) SetDeletedForEveryone(ctx context.Context, id uuid.UUID, at time.Time) error {
	res := r.scope(ctx).
		Where("id = ? AND deleted_for_everyone_at IS NULL", id).
		Updates(map[string]interface{}{
			"deleted_for_everyone_at": at,
			"updated_at":              at,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrAlreadyDeleted
	}
	return nil
}

// visible applies the filter every message listing shares: TTL not
// passed, not soft-deleted for the viewer, not deleted for everyone
// (unless the parent is a self-conversation).
func (r *PostgresMessageRepository) visible(q *gorm.DB, viewerID uuid.UUID, now time.Time, includeGlobalDeleted bool) *gorm.DB {
	q = q.Where("expires_at IS NULL OR expires_at > ?", now)
	if !includeGlobalDeleted {
		q = q.Where("deleted_for_everyone_at IS NULL")
	}
	return q.Where(
		"id NOT IN (SELECT message_id FROM message_statuses WHERE message_kind = ? AND user_id = ? AND deleted_at IS NOT NULL)",
		r.kind, viewerID)
}

func (r *PostgresMessageRepository) ListVisible(ctx context.Context, lq ListQuery) ([]message.Message, error) {
	limit := lq.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	q := r.scope(ctx).Where("parent_id = ?", lq.ParentID)
	q = r.visible(q, lq.ViewerID, lq.Now, lq.IncludeGlobalDeleted)

	ascending := false
	if lq.Before.Valid {
		anchor, err := r.GetByID(ctx, lq.Before.UUID)
		if err != nil {
			return nil, err
		}
		q = q.Where("created_at < ? OR (created_at = ? AND id < ?)", anchor.CreatedAt, anchor.CreatedAt, anchor.ID)
	} else if lq.After.Valid {
		anchor, err := r.GetByID(ctx, lq.After.UUID)
		if err != nil {
			return nil, err
		}
		q = q.Where("created_at > ? OR (created_at = ? AND id > ?)", anchor.CreatedAt, anchor.CreatedAt, anchor.ID)
		ascending = true
	}

	var msgs []message.Message
	if ascending {
		err := q.Order("created_at ASC, id ASC").Limit(limit).Find(&msgs).Error
		return msgs, err
	}

	// Latest-N queries fetch descending with a limit, then reverse so
	// callers always render in chronological order.
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *PostgresMessageRepository) LatestVisible(ctx context.Context, parentID, viewerID uuid.UUID, now time.Time, includeGlobalDeleted bool) (message.Message, error) {
	var m message.Message
	q := r.scope(ctx).Where("parent_id = ?", parentID)
	q = r.visible(q, viewerID, now, includeGlobalDeleted)
	err := q.Order("created_at DESC, id DESC").First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Message{}, relay_errors.ErrNotFound
		}
		return message.Message{}, err
	}
	return m, nil
}

func (r *PostgresMessageRepository) CountUnread(ctx context.Context, parentID, viewerID uuid.UUID, now time.Time, includeGlobalDeleted bool) (int64, error) {
	var count int64
	q := r.scope(ctx).
		Where("parent_id = ? AND sender_id <> ?", parentID, viewerID)
	q = r.visible(q, viewerID, now, includeGlobalDeleted)
	err := q.Where(
		"id NOT IN (SELECT message_id FROM message_statuses WHERE message_kind = ? AND user_id = ? AND read_at IS NOT NULL)",
		r.kind, viewerID).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

func (r *PostgresMessageRepository) Search(ctx context.Context, parentID, viewerID uuid.UUID, term string, limit int, now time.Time, includeGlobalDeleted bool) ([]message.Message, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	var msgs []message.Message
	q := r.scope(ctx).
		Where("parent_id = ? AND is_encrypted = ? AND body LIKE ?", parentID, false, "%"+term+"%")
	q = r.visible(q, viewerID, now, includeGlobalDeleted)
	err := q.Order("created_at DESC, id DESC").Limit(limit).Find(&msgs).Error
	if err != nil {
		return nil, err
	}
	return msgs, nil
}

func (r *PostgresMessageRepository) IDsInParent(ctx context.Context, parentID uuid.UUID, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var found []uuid.UUID
	err := r.scope(ctx).
		Where("parent_id = ? AND id IN (?)", parentID, ids).
		Pluck("id", &found).Error
	if err != nil {
		return nil, err
	}
	return found, nil
}
