package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"relay-chat/internal/domain/message"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresStatusRepository struct {
	db *gorm.DB
}

func NewStatusRepository(db *gorm.DB) StatusRepository {
	return &PostgresStatusRepository{db: db}
}

func (r *PostgresStatusRepository) Get(ctx context.Context, kind message.Kind, messageID, userID uuid.UUID) (message.Status, error) {
	var s message.Status
	err := r.db.WithContext(ctx).
		Where("message_kind = ? AND message_id = ? AND user_id = ?", kind, messageID, userID).
		First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return message.Status{}, relay_errors.ErrNotFound
		}
		return message.Status{}, err
	}
	return s, nil
}

func (r *PostgresStatusRepository) ListForMessage(ctx context.Context, kind message.Kind, messageID uuid.UUID) ([]message.Status, error) {
	var statuses []message.Status
	err := r.db.WithContext(ctx).
		Where("message_kind = ? AND message_id = ?", kind, messageID).
		Find(&statuses).Error
	if err != nil {
		return nil, err
	}
	return statuses, nil
}

func (r *PostgresStatusRepository) MarkDelivered(ctx context.Context, kind message.Kind, messageIDs []uuid.UUID, userID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, msgID := range messageIDs {
			res := tx.Model(&message.Status{}).
				Where("message_kind = ? AND message_id = ? AND user_id = ? AND delivered_at IS NULL", kind, msgID, userID).
				Updates(map[string]interface{}{
					"delivered_at": now,
					"updated_at":   now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				if err := createStatusIfMissing(tx, kind, msgID, userID, message.Status{
					MessageKind: kind,
					MessageID:   msgID,
					UserID:      userID,
					DeliveredAt: sql.NullTime{Time: now, Valid: true},
					UpdatedAt:   now,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// MarkRead is set-once: an existing read_at is never advanced or
// rewound here. Reading implies delivery, so a missing delivered stamp
// is filled in the same pass.
func (r *PostgresStatusRepository) MarkRead(ctx context.Context, kind message.Kind, messageIDs []uuid.UUID, userID uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, msgID := range messageIDs {
			res := tx.Model(&message.Status{}).
				Where("message_kind = ? AND message_id = ? AND user_id = ? AND read_at IS NULL", kind, msgID, userID).
				Updates(map[string]interface{}{
					"read_at":    now,
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				if err := createStatusIfMissing(tx, kind, msgID, userID, message.Status{
					MessageKind: kind,
					MessageID:   msgID,
					UserID:      userID,
					DeliveredAt: sql.NullTime{Time: now, Valid: true},
					ReadAt:      sql.NullTime{Time: now, Valid: true},
					UpdatedAt:   now,
				}); err != nil {
					return err
				}
				continue
			}
			if err := tx.Model(&message.Status{}).
				Where("message_kind = ? AND message_id = ? AND user_id = ? AND delivered_at IS NULL", kind, msgID, userID).
				Update("delivered_at", now).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresStatusRepository) ClearRead(ctx context.Context, kind message.Kind, parentID, userID uuid.UUID) error {
	sub := fmt.Sprintf("SELECT id FROM %s WHERE parent_id = ? AND sender_id <> ?", kind.Table())
	return r.db.WithContext(ctx).Model(&message.Status{}).
		Where("message_kind = ? AND user_id = ? AND message_id IN ("+sub+")", kind, userID, parentID, userID).
		Update("read_at", nil).Error
}

func (r *PostgresStatusRepository) MarkDeleted(ctx context.Context, kind message.Kind, messageID uuid.UUID, userIDs []uuid.UUID, now time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, userID := range userIDs {
			res := tx.Model(&message.Status{}).
				Where("message_kind = ? AND message_id = ? AND user_id = ?", kind, messageID, userID).
				Updates(map[string]interface{}{
					"deleted_at": now,
					"updated_at": now,
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				if err := createStatusIfMissing(tx, kind, messageID, userID, message.Status{
					MessageKind: kind,
					MessageID:   messageID,
					UserID:      userID,
					DeletedAt:   sql.NullTime{Time: now, Valid: true},
					UpdatedAt:   now,
				}); err != nil {
					return err
				}
			}
		}
		return nil
	})
}

// createStatusIfMissing absorbs the race where two requests seed the
// same (message, user) row at once: the loser re-applies its stamps
// behind the same null guards, so a concurrently set read_at survives.
func createStatusIfMissing(tx *gorm.DB, kind message.Kind, messageID, userID uuid.UUID, s message.Status) error {
	err := tx.Create(&s).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	row := tx.Model(&message.Status{}).
		Where("message_kind = ? AND message_id = ? AND user_id = ?", kind, messageID, userID)
	if s.DeliveredAt.Valid {
		if err := row.Session(&gorm.Session{}).
			Where("delivered_at IS NULL").
			Update("delivered_at", s.DeliveredAt.Time).Error; err != nil {
			return err
		}
	}
	if s.ReadAt.Valid {
		if err := row.Session(&gorm.Session{}).
			Where("read_at IS NULL").
			Update("read_at", s.ReadAt.Time).Error; err != nil {
			return err
		}
	}
	if s.DeletedAt.Valid {
		if err := row.Session(&gorm.Session{}).
			Update("deleted_at", s.DeletedAt.Time).Error; err != nil {
			return err
		}
	}
	return nil
}
