package repository

import (
	"context"
	"database/sql"
	"errors"

	"relay-chat/internal/domain/message"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PostgresReactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) ReactionRepository {
	return &PostgresReactionRepository{db: db}
}

// Upsert replaces any previous reaction the user holds on the message.
func (r *PostgresReactionRepository) Upsert(ctx context.Context, reaction *message.Reaction) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{
				{Name: "message_kind"}, {Name: "message_id"}, {Name: "user_id"},
			},
			DoUpdates: clause.AssignmentColumns([]string{"emoji", "created_at"}),
		}).
		Create(reaction).Error
}

func (r *PostgresReactionRepository) Delete(ctx context.Context, kind message.Kind, messageID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Delete(&message.Reaction{}, "message_kind = ? AND message_id = ? AND user_id = ?", kind, messageID, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresReactionRepository) ListForMessages(ctx context.Context, kind message.Kind, messageIDs []uuid.UUID) ([]message.Reaction, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var reactions []message.Reaction
	err := r.db.WithContext(ctx).
		Where("message_kind = ? AND message_id IN (?)", kind, messageIDs).
		Find(&reactions).Error
	if err != nil {
		return nil, err
	}
	return reactions, nil
}

type PostgresAttachmentRepository struct {
	db *gorm.DB
}

func NewAttachmentRepository(db *gorm.DB) AttachmentRepository {
	return &PostgresAttachmentRepository{db: db}
}

func (r *PostgresAttachmentRepository) Create(ctx context.Context, a *message.Attachment) error {
	res := r.db.WithContext(ctx).Create(a)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return relay_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresAttachmentRepository) GetByIDs(ctx context.Context, ids []uuid.UUID) ([]message.Attachment, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var attachments []message.Attachment
	err := r.db.WithContext(ctx).Where("id IN (?)", ids).Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}

// Reparent is the only attachment mutation the core performs: detached
// uploads owned by ownerID are linked to the new message in one
// statement. A shortfall in affected rows means an attachment was
// missing, foreign or already parented, and the enclosing transaction
// rolls back.
func (r *PostgresAttachmentRepository) Reparent(ctx context.Context, ids []uuid.UUID, ownerID uuid.UUID, kind message.Kind, messageID uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&message.Attachment{}).
		Where("id IN (?) AND owner_id = ? AND attachable_id IS NULL", ids, ownerID).
		Updates(map[string]interface{}{
			"attachable_kind": string(kind),
			"attachable_id":   messageID,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != int64(len(ids)) {
		return relay_errors.ErrForbidden
	}
	return nil
}

func (r *PostgresAttachmentRepository) ListForMessages(ctx context.Context, kind message.Kind, messageIDs []uuid.UUID) ([]message.Attachment, error) {
	if len(messageIDs) == 0 {
		return nil, nil
	}
	var attachments []message.Attachment
	err := r.db.WithContext(ctx).
		Where("attachable_kind = ? AND attachable_id IN (?)", sql.NullString{String: string(kind), Valid: true}, messageIDs).
		Find(&attachments).Error
	if err != nil {
		return nil, err
	}
	return attachments, nil
}
