package repository

import (
	"context"
	"errors"
	"time"

	"relay-chat/internal/domain/conversation"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresConversationRepository struct {
	db *gorm.DB
}

func NewConversationRepository(db *gorm.DB) ConversationRepository {
	return &PostgresConversationRepository{db: db}
}

func (r *PostgresConversationRepository) Create(ctx context.Context, c *conversation.Conversation, members []conversation.Member) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return relay_errors.ErrAlreadyExists
			}
			return err
		}
		for i := range members {
			members[i].ConversationID = c.ID
			if err := tx.Create(&members[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (conversation.Conversation, error) {
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Preload("Members").
		Where("id = ?", id).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, relay_errors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) GetByPair(ctx context.Context, userOne, userTwo uuid.UUID) (conversation.Conversation, error) {
	one, two := conversation.CanonicalPair(userOne, userTwo)
	var c conversation.Conversation
	err := r.db.WithContext(ctx).
		Preload("Members").
		Where("user_one_id = ? AND user_two_id = ?", one, two).
		First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Conversation{}, relay_errors.ErrNotFound
		}
		return conversation.Conversation{}, err
	}
	return c, nil
}

func (r *PostgresConversationRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]conversation.Conversation, error) {
	var conversations []conversation.Conversation
	err := r.db.WithContext(ctx).
		Preload("Members").
		Where("user_one_id = ? OR user_two_id = ?", userID, userID).
		Find(&conversations).Error
	if err != nil {
		return nil, err
	}
	return conversations, nil
}

func (r *PostgresConversationRepository) GetMember(ctx context.Context, conversationID, userID uuid.UUID) (conversation.Member, error) {
	var m conversation.Member
	err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return conversation.Member{}, relay_errors.ErrNotFound
		}
		return conversation.Member{}, err
	}
	return m, nil
}

func (r *PostgresConversationRepository) IsMember(ctx context.Context, conversationID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&conversation.Member{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresConversationRepository) updateMember(ctx context.Context, conversationID, userID uuid.UUID, column string, value interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&conversation.Member{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresConversationRepository) SetPinned(ctx context.Context, conversationID, userID uuid.UUID, at *time.Time) error {
	return r.updateMember(ctx, conversationID, userID, "pinned_at", at)
}

func (r *PostgresConversationRepository) SetMuted(ctx context.Context, conversationID, userID uuid.UUID, until *time.Time) error {
	return r.updateMember(ctx, conversationID, userID, "muted_until", until)
}

func (r *PostgresConversationRepository) SetArchived(ctx context.Context, conversationID, userID uuid.UUID, at *time.Time) error {
	return r.updateMember(ctx, conversationID, userID, "archived_at", at)
}

func (r *PostgresConversationRepository) SetLastRead(ctx context.Context, conversationID, userID, messageID uuid.UUID) error {
	return r.updateMember(ctx, conversationID, userID, "last_read_message_id", messageID)
}
