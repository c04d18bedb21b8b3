package repository

import (
	"context"
	"errors"
	"time"

	"relay-chat/internal/domain/group"
	relay_errors "relay-chat/pkg/errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostgresGroupRepository struct {
	db *gorm.DB
}

func NewGroupRepository(db *gorm.DB) GroupRepository {
	return &PostgresGroupRepository{db: db}
}

func (r *PostgresGroupRepository) Create(ctx context.Context, g *group.Group, members []group.Member) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return relay_errors.ErrAlreadyExists
			}
			return err
		}
		for i := range members {
			members[i].GroupID = g.ID
			if err := tx.Create(&members[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *PostgresGroupRepository) GetByID(ctx context.Context, id uuid.UUID) (group.Group, error) {
	var g group.Group
	err := r.db.WithContext(ctx).
		Preload("Members").
		Where("id = ?", id).
		First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return group.Group{}, relay_errors.ErrNotFound
		}
		return group.Group{}, err
	}
	return g, nil
}

func (r *PostgresGroupRepository) GetByInviteCode(ctx context.Context, code string) (group.Group, error) {
	var g group.Group
	err := r.db.WithContext(ctx).
		Preload("Members").
		Where("invite_code = ?", code).
		First(&g).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return group.Group{}, relay_errors.ErrNotFound
		}
		return group.Group{}, err
	}
	return g, nil
}

func (r *PostgresGroupRepository) ListForUser(ctx context.Context, userID uuid.UUID) ([]group.Group, error) {
	var groups []group.Group
	subQuery := r.db.Model(&group.Member{}).
		Select("group_id").
		Where("user_id = ?", userID)
	err := r.db.WithContext(ctx).
		Preload("Members").
		Where("id IN (?)", subQuery).
		Find(&groups).Error
	if err != nil {
		return nil, err
	}
	return groups, nil
}

func (r *PostgresGroupRepository) AddMember(ctx context.Context, m *group.Member) error {
	res := r.db.WithContext(ctx).Create(m)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return relay_errors.ErrAlreadyExists
		}
		return res.Error
	}
	return nil
}

func (r *PostgresGroupRepository) RemoveMember(ctx context.Context, groupID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Delete(&group.Member{}, "group_id = ? AND user_id = ?", groupID, userID)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresGroupRepository) GetMember(ctx context.Context, groupID, userID uuid.UUID) (group.Member, error) {
	var m group.Member
	err := r.db.WithContext(ctx).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		First(&m).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return group.Member{}, relay_errors.ErrNotFound
		}
		return group.Member{}, err
	}
	return m, nil
}

func (r *PostgresGroupRepository) ListMembers(ctx context.Context, groupID uuid.UUID) ([]group.Member, error) {
	var members []group.Member
	err := r.db.WithContext(ctx).
		Where("group_id = ?", groupID).
		Find(&members).Error
	if err != nil {
		return nil, err
	}
	return members, nil
}

func (r *PostgresGroupRepository) IsMember(ctx context.Context, groupID, userID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&group.Member{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *PostgresGroupRepository) UpdateRole(ctx context.Context, groupID, userID uuid.UUID, role string) error {
	res := r.db.WithContext(ctx).
		Model(&group.Member{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update("role", role)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresGroupRepository) SetMessageLock(ctx context.Context, groupID uuid.UUID, locked bool) error {
	res := r.db.WithContext(ctx).
		Model(&group.Group{}).
		Where("id = ?", groupID).
		Update("message_lock", locked)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresGroupRepository) updateMember(ctx context.Context, groupID, userID uuid.UUID, column string, value interface{}) error {
	res := r.db.WithContext(ctx).
		Model(&group.Member{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Update(column, value)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return relay_errors.ErrNotFound
	}
	return nil
}

func (r *PostgresGroupRepository) SetPinned(ctx context.Context, groupID, userID uuid.UUID, at *time.Time) error {
	return r.updateMember(ctx, groupID, userID, "pinned_at", at)
}

func (r *PostgresGroupRepository) SetMuted(ctx context.Context, groupID, userID uuid.UUID, until *time.Time) error {
	return r.updateMember(ctx, groupID, userID, "muted_until", until)
}

func (r *PostgresGroupRepository) SetArchived(ctx context.Context, groupID, userID uuid.UUID, at *time.Time) error {
	return r.updateMember(ctx, groupID, userID, "archived_at", at)
}
