package group

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

const (
	TypeGroup   = "GROUP"
	TypeChannel = "CHANNEL"
)

const (
	RoleMember = "MEMBER"
	RoleAdmin  = "ADMIN"
	// The owner is Group.OwnerID, never a role value.
)

// Group represents the groups table
type Group struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name        string
	Description sql.NullString
	AvatarURL   sql.NullString
	OwnerID     uuid.UUID `gorm:"type:uuid"`
	Type        string    `gorm:"default:GROUP"`
	IsPublic    bool
	IsPrivate   bool
	InviteCode  string `gorm:"uniqueIndex"`
	MessageLock bool
	CreatedAt   time.Time
	UpdatedAt   time.Time

	Members []Member `gorm:"foreignKey:GroupID"`
}

// Member represents the group_members pivot
type Member struct {
	GroupID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID     uuid.UUID `gorm:"type:uuid;primaryKey"`
	Role       string    `gorm:"default:MEMBER"`
	JoinedAt   time.Time
	PinnedAt   sql.NullTime
	MutedUntil sql.NullTime
	ArchivedAt sql.NullTime
}

func (Group) TableName() string {
	return "groups"
}

func (Member) TableName() string {
	return "group_members"
}

// IsOwner reports whether userID owns the group. Owners hold every
// admin capability without appearing in the role column.
func (g Group) IsOwner(userID uuid.UUID) bool {
	return g.OwnerID == userID
}
