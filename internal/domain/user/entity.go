package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents the users table
type User struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey"`
	DisplayName string
	Phone       string `gorm:"uniqueIndex"`
	AvatarURL   sql.NullString
	LastSeenAt  sql.NullTime
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (User) TableName() string {
	return "users"
}
