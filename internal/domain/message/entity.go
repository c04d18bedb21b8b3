package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Kind discriminates the two message families. Statuses, reactions and
// attachments carry it so one pivot table serves both.
type Kind string

const (
	KindDirect Kind = "direct"
	KindGroup  Kind = "group"
)

// Table returns the message table backing a kind.
func (k Kind) Table() string {
	if k == KindGroup {
		return "group_messages"
	}
	return "direct_messages"
}

const (
	TypeText   = "TEXT"
	TypeSystem = "SYSTEM"
)

// Message is the row shape shared by direct_messages and
// group_messages. ParentID is the conversation id or the group id
// depending on the table the row lives in.
type Message struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey"`
	ParentID uuid.UUID `gorm:"type:uuid;index"`
	SenderID uuid.UUID `gorm:"type:uuid"`
	Type     string    `gorm:"default:TEXT"`
	Body     sql.NullString
	// Metadata carries the system-event payload for SYSTEM rows.
	Metadata   string
	ClientUUID sql.NullString
	ReplyToID  uuid.NullUUID `gorm:"type:uuid"`
	// Forward provenance. The origin fields always name the ultimate
	// original author, however many times the message is re-forwarded.
	ForwardedFromID       uuid.NullUUID `gorm:"type:uuid"`
	ForwardOriginSenderID uuid.NullUUID `gorm:"type:uuid"`
	ForwardOriginSentAt   sql.NullTime
	IsEncrypted           bool
	ExpiresAt             sql.NullTime
	EditedAt              sql.NullTime
	DeletedForEveryoneAt  sql.NullTime
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// Status represents message_statuses: one row per (message, recipient),
// created lazily on first delivery, read or delete-for-me action.
type Status struct {
	MessageKind Kind      `gorm:"primaryKey"`
	MessageID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	DeliveredAt sql.NullTime
	ReadAt      sql.NullTime
	DeletedAt   sql.NullTime
	UpdatedAt   time.Time
}

// Reaction represents message_reactions. A user holds at most one
// reaction per message; writes replace any previous emoji.
type Reaction struct {
	MessageKind Kind      `gorm:"primaryKey"`
	MessageID   uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID      uuid.UUID `gorm:"type:uuid;primaryKey"`
	Emoji       string
	CreatedAt   time.Time
}

// Attachment represents the attachments table. Rows are created
// detached by the upload subsystem and re-parented to exactly one
// message at send time; re-parenting is the only mutation the core
// performs on them.
type Attachment struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey"`
	OwnerID        uuid.UUID `gorm:"type:uuid"`
	AttachableKind sql.NullString
	AttachableID   uuid.NullUUID `gorm:"type:uuid;index"`
	FilePath       string
	MimeType       string
	SizeBytes      int64
	CreatedAt      time.Time
}

func (Status) TableName() string {
	return "message_statuses"
}

func (Reaction) TableName() string {
	return "message_reactions"
}

func (Attachment) TableName() string {
	return "attachments"
}

// Expired reports whether the message's TTL has passed at now.
func (m Message) Expired(now time.Time) bool {
	return m.ExpiresAt.Valid && !m.ExpiresAt.Time.After(now)
}
