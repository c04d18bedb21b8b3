package conversation

import (
	"bytes"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Conversation represents the conversations table. The pair is stored
// canonicalized (UserOneID <= UserTwoID by byte order) so one row exists
// per pair. A self-conversation ("saved messages") is the pair (u, u).
type Conversation struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserOneID uuid.UUID `gorm:"type:uuid;uniqueIndex:ux_conversation_pair"`
	UserTwoID uuid.UUID `gorm:"type:uuid;uniqueIndex:ux_conversation_pair"`
	CreatedAt time.Time
	UpdatedAt time.Time

	Members []Member `gorm:"foreignKey:ConversationID"`
}

// Member represents the conversation_members pivot. Preference columns
// are mutated only by the member they belong to.
type Member struct {
	ConversationID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserID            uuid.UUID `gorm:"type:uuid;primaryKey"`
	PinnedAt          sql.NullTime
	MutedUntil        sql.NullTime
	ArchivedAt        sql.NullTime
	LastReadMessageID uuid.NullUUID `gorm:"type:uuid"`
	JoinedAt          time.Time
}

func (Conversation) TableName() string {
	return "conversations"
}

func (Member) TableName() string {
	return "conversation_members"
}

// IsSelf reports whether the conversation is a single-member notes
// thread. Canonical ordering makes the structural test exact.
func (c Conversation) IsSelf() bool {
	return c.UserOneID == c.UserTwoID
}

// OtherMember returns the counterpart of userID in the pair. For a
// self-conversation both sides are the viewer.
func (c Conversation) OtherMember(userID uuid.UUID) uuid.UUID {
	if c.UserOneID == userID {
		return c.UserTwoID
	}
	return c.UserOneID
}

// CanonicalPair orders two user ids so (a, b) and (b, a) map to the
// same conversation row.
func CanonicalPair(a, b uuid.UUID) (uuid.UUID, uuid.UUID) {
	if bytes.Compare(a[:], b[:]) > 0 {
		return b, a
	}
	return a, b
}
