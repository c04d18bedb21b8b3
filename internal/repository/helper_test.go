package repository

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"relay-chat/internal/domain/conversation"
	"relay-chat/internal/domain/group"
	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/user"
	"relay-chat/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "relay.db")), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func seedableUser(name, phone string) user.User {
	return user.User{
		ID:          uuid.New(),
		DisplayName: name,
		Phone:       phone,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func seedUser(t *testing.T, db *gorm.DB, name, phone string) user.User {
	t.Helper()
	u := seedableUser(name, phone)
	require.NoError(t, NewUserRepository(db).Create(t.Context(), &u))
	return u
}

func seedConversation(t *testing.T, db *gorm.DB, a, b uuid.UUID) conversation.Conversation {
	t.Helper()
	one, two := conversation.CanonicalPair(a, b)
	now := time.Now()
	conv := conversation.Conversation{
		ID:        uuid.New(),
		UserOneID: one,
		UserTwoID: two,
		CreatedAt: now,
		UpdatedAt: now,
	}
	members := []conversation.Member{{ConversationID: conv.ID, UserID: one, JoinedAt: now}}
	if one != two {
		members = append(members, conversation.Member{ConversationID: conv.ID, UserID: two, JoinedAt: now})
	}
	require.NoError(t, NewConversationRepository(db).Create(t.Context(), &conv, members))
	return conv
}

func seedGroup(t *testing.T, db *gorm.DB, owner uuid.UUID, members ...uuid.UUID) group.Group {
	t.Helper()
	now := time.Now()
	grp := group.Group{
		ID:         uuid.New(),
		Name:       "test group",
		OwnerID:    owner,
		Type:       group.TypeGroup,
		InviteCode: uuid.NewString(),
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	rows := []group.Member{{GroupID: grp.ID, UserID: owner, Role: group.RoleAdmin, JoinedAt: now}}
	for _, m := range members {
		rows = append(rows, group.Member{GroupID: grp.ID, UserID: m, Role: group.RoleMember, JoinedAt: now})
	}
	require.NoError(t, NewGroupRepository(db).Create(t.Context(), &grp, rows))
	return grp
}

func seedMessage(t *testing.T, repo MessageRepository, parentID, senderID uuid.UUID, body string, at time.Time) message.Message {
	t.Helper()
	m := message.Message{
		ID:        uuid.New(),
		ParentID:  parentID,
		SenderID:  senderID,
		Type:      message.TypeText,
		Body:      sql.NullString{String: body, Valid: body != ""},
		CreatedAt: at,
		UpdatedAt: at,
	}
	require.NoError(t, repo.Create(t.Context(), &m))
	return m
}
