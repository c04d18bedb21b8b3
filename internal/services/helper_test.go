package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"relay-chat/internal/domain/user"
	"relay-chat/internal/events"
	"relay-chat/internal/repository"
	"relay-chat/pkg/cipher"
	"relay-chat/pkg/database"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// fixture wires every service against a throwaway sqlite database and
// a recording bus.
type fixture struct {
	db            *gorm.DB
	bus           *recordingBus
	box           *cipher.Box
	users         repository.UserRepository
	conversations repository.ConversationRepository
	groups        repository.GroupRepository
	direct        repository.MessageRepository
	groupMsgs     repository.MessageRepository
	statuses      repository.StatusRepository
	attachments   repository.AttachmentRepository
	resolver      *ThreadResolver

	messages *MessageService
	receipts *ReceiptService
	convs    *ConversationService
	grps     *GroupService
	inbox    *InboxService
}

// recordingBus captures published envelopes for assertions.
type recordingBus struct {
	envelopes []events.Envelope
}

func (b *recordingBus) Publish(ctx context.Context, env events.Envelope) error {
	b.envelopes = append(b.envelopes, env)
	return nil
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "relay.db")), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	bus := &recordingBus{}
	box := cipher.New("test-key")

	users := repository.NewUserRepository(db)
	conversations := repository.NewConversationRepository(db)
	groups := repository.NewGroupRepository(db)
	direct := repository.NewDirectMessageRepository(db)
	groupMsgs := repository.NewGroupMessageRepository(db)
	statuses := repository.NewStatusRepository(db)
	reactions := repository.NewReactionRepository(db)
	attachments := repository.NewAttachmentRepository(db)
	resolver := NewThreadResolver(conversations, groups)

	return &fixture{
		db:            db,
		bus:           bus,
		box:           box,
		users:         users,
		conversations: conversations,
		groups:        groups,
		direct:        direct,
		groupMsgs:     groupMsgs,
		statuses:      statuses,
		attachments:   attachments,
		resolver:      resolver,
		messages:      NewMessageService(db, resolver, statuses, reactions, attachments, users, bus, box, nil),
		receipts:      NewReceiptService(direct, groupMsgs, statuses, resolver, bus, nil),
		convs:         NewConversationService(conversations, users, direct, nil),
		grps:          NewGroupService(db, groups, users, bus, nil),
		inbox:         NewInboxService(conversations, groups, users, direct, groupMsgs, attachments, box, nil),
	}
}

func (f *fixture) user(t *testing.T, name, phone string) user.User {
	t.Helper()
	u := user.User{
		ID:          uuid.New(),
		DisplayName: name,
		Phone:       phone,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	require.NoError(t, f.users.Create(t.Context(), &u))
	return u
}

func (f *fixture) directThread(t *testing.T, a, b uuid.UUID) Thread {
	t.Helper()
	conv, err := f.convs.GetOrCreateDirect(t.Context(), a, b)
	require.NoError(t, err)
	thread, err := f.resolver.Conversation(t.Context(), conv.ID)
	require.NoError(t, err)
	return thread
}

func (f *fixture) groupThread(t *testing.T, owner uuid.UUID, members ...uuid.UUID) Thread {
	t.Helper()
	grp, err := f.grps.Create(t.Context(), owner, CreateGroupInput{Name: "crew", MemberIDs: members})
	require.NoError(t, err)
	thread, err := f.resolver.Group(t.Context(), grp.ID)
	require.NoError(t, err)
	return thread
}

func (f *fixture) eventTypes() []string {
	types := make([]string, 0, len(f.bus.envelopes))
	for _, env := range f.bus.envelopes {
		types = append(types, env.EventType)
	}
	return types
}
