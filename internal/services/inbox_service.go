package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/repository"
	"relay-chat/pkg/cipher"
	relay_errors "relay-chat/pkg/errors"
	"relay-chat/pkg/logger"

	"github.com/google/uuid"
)

const inboxPreviewRunes = 140

// ThreadSummary is one inbox row, merged across both families.
type ThreadSummary struct {
	Kind           message.Kind `json:"kind"`
	ThreadID       uuid.UUID    `json:"thread_id"`
	Title          string       `json:"title"`
	AvatarURL      string       `json:"avatar_url,omitempty"`
	IsSelf         bool         `json:"is_self,omitempty"`
	Preview        string       `json:"preview"`
	PreviewSender  uuid.UUID    `json:"preview_sender,omitempty"`
	UnreadCount    int64        `json:"unread_count"`
	Pinned         bool         `json:"pinned"`
	Muted          bool         `json:"muted"`
	Archived       bool         `json:"archived"`
	LastActivityAt time.Time    `json:"last_activity_at"`
}

// InboxService assembles the conversation list: every thread the user
// belongs to, with preview, unread count and preferences, sorted
// pinned first then by last activity.
type InboxService struct {
	conversations repository.ConversationRepository
	groups        repository.GroupRepository
	users         repository.UserRepository
	direct        repository.MessageRepository
	groupMsgs     repository.MessageRepository
	attachments   repository.AttachmentRepository
	box           *cipher.Box
	log           *logger.Logger
	now           func() time.Time
}

func NewInboxService(
	conversations repository.ConversationRepository,
	groups repository.GroupRepository,
	users repository.UserRepository,
	direct, groupMsgs repository.MessageRepository,
	attachments repository.AttachmentRepository,
	box *cipher.Box,
	log *logger.Logger,
) *InboxService {
	return &InboxService{
		conversations: conversations,
		groups:        groups,
		users:         users,
		direct:        direct,
		groupMsgs:     groupMsgs,
		attachments:   attachments,
		box:           box,
		log:           log,
		now:           time.Now,
	}
}

// List builds the user's inbox. Archived threads are excluded unless
// requested.
func (s *InboxService) List(ctx context.Context, userID uuid.UUID, includeArchived bool) ([]ThreadSummary, error) {
	now := s.now()
	var summaries []ThreadSummary

	convs, err := s.conversations.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, conv := range convs {
		member, err := s.conversations.GetMember(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}
		if member.ArchivedAt.Valid && !includeArchived {
			continue
		}

		summary := ThreadSummary{
			Kind:           message.KindDirect,
			ThreadID:       conv.ID,
			IsSelf:         conv.IsSelf(),
			Pinned:         member.PinnedAt.Valid,
			Muted:          member.MutedUntil.Valid && member.MutedUntil.Time.After(now),
			Archived:       member.ArchivedAt.Valid,
			LastActivityAt: conv.CreatedAt,
		}
		if other, err := s.users.GetByID(ctx, conv.OtherMember(userID)); err == nil {
			summary.Title = other.DisplayName
			summary.AvatarURL = other.AvatarURL.String
		}

		if err := s.fillActivity(ctx, &summary, s.direct, conv.ID, userID, now, conv.IsSelf()); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	grps, err := s.groups.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	for _, grp := range grps {
		member, err := s.groups.GetMember(ctx, grp.ID, userID)
		if err != nil {
			return nil, err
		}
		if member.ArchivedAt.Valid && !includeArchived {
			continue
		}

		summary := ThreadSummary{
			Kind:           message.KindGroup,
			ThreadID:       grp.ID,
			Title:          grp.Name,
			AvatarURL:      grp.AvatarURL.String,
			Pinned:         member.PinnedAt.Valid,
			Muted:          member.MutedUntil.Valid && member.MutedUntil.Time.After(now),
			Archived:       member.ArchivedAt.Valid,
			LastActivityAt: grp.CreatedAt,
		}
		if err := s.fillActivity(ctx, &summary, s.groupMsgs, grp.ID, userID, now, false); err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}

	sort.SliceStable(summaries, func(i, j int) bool {
		if summaries[i].Pinned != summaries[j].Pinned {
			return summaries[i].Pinned
		}
		return summaries[i].LastActivityAt.After(summaries[j].LastActivityAt)
	})
	if summaries == nil {
		summaries = []ThreadSummary{}
	}
	return summaries, nil
}

func (s *InboxService) fillActivity(
	ctx context.Context,
	summary *ThreadSummary,
	repo repository.MessageRepository,
	parentID, userID uuid.UUID,
	now time.Time,
	isSelf bool,
) error {
	latest, err := repo.LatestVisible(ctx, parentID, userID, now, isSelf)
	if err != nil {
		if !errors.Is(err, relay_errors.ErrNotFound) {
			return err
		}
	} else {
		summary.Preview = s.preview(ctx, summary.Kind, latest)
		summary.PreviewSender = latest.SenderID
		summary.LastActivityAt = latest.CreatedAt
	}

	unread, err := repo.CountUnread(ctx, parentID, userID, now, isSelf)
	if err != nil {
		return err
	}
	summary.UnreadCount = unread
	return nil
}

// preview renders one message as an inbox line. Encrypted bodies and
// attachment-only messages collapse to placeholders.
func (s *InboxService) preview(ctx context.Context, kind message.Kind, m message.Message) string {
	if m.Type == message.TypeSystem {
		return ""
	}
	if m.IsEncrypted {
		return "[Encrypted]"
	}
	if m.Body.Valid && m.Body.String != "" {
		return previewBody(m.Body.String, false, inboxPreviewRunes)
	}
	atts, err := s.attachments.ListForMessages(ctx, kind, []uuid.UUID{m.ID})
	if err != nil || len(atts) == 0 {
		return attachmentPreview(1)
	}
	return attachmentPreview(len(atts))
}

// attachmentPreview labels an attachment-only message with its count.
func attachmentPreview(n int) string {
	if n == 1 {
		return "[1 attachment]"
	}
	return fmt.Sprintf("[%d attachments]", n)
}
