package services

import (
	"context"
	"time"

	"relay-chat/internal/domain/message"
	"relay-chat/internal/domain/user"
	"relay-chat/internal/repository"
	"relay-chat/pkg/cipher"

	"github.com/google/uuid"
)

// UserSummary is the embedded sender shape clients render next to a
// message.
type UserSummary struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}

type AttachmentView struct {
	ID        uuid.UUID `json:"id"`
	FilePath  string    `json:"file_path"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
}

// ReactionGroup aggregates one emoji across reactors.
type ReactionGroup struct {
	Emoji   string      `json:"emoji"`
	Count   int         `json:"count"`
	UserIDs []uuid.UUID `json:"user_ids"`
}

type ForwardOrigin struct {
	SenderID uuid.UUID `json:"sender_id"`
	SentAt   time.Time `json:"sent_at"`
}

type ReplyPreview struct {
	ID       uuid.UUID `json:"id"`
	SenderID uuid.UUID `json:"sender_id"`
	Body     string    `json:"body"`
}

type MessageView struct {
	ID          uuid.UUID        `json:"id"`
	Kind        message.Kind     `json:"kind"`
	ParentID    uuid.UUID        `json:"parent_id"`
	Type        string           `json:"type"`
	Sender      UserSummary      `json:"sender"`
	Body        string           `json:"body"`
	Metadata    string           `json:"metadata,omitempty"`
	IsEncrypted bool             `json:"is_encrypted"`
	ReplyTo     *ReplyPreview    `json:"reply_to,omitempty"`
	Forwarded   *ForwardOrigin   `json:"forwarded_from,omitempty"`
	Attachments []AttachmentView `json:"attachments"`
	Reactions   []ReactionGroup  `json:"reactions"`
	ExpiresAt   *time.Time       `json:"expires_at,omitempty"`
	EditedAt    *time.Time       `json:"edited_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
}

// viewAssembler batches the sender, attachment and reaction lookups a
// page of messages needs.
type viewAssembler struct {
	users       repository.UserRepository
	attachments repository.AttachmentRepository
	reactions   repository.ReactionRepository
	directRepo  repository.MessageRepository
	groupRepo   repository.MessageRepository
	box         *cipher.Box
}

func (a *viewAssembler) messageRepo(kind message.Kind) repository.MessageRepository {
	if kind == message.KindGroup {
		return a.groupRepo
	}
	return a.directRepo
}

func (a *viewAssembler) assemble(ctx context.Context, kind message.Kind, msgs []message.Message) ([]MessageView, error) {
	if len(msgs) == 0 {
		return []MessageView{}, nil
	}

	ids := make([]uuid.UUID, 0, len(msgs))
	senderSet := make(map[uuid.UUID]struct{})
	for _, m := range msgs {
		ids = append(ids, m.ID)
		senderSet[m.SenderID] = struct{}{}
	}
	senderIDs := make([]uuid.UUID, 0, len(senderSet))
	for id := range senderSet {
		senderIDs = append(senderIDs, id)
	}

	senders, err := a.users.GetByIDs(ctx, senderIDs)
	if err != nil {
		return nil, err
	}
	senderByID := make(map[uuid.UUID]user.User, len(senders))
	for _, u := range senders {
		senderByID[u.ID] = u
	}

	attachments, err := a.attachments.ListForMessages(ctx, kind, ids)
	if err != nil {
		return nil, err
	}
	attachmentsByMsg := make(map[uuid.UUID][]AttachmentView)
	for _, att := range attachments {
		if !att.AttachableID.Valid {
			continue
		}
		attachmentsByMsg[att.AttachableID.UUID] = append(attachmentsByMsg[att.AttachableID.UUID], AttachmentView{
			ID:        att.ID,
			FilePath:  att.FilePath,
			MimeType:  att.MimeType,
			SizeBytes: att.SizeBytes,
		})
	}

	reactions, err := a.reactions.ListForMessages(ctx, kind, ids)
	if err != nil {
		return nil, err
	}
	reactionsByMsg := make(map[uuid.UUID][]ReactionGroup)
	for _, r := range reactions {
		groups := reactionsByMsg[r.MessageID]
		found := false
		for i := range groups {
			if groups[i].Emoji == r.Emoji {
				groups[i].Count++
				groups[i].UserIDs = append(groups[i].UserIDs, r.UserID)
				found = true
				break
			}
		}
		if !found {
			groups = append(groups, ReactionGroup{Emoji: r.Emoji, Count: 1, UserIDs: []uuid.UUID{r.UserID}})
		}
		reactionsByMsg[r.MessageID] = groups
	}

	views := make([]MessageView, 0, len(msgs))
	for _, m := range msgs {
		v := MessageView{
			ID:          m.ID,
			Kind:        kind,
			ParentID:    m.ParentID,
			Type:        m.Type,
			Body:        a.readableBody(m),
			Metadata:    m.Metadata,
			IsEncrypted: m.IsEncrypted,
			Attachments: attachmentsByMsg[m.ID],
			Reactions:   reactionsByMsg[m.ID],
			CreatedAt:   m.CreatedAt,
		}
		if v.Attachments == nil {
			v.Attachments = []AttachmentView{}
		}
		if v.Reactions == nil {
			v.Reactions = []ReactionGroup{}
		}
		if u, ok := senderByID[m.SenderID]; ok {
			v.Sender = UserSummary{ID: u.ID, DisplayName: u.DisplayName, AvatarURL: u.AvatarURL.String}
		} else {
			v.Sender = UserSummary{ID: m.SenderID}
		}
		if m.ExpiresAt.Valid {
			t := m.ExpiresAt.Time
			v.ExpiresAt = &t
		}
		if m.EditedAt.Valid {
			t := m.EditedAt.Time
			v.EditedAt = &t
		}
		if m.ForwardOriginSenderID.Valid {
			v.Forwarded = &ForwardOrigin{
				SenderID: m.ForwardOriginSenderID.UUID,
				SentAt:   m.ForwardOriginSentAt.Time,
			}
		}
		if m.ReplyToID.Valid {
			if target, err := a.messageRepo(kind).GetByID(ctx, m.ReplyToID.UUID); err == nil {
				v.ReplyTo = &ReplyPreview{
					ID:       target.ID,
					SenderID: target.SenderID,
					Body:     previewBody(target.Body.String, target.IsEncrypted, 80),
				}
			}
		}
		views = append(views, v)
	}
	return views, nil
}

func (a *viewAssembler) readableBody(m message.Message) string {
	if !m.Body.Valid {
		return ""
	}
	if m.IsEncrypted && a.box != nil {
		plain, err := a.box.Open(m.Body.String)
		if err != nil {
			return ""
		}
		return plain
	}
	return m.Body.String
}

// previewBody truncates to max runes; encrypted bodies collapse to a
// placeholder so ciphertext never leaks into previews.
func previewBody(body string, encrypted bool, max int) string {
	if encrypted {
		return "[Encrypted]"
	}
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max])
}
