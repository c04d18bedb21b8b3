package websocket

import (
	"context"
	"strings"

	"relay-chat/internal/events"
	"relay-chat/internal/repository"

	"github.com/google/uuid"
)

// ChannelAuthorizer decides whether a user may subscribe to a channel.
// Thread channels require membership; user channels are owner-only.
type ChannelAuthorizer struct {
	conversations repository.ConversationRepository
	groups        repository.GroupRepository
}

func NewChannelAuthorizer(
	conversations repository.ConversationRepository,
	groups repository.GroupRepository,
) *ChannelAuthorizer {
	return &ChannelAuthorizer{conversations: conversations, groups: groups}
}

func (a *ChannelAuthorizer) CanSubscribe(ctx context.Context, userID string, channel string) (bool, error) {
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return false, nil
	}

	if channel == events.ChannelPrefixUser+userID {
		return true, nil
	}

	if strings.HasPrefix(channel, events.ChannelPrefixConversation) {
		convID, err := uuid.Parse(strings.TrimPrefix(channel, events.ChannelPrefixConversation))
		if err != nil {
			return false, nil
		}
		return a.conversations.IsMember(ctx, convID, userUUID)
	}

	if strings.HasPrefix(channel, events.ChannelPrefixGroup) {
		groupID, err := uuid.Parse(strings.TrimPrefix(channel, events.ChannelPrefixGroup))
		if err != nil {
			return false, nil
		}
		return a.groups.IsMember(ctx, groupID, userUUID)
	}

	return false, nil
}
