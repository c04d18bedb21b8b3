package events

// Event type constants, format: domain.action

const (
	EventTypeMessageCreated = "message.created"
	EventTypeMessageUpdated = "message.updated"
	EventTypeMessageDeleted = "message.deleted"
)

const (
	EventTypeReceiptDelivered = "receipt.delivered"
	EventTypeReceiptRead      = "receipt.read"
	EventTypeReceiptUnread    = "receipt.unread"
)

const (
	EventTypeReactionAdded   = "reaction.added"
	EventTypeReactionRemoved = "reaction.removed"
)

// Typing events are ephemeral: published, never persisted. Consumers
// clear a stale indicator with a local timeout.
const (
	EventTypeTypingStarted = "typing.started"
	EventTypeTypingStopped = "typing.stopped"
)

const (
	EventTypeMemberJoined   = "member.joined"
	EventTypeMemberLeft     = "member.left"
	EventTypeMemberAdded    = "member.added"
	EventTypeMemberRemoved  = "member.removed"
	EventTypeMemberPromoted = "member.promoted"
	EventTypeMemberDemoted  = "member.demoted"
)

// Redis channel prefixes
const (
	ChannelPrefixConversation = "channel:conversation:"
	ChannelPrefixGroup        = "channel:group:"
	ChannelPrefixUser         = "channel:user:"
	ChannelPattern            = "channel:*"
)
