package events

// ChannelResolver determines which Redis channels an envelope is
// published to.
type ChannelResolver interface {
	ResolveChannels(env Envelope) []string
}

// ThreadChannelResolver routes events to their parent thread's channel.
type ThreadChannelResolver struct{}

func NewThreadChannelResolver() *ThreadChannelResolver {
	return &ThreadChannelResolver{}
}

func (r *ThreadChannelResolver) ResolveChannels(env Envelope) []string {
	if env.ThreadID == "" {
		return nil
	}
	switch env.ThreadKind {
	case "group":
		return []string{ChannelPrefixGroup + env.ThreadID}
	default:
		return []string{ChannelPrefixConversation + env.ThreadID}
	}
}
