package events

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestThreadChannelResolver(t *testing.T) {
	r := NewThreadChannelResolver()

	t.Run("direct threads map to conversation channels", func(t *testing.T) {
		channels := r.ResolveChannels(Envelope{ThreadKind: "direct", ThreadID: "abc"})
		assert.Equal(t, []string{"channel:conversation:abc"}, channels)
	})

	t.Run("group threads map to group channels", func(t *testing.T) {
		channels := r.ResolveChannels(Envelope{ThreadKind: "group", ThreadID: "abc"})
		assert.Equal(t, []string{"channel:group:abc"}, channels)
	})

	t.Run("missing thread id resolves nowhere", func(t *testing.T) {
		assert.Nil(t, r.ResolveChannels(Envelope{ThreadKind: "group"}))
	})
}
