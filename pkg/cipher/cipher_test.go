package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSealOpenRoundTrip(t *testing.T) {
	box := New("secret")

	sealed, err := box.Seal("hello, world")
	require.NoError(t, err)
	assert.NotEqual(t, "hello, world", sealed)

	plain, err := box.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "hello, world", plain)
}

func TestSealIsNonDeterministic(t *testing.T) {
	box := New("secret")

	a, err := box.Seal("same body")
	require.NoError(t, err)
	b, err := box.Seal("same body")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "a fresh nonce per seal")
}

func TestOpenRejectsWrongKey(t *testing.T) {
	sealed, err := New("key-one").Seal("private")
	require.NoError(t, err)

	_, err = New("key-two").Open(sealed)
	assert.Error(t, err)
}

func TestOpenRejectsGarbage(t *testing.T) {
	box := New("secret")

	t.Run("not base64", func(t *testing.T) {
		_, err := box.Open("%%%")
		assert.Error(t, err)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := box.Open("c2hvcnQ=")
		assert.ErrorIs(t, err, ErrCiphertextTooShort)
	})
}
