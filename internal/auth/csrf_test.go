package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFToken_RoundTrip(t *testing.T) {
	t.Parallel()
	key := []byte("csrf-test-key")

	token, err := NewCSRFToken(key)
	require.NoError(t, err)
	assert.True(t, VerifyCSRFToken(key, token))
}

func TestCSRFToken_Rejections(t *testing.T) {
	t.Parallel()
	key := []byte("csrf-test-key")

	token, err := NewCSRFToken(key)
	require.NoError(t, err)

	assert.False(t, VerifyCSRFToken([]byte("other-key"), token))
	assert.False(t, VerifyCSRFToken(key, token+"0"))
	assert.False(t, VerifyCSRFToken(key, "no-delimiter"))
	assert.False(t, VerifyCSRFToken(key, ".signature-without-nonce"))
	assert.False(t, VerifyCSRFToken(key, ""))
}

func TestCSRFTokensMatch(t *testing.T) {
	t.Parallel()
	assert.True(t, CSRFTokensMatch("abc.def", "abc.def"))
	assert.False(t, CSRFTokensMatch("abc.def", "abc.xyz"))
	assert.False(t, CSRFTokensMatch("", ""))
}
