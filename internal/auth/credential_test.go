package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"golang.org/x/crypto/bcrypt"
)

func testHasher() *CredentialHasher {
	return &CredentialHasher{Key: []byte("test-secret-key"), Cost: bcrypt.MinCost}
}

func TestCredentialHasher_RoundTrip(t *testing.T) {
	t.Parallel()
	h := testHasher()

	stored, err := h.Hash("S3curePass", "user@example.com")
	require.NoError(t, err)
	require.Contains(t, stored, credentialDelimiter)

	assert.True(t, h.Verify("S3curePass", stored, "user@example.com"))
	assert.False(t, h.Verify("WrongPass1", stored, "user@example.com"))
}

func TestCredentialHasher_BoundToEmail(t *testing.T) {
	t.Parallel()
	h := testHasher()

	stored, err := h.Hash("S3curePass", "alice@example.com")
	require.NoError(t, err)

	// The same credential copied onto another account must not verify.
	assert.False(t, h.Verify("S3curePass", stored, "bob@example.com"))
}

func TestCredentialHasher_TamperedMAC(t *testing.T) {
	t.Parallel()
	h := testHasher()

	stored, err := h.Hash("S3curePass", "user@example.com")
	require.NoError(t, err)

	parts := strings.SplitN(stored, credentialDelimiter, 2)
	mutated := parts[0] + credentialDelimiter + strings.Repeat("0", len(parts[1]))
	assert.False(t, h.Verify("S3curePass", mutated, "user@example.com"))
}

func TestCredentialHasher_DifferentKeyFails(t *testing.T) {
	t.Parallel()
	h := testHasher()
	other := &CredentialHasher{Key: []byte("another-key"), Cost: bcrypt.MinCost}

	stored, err := h.Hash("S3curePass", "user@example.com")
	require.NoError(t, err)
	assert.False(t, other.Verify("S3curePass", stored, "user@example.com"))
}

func TestCredentialHasher_LegacyFormat(t *testing.T) {
	t.Parallel()
	h := testHasher()

	legacy, err := bcrypt.GenerateFromPassword([]byte("OldPass123"), bcrypt.MinCost)
	require.NoError(t, err)

	assert.True(t, h.IsLegacy(string(legacy)))
	assert.True(t, h.Verify("OldPass123", string(legacy), "user@example.com"))
	assert.False(t, h.Verify("WrongPass1", string(legacy), "user@example.com"))

	upgraded, err := h.Hash("OldPass123", "user@example.com")
	require.NoError(t, err)
	assert.False(t, h.IsLegacy(upgraded))
}

func TestCredentialHasher_EmptyStored(t *testing.T) {
	t.Parallel()
	h := testHasher()
	assert.False(t, h.Verify("anything", "", "user@example.com"))
	assert.False(t, h.IsLegacy(""))
}
