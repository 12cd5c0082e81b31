package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// credentialDelimiter separates the two layers of a stored credential.
// bcrypt output never contains ':', so its presence always means the
// MAC layer exists.
const credentialDelimiter = ":"

// CredentialHasher produces and verifies double-hash credentials:
// a bcrypt hash of the password followed by an HMAC-SHA256 of
// (bcryptHash || email) keyed with the server secret. The MAC binds the
// credential to the account's email, so a hash copied onto another row
// stops verifying.
type CredentialHasher struct {
	Key  []byte // server-held secret; must be stable across restarts
	Cost int    // bcrypt work factor
}

func NewCredentialHasher(key string, cost int) *CredentialHasher {
	return &CredentialHasher{Key: []byte(key), Cost: cost}
}

// Hash returns "bcrypt:hmac" for the given plaintext and email.
func (h *CredentialHasher) Hash(plain, email string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		return "", err
	}
	bcryptHash := string(b)
	return bcryptHash + credentialDelimiter + h.mac(bcryptHash, email), nil
}

// Verify checks plain against a stored credential. Both layers must
// pass for the new format. Stored values without the delimiter are
// legacy single-layer bcrypt hashes: they still verify, but the event
// is logged so the row can be migrated on next login.
func (h *CredentialHasher) Verify(plain, stored, email string) bool {
	if stored == "" {
		return false
	}
	if !strings.Contains(stored, credentialDelimiter) {
		// Legacy format, bcrypt only.
		if bcrypt.CompareHashAndPassword([]byte(stored), []byte(plain)) != nil {
			return false
		}
		log.Printf("auth: user %s verified against legacy credential format, schedule rehash", email)
		return true
	}
	parts := strings.SplitN(stored, credentialDelimiter, 2)
	bcryptHash, storedMAC := parts[0], parts[1]
	if bcrypt.CompareHashAndPassword([]byte(bcryptHash), []byte(plain)) != nil {
		return false
	}
	return hmac.Equal([]byte(storedMAC), []byte(h.mac(bcryptHash, email)))
}

// IsLegacy reports whether a stored credential predates the MAC layer.
func (h *CredentialHasher) IsLegacy(stored string) bool {
	return stored != "" && !strings.Contains(stored, credentialDelimiter)
}

func (h *CredentialHasher) mac(bcryptHash, email string) string {
	m := hmac.New(sha256.New, h.Key)
	m.Write([]byte(bcryptHash + email))
	return hex.EncodeToString(m.Sum(nil))
}
