package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"golang.org/x/crypto/bcrypt"

	"github.com/THXDUST/portuga-api/internal/model"
)

// UserStore is the slice of the user repository the authenticator
// needs. Implemented by repository.UserRepo.
type UserStore interface {
	GetByEmail(ctx context.Context, email string) (model.User, error)
	UpdatePasswordHash(ctx context.Context, userID int64, hash string) error
}

// Authenticator verifies email+password pairs against the persisted
// user table. Built-in accounts are handled separately by
// AuthenticateBuiltIn and are checked first by the login handler.
type Authenticator struct {
	Users  UserStore
	Hasher *CredentialHasher

	// decoyHash is a cost-matched bcrypt hash compared against on the
	// unknown-email path, so that path costs the same bcrypt work as a
	// wrong password and response timing cannot reveal whether an
	// account exists.
	decoyHash []byte
}

func NewAuthenticator(users UserStore, hasher *CredentialHasher) *Authenticator {
	decoy, err := bcrypt.GenerateFromPassword([]byte("decoy-credential"), hasher.Cost)
	if err != nil {
		decoy, _ = bcrypt.GenerateFromPassword([]byte("decoy-credential"), bcrypt.DefaultCost)
	}
	return &Authenticator{Users: users, Hasher: hasher, decoyHash: decoy}
}

// Authenticate returns the user on success. Unknown email and wrong
// password both come back as ErrInvalidCredentials; inactive and
// OAuth-provisioned accounts get their own distinct errors.
//
// A successful login against a legacy single-layer credential rehashes
// the row into the double-hash format, so the MAC layer migration
// happens organically.
func (a *Authenticator) Authenticate(ctx context.Context, email, password string) (model.User, error) {
	u, err := a.Users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Burn the same bcrypt work a wrong password costs before
			// rejecting, keeping the two failures indistinguishable in
			// both message and timing.
			_ = bcrypt.CompareHashAndPassword(a.decoyHash, []byte(password))
			return model.User{}, ErrInvalidCredentials
		}
		return model.User{}, fmt.Errorf("load user: %w", err)
	}
	if !u.IsActive {
		return model.User{}, ErrAccountInactive
	}
	if u.OAuthProvider != "" && u.OAuthProvider != "none" {
		return model.User{}, &FederatedLoginError{Provider: u.OAuthProvider}
	}
	if !a.Hasher.Verify(password, u.PasswordHash, u.Email) {
		return model.User{}, ErrInvalidCredentials
	}
	if a.Hasher.IsLegacy(u.PasswordHash) {
		if rehash, err := a.Hasher.Hash(password, u.Email); err == nil {
			if err := a.Users.UpdatePasswordHash(ctx, u.ID, rehash); err != nil {
				log.Printf("auth: rehash of legacy credential for user %d failed: %v", u.ID, err)
			}
		}
	}
	u.PasswordHash = ""
	return u, nil
}
