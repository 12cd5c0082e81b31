package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/THXDUST/portuga-api/internal/model"
)

// SessionStore is the durable half of the session manager. Implemented
// by repository.SessionRepo; tests substitute an in-memory fake.
type SessionStore interface {
	Insert(ctx context.Context, s *model.Session) error
	// FindByToken returns the session and whether its user is still
	// active. A missing token yields sql.ErrNoRows.
	FindByToken(ctx context.Context, token string) (model.Session, bool, error)
	DeleteByToken(ctx context.Context, token string) error
	ExtendExpiry(ctx context.Context, token string, expiresAt time.Time) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// LastLoginRecorder updates users.last_login when a session is issued.
type LastLoginRecorder interface {
	TouchLastLogin(ctx context.Context, userID int64) error
}

// SessionInfo is the request-scoped identity attached to the echo
// context by the session middleware. It is rebuilt from the durable
// store (or from the signed cookie for built-in accounts) on every
// request, so correctness does not depend on process affinity.
type SessionInfo struct {
	Token     string
	UserID    int64
	FullName  string // populated for built-in sessions only
	RoleID    int64  // populated for built-in sessions only
	UserType  string // "" for persisted users
	IsBuiltIn bool
	ExpiresAt time.Time
}

// SessionManager issues, validates and revokes session tokens.
//
// Persisted users get an opaque 64-hex-char random token backed by a
// sessions row. Built-in accounts get a signed JWT instead: their
// session state lives entirely in the cookie and never touches the
// database. The two are distinguished by shape — a JWT always contains
// dots, a hex token never does.
type SessionManager struct {
	Store       SessionStore
	Users       LastLoginRecorder
	Secret      []byte
	TTL         time.Duration // normal login window
	RememberTTL time.Duration // remember-me window
	Now         func() time.Time
}

func NewSessionManager(store SessionStore, users LastLoginRecorder, secret string, ttlDays, rememberDays int) *SessionManager {
	return &SessionManager{
		Store:       store,
		Users:       users,
		Secret:      []byte(secret),
		TTL:         time.Duration(ttlDays) * 24 * time.Hour,
		RememberTTL: time.Duration(rememberDays) * 24 * time.Hour,
		Now:         time.Now,
	}
}

func (m *SessionManager) window(rememberMe bool) time.Duration {
	if rememberMe {
		return m.RememberTTL
	}
	return m.TTL
}

// Create issues a session for a persisted user and records the client's
// IP and user agent. The user's last_login timestamp is updated as a
// side effect; failure to do so does not fail the login.
func (m *SessionManager) Create(ctx context.Context, userID int64, rememberMe bool, ip, userAgent string) (*SessionInfo, error) {
	token, err := RandomHex(32)
	if err != nil {
		return nil, fmt.Errorf("generate session token: %w", err)
	}
	now := m.Now().UTC()
	s := &model.Session{
		UserID:    userID,
		Token:     token,
		IPAddress: ip,
		UserAgent: userAgent,
		IssuedAt:  now,
		ExpiresAt: now.Add(m.window(rememberMe)),
	}
	if err := m.Store.Insert(ctx, s); err != nil {
		return nil, fmt.Errorf("persist session: %w", err)
	}
	if err := m.Users.TouchLastLogin(ctx, userID); err != nil {
		// Last-login is informational only; the login still succeeds.
		log.Printf("auth: updating last_login for user %d failed: %v", userID, err)
	}
	return &SessionInfo{Token: token, UserID: userID, ExpiresAt: s.ExpiresAt}, nil
}

// CreateBuiltIn issues a self-contained signed token for a built-in
// account. Nothing is persisted; expiry is enforced by the signature.
func (m *SessionManager) CreateBuiltIn(acct BuiltInAccount, rememberMe bool) (*SessionInfo, error) {
	now := m.Now().UTC()
	exp := now.Add(m.window(rememberMe))
	claims := jwt.MapClaims{
		"sub":     acct.ID,
		"name":    acct.FullName,
		"role_id": acct.RoleID,
		"utype":   acct.UserType,
		"builtin": true,
		"iat":     now.Unix(),
		"exp":     exp.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(m.Secret)
	if err != nil {
		return nil, fmt.Errorf("sign built-in session: %w", err)
	}
	return &SessionInfo{
		Token:     signed,
		UserID:    acct.ID,
		FullName:  acct.FullName,
		RoleID:    acct.RoleID,
		UserType:  acct.UserType,
		IsBuiltIn: true,
		ExpiresAt: exp,
	}, nil
}

// Validate resolves a token to a session. Built-in tokens are verified
// locally against the signature and expiry. Persisted tokens are looked
// up in the store joined to the user row; an expired session or an
// inactive user destroys the row before reporting failure, so a bad
// session never survives its first rejection.
func (m *SessionManager) Validate(ctx context.Context, token string) (*SessionInfo, error) {
	if token == "" {
		return nil, ErrUnauthenticated
	}
	if strings.Contains(token, ".") {
		return m.validateBuiltIn(token)
	}
	s, userActive, err := m.Store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUnauthenticated
		}
		return nil, fmt.Errorf("load session: %w", err)
	}
	if m.Now().UTC().After(s.ExpiresAt) {
		_ = m.Store.DeleteByToken(ctx, token)
		return nil, ErrSessionExpired
	}
	if !userActive {
		_ = m.Store.DeleteByToken(ctx, token)
		return nil, ErrUnauthenticated
	}
	return &SessionInfo{Token: token, UserID: s.UserID, ExpiresAt: s.ExpiresAt}, nil
}

func (m *SessionManager) validateBuiltIn(token string) (*SessionInfo, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.Secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return m.Now() }))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		return nil, ErrUnauthenticated
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || claims["builtin"] != true {
		return nil, ErrUnauthenticated
	}
	info := &SessionInfo{Token: token, IsBuiltIn: true}
	if v, ok := claims["sub"].(float64); ok {
		info.UserID = int64(v)
	}
	if v, ok := claims["name"].(string); ok {
		info.FullName = v
	}
	if v, ok := claims["role_id"].(float64); ok {
		info.RoleID = int64(v)
	}
	if v, ok := claims["utype"].(string); ok {
		info.UserType = v
	}
	if v, ok := claims["exp"].(float64); ok {
		info.ExpiresAt = time.Unix(int64(v), 0).UTC()
	}
	return info, nil
}

// Destroy deletes the durable session row, if any. It is idempotent:
// destroying an unknown, already-destroyed or built-in token succeeds
// quietly (built-in cookie state is cleared by the handler).
func (m *SessionManager) Destroy(ctx context.Context, token string) error {
	if token == "" || strings.Contains(token, ".") {
		return nil
	}
	if err := m.Store.DeleteByToken(ctx, token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// Refresh extends a valid persisted session by its original window
// (expiry minus issuance, so remember-me sessions keep their 30 days).
// Built-in and invalid sessions are left untouched.
func (m *SessionManager) Refresh(ctx context.Context, token string) error {
	info, err := m.Validate(ctx, token)
	if err != nil || info.IsBuiltIn {
		return nil
	}
	s, _, err := m.Store.FindByToken(ctx, token)
	if err != nil {
		return nil
	}
	window := s.ExpiresAt.Sub(s.IssuedAt)
	if window <= 0 {
		window = m.TTL
	}
	return m.Store.ExtendExpiry(ctx, token, m.Now().UTC().Add(window))
}

// CleanupExpired removes all sessions past their expiry. It is a pure
// delete-where sweep: safe to run concurrently from several processes
// and alongside active validations (a session deleted mid-check simply
// fails closed).
func (m *SessionManager) CleanupExpired(ctx context.Context) (int64, error) {
	return m.Store.DeleteExpired(ctx, m.Now().UTC())
}
