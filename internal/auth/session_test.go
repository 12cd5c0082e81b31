package auth

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/THXDUST/portuga-api/internal/model"
)

type fakeSessionStore struct {
	sessions map[string]model.Session
	inactive map[int64]bool
	err      error
}

func newFakeSessionStore() *fakeSessionStore {
	return &fakeSessionStore{sessions: map[string]model.Session{}, inactive: map[int64]bool{}}
}

func (f *fakeSessionStore) Insert(_ context.Context, s *model.Session) error {
	if f.err != nil {
		return f.err
	}
	s.ID = int64(len(f.sessions) + 1)
	f.sessions[s.Token] = *s
	return nil
}

func (f *fakeSessionStore) FindByToken(_ context.Context, token string) (model.Session, bool, error) {
	if f.err != nil {
		return model.Session{}, false, f.err
	}
	s, ok := f.sessions[token]
	if !ok {
		return model.Session{}, false, sql.ErrNoRows
	}
	return s, !f.inactive[s.UserID], nil
}

func (f *fakeSessionStore) DeleteByToken(_ context.Context, token string) error {
	delete(f.sessions, token)
	return nil
}

func (f *fakeSessionStore) ExtendExpiry(_ context.Context, token string, expiresAt time.Time) error {
	s, ok := f.sessions[token]
	if !ok {
		return sql.ErrNoRows
	}
	s.ExpiresAt = expiresAt
	f.sessions[token] = s
	return nil
}

func (f *fakeSessionStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for tok, s := range f.sessions {
		if now.After(s.ExpiresAt) {
			delete(f.sessions, tok)
			n++
		}
	}
	return n, nil
}

type fakeLastLogin struct {
	touched []int64
	err     error
}

func (f *fakeLastLogin) TouchLastLogin(_ context.Context, userID int64) error {
	if f.err != nil {
		return f.err
	}
	f.touched = append(f.touched, userID)
	return nil
}

func testSessionManager(store SessionStore, now time.Time) (*SessionManager, *fakeLastLogin) {
	users := &fakeLastLogin{}
	m := NewSessionManager(store, users, "test-secret", 1, 30)
	m.Now = func() time.Time { return now }
	return m, users
}

func TestSessionManager_CreateAndValidate(t *testing.T) {
	t.Parallel()
	store := newFakeSessionStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m, users := testSessionManager(store, now)

	info, err := m.Create(context.Background(), 7, false, "10.0.0.1", "test-agent")
	require.NoError(t, err)
	assert.Len(t, info.Token, 64)
	assert.NotContains(t, info.Token, ".")
	assert.Equal(t, now.Add(24*time.Hour), info.ExpiresAt)
	assert.Equal(t, []int64{7}, users.touched)

	got, err := m.Validate(context.Background(), info.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)
	assert.False(t, got.IsBuiltIn)
}

func TestSessionManager_CreateSurvivesLastLoginFailure(t *testing.T) {
	t.Parallel()
	store := newFakeSessionStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m, users := testSessionManager(store, now)
	users.err = errors.New("db down")

	info, err := m.Create(context.Background(), 7, false, "", "")
	require.NoError(t, err, "a failed last_login update must not fail the login")
	require.NotNil(t, info)
	assert.Len(t, store.sessions, 1)
}

func TestSessionManager_RememberMeWindow(t *testing.T) {
	t.Parallel()
	store := newFakeSessionStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m, _ := testSessionManager(store, now)

	info, err := m.Create(context.Background(), 7, true, "", "")
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*24*time.Hour), info.ExpiresAt)
}

func TestSessionManager_ExpiredFailsClosed(t *testing.T) {
	t.Parallel()
	store := newFakeSessionStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m, _ := testSessionManager(store, now)

	info, err := m.Create(context.Background(), 7, false, "", "")
	require.NoError(t, err)

	m.Now = func() time.Time { return now.Add(25 * time.Hour) }
	_, err = m.Validate(context.Background(), info.Token)
	require.ErrorIs(t, err, ErrSessionExpired)
	assert.Empty(t, store.sessions, "expired session row must be destroyed on rejection")
}

func TestSessionManager_InactiveUserFailsClosed(t *testing.T) {
	t.Parallel()
	store := newFakeSessionStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m, _ := testSessionManager(store, now)

	info, err := m.Create(context.Background(), 7, false, "", "")
	require.NoError(t, err)

	store.inactive[7] = true
	_, err = m.Validate(context.Background(), info.Token)
	require.ErrorIs(t, err, ErrUnauthenticated)
	assert.Empty(t, store.sessions)
}

func TestSessionManager_UnknownAndEmptyTokens(t *testing.T) {
	t.Parallel()
	store := newFakeSessionStore()
	m, _ := testSessionManager(store, time.Now())

	_, err := m.Validate(context.Background(), "")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = m.Validate(context.Background(), strings.Repeat("ab", 32))
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionManager_DestroyIdempotent(t *testing.T) {
	t.Parallel()
	store := newFakeSessionStore()
	m, _ := testSessionManager(store, time.Now())

	info, err := m.Create(context.Background(), 7, false, "", "")
	require.NoError(t, err)

	require.NoError(t, m.Destroy(context.Background(), info.Token))
	require.NoError(t, m.Destroy(context.Background(), info.Token))
	require.NoError(t, m.Destroy(context.Background(), ""))
}

func TestSessionManager_BuiltInRoundTrip(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m, _ := testSessionManager(newFakeSessionStore(), now)

	acct, ok := FindBuiltInAccount("admin@test")
	require.True(t, ok)

	info, err := m.CreateBuiltIn(acct, false)
	require.NoError(t, err)
	assert.Contains(t, info.Token, ".", "built-in tokens are signed, not opaque")

	got, err := m.Validate(context.Background(), info.Token)
	require.NoError(t, err)
	assert.True(t, got.IsBuiltIn)
	assert.Equal(t, acct.ID, got.UserID)
	assert.Equal(t, acct.FullName, got.FullName)
	assert.Equal(t, acct.RoleID, got.RoleID)
	assert.Equal(t, UserTypeAdmin, got.UserType)
}

func TestSessionManager_BuiltInExpires(t *testing.T) {
	t.Parallel()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m, _ := testSessionManager(newFakeSessionStore(), now)

	acct, _ := FindBuiltInAccount("waiter@test")
	info, err := m.CreateBuiltIn(acct, false)
	require.NoError(t, err)

	m.Now = func() time.Time { return now.Add(25 * time.Hour) }
	_, err = m.Validate(context.Background(), info.Token)
	assert.ErrorIs(t, err, ErrSessionExpired)
}

func TestSessionManager_BuiltInWrongKeyRejected(t *testing.T) {
	t.Parallel()
	now := time.Now()
	m, _ := testSessionManager(newFakeSessionStore(), now)
	other, _ := testSessionManager(newFakeSessionStore(), now)
	other.Secret = []byte("different-secret")

	acct, _ := FindBuiltInAccount("admin@test")
	info, err := m.CreateBuiltIn(acct, false)
	require.NoError(t, err)

	_, err = other.Validate(context.Background(), info.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSessionManager_RefreshKeepsOriginalWindow(t *testing.T) {
	t.Parallel()
	store := newFakeSessionStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m, _ := testSessionManager(store, now)

	info, err := m.Create(context.Background(), 7, true, "", "")
	require.NoError(t, err)

	later := now.Add(10 * 24 * time.Hour)
	m.Now = func() time.Time { return later }
	require.NoError(t, m.Refresh(context.Background(), info.Token))

	s := store.sessions[info.Token]
	assert.Equal(t, later.Add(30*24*time.Hour), s.ExpiresAt, "remember-me refresh extends by the original 30 days")
}

func TestSessionManager_CleanupExpired(t *testing.T) {
	t.Parallel()
	store := newFakeSessionStore()
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	m, _ := testSessionManager(store, now)

	_, err := m.Create(context.Background(), 1, false, "", "")
	require.NoError(t, err)
	_, err = m.Create(context.Background(), 2, true, "", "")
	require.NoError(t, err)

	m.Now = func() time.Time { return now.Add(48 * time.Hour) }
	n, err := m.CleanupExpired(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "only the non-remember-me session has expired")
	assert.Len(t, store.sessions, 1)
}
