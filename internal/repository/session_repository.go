package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/THXDUST/portuga-api/internal/model"
)

// SessionRepo persists opaque session tokens for persisted users.
// Uniqueness is on the token only: concurrent logins from the same user
// simply create independent rows.
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Insert stores a new session row and backfills its generated id.
func (r *SessionRepo) Insert(ctx context.Context, s *model.Session) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO sessions (user_id, session_token, ip_address, user_agent, created_at, expires_at) VALUES (?,?,?,?,?,?)",
		s.UserID, s.Token, s.IPAddress, s.UserAgent, s.IssuedAt, s.ExpiresAt)
	if err != nil {
		return err
	}
	s.ID, err = res.LastInsertId()
	return err
}

// FindByToken loads a session joined to its user's active flag. A
// missing token surfaces as sql.ErrNoRows.
func (r *SessionRepo) FindByToken(ctx context.Context, token string) (model.Session, bool, error) {
	var (
		s      model.Session
		active bool
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT s.id, s.user_id, s.session_token, s.ip_address, s.user_agent,
		       s.created_at, s.expires_at, u.is_active
		FROM sessions s
		JOIN users u ON s.user_id = u.id
		WHERE s.session_token=? LIMIT 1`, token).
		Scan(&s.ID, &s.UserID, &s.Token, &s.IPAddress, &s.UserAgent,
			&s.IssuedAt, &s.ExpiresAt, &active)
	return s, active, err
}

// DeleteByToken removes one session. Deleting a token that is already
// gone is not an error.
func (r *SessionRepo) DeleteByToken(ctx context.Context, token string) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE session_token=?", token)
	return err
}

// ExtendExpiry moves a session's expiry forward.
func (r *SessionRepo) ExtendExpiry(ctx context.Context, token string, expiresAt time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE sessions SET expires_at=? WHERE session_token=?", expiresAt, token)
	return err
}

// DeleteExpired sweeps all rows past their expiry and reports how many
// went. Plain delete-where, safe to run from multiple processes.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.DB.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
