package repository

import (
	"context"
	"database/sql"
	"time"
)

// LoginAttemptRepo tracks login attempts for the advisory rate limiter.
type LoginAttemptRepo struct{ DB *sql.DB }

func NewLoginAttemptRepo(db *sql.DB) *LoginAttemptRepo { return &LoginAttemptRepo{DB: db} }

// DeleteOlderThan prunes attempts that fell out of the limiting window.
func (r *LoginAttemptRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) error {
	_, err := r.DB.ExecContext(ctx, "DELETE FROM login_attempts WHERE attempted_at < ?", cutoff)
	return err
}

// CountRecent counts failed attempts for (email, ip) since the cutoff
// and returns the timestamp of the latest one. Successful logins are
// recorded for the audit trail but never count against the limit. The
// zero time comes back when there are none.
func (r *LoginAttemptRepo) CountRecent(ctx context.Context, email, ip string, since time.Time) (int, time.Time, error) {
	var (
		n    int
		last sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(attempted_at)
		FROM login_attempts
		WHERE email=? AND ip_address=? AND success=0 AND attempted_at >= ?`,
		email, ip, since).Scan(&n, &last)
	if err != nil {
		return 0, time.Time{}, err
	}
	return n, last.Time, nil
}

// Record logs one attempt outcome.
func (r *LoginAttemptRepo) Record(ctx context.Context, email, ip string, success bool) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO login_attempts (email, ip_address, success) VALUES (?,?,?)",
		email, ip, success)
	return err
}
