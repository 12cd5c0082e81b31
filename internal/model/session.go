package model

import "time"

// Session models an entry in the `sessions` table. One row per login;
// concurrent logins from the same user simply create independent rows
// (uniqueness is on the token only). Rows are deleted on logout, when
// validation fails closed, or by the expiry sweep.
//
// Built-in demo accounts never touch this table: their sessions are
// signed cookie state handled entirely in the auth package.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the session (always a positive, persisted id).
//  Token     – opaque random token; only proof of possession, never logged.
//  IPAddress – client IP at login time.
//  UserAgent – client user agent at login time.
//  IssuedAt  – when the session was created.
//  ExpiresAt – hard expiry; 1 day, or 30 days with remember-me.
type Session struct {
	ID        int64     // sessions.id
	UserID    int64     // sessions.user_id
	Token     string    // sessions.session_token
	IPAddress string    // sessions.ip_address
	UserAgent string    // sessions.user_agent
	IssuedAt  time.Time // sessions.created_at
	ExpiresAt time.Time // sessions.expires_at
}

// LoginAttempt models a row in the `login_attempts` table used by the
// advisory login rate limiter. Attempts are kept per (email, ip) and
// pruned once they fall out of the limiting window.
type LoginAttempt struct {
	ID          int64     // login_attempts.id
	Email       string    // login_attempts.email
	IPAddress   string    // login_attempts.ip_address
	Success     bool      // login_attempts.success
	AttemptedAt time.Time // login_attempts.attempted_at
}
