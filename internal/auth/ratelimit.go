package auth

import (
	"context"
	"log"
	"time"
)

// AttemptStore records and counts login attempts. Implemented by
// repository.LoginAttemptRepo.
type AttemptStore interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) error
	// CountRecent returns the number of failed attempts for (email, ip)
	// since the cutoff and the time of the most recent one.
	CountRecent(ctx context.Context, email, ip string, since time.Time) (int, time.Time, error)
	Record(ctx context.Context, email, ip string, success bool) error
}

// RateLimitResult is the outcome of a rate-limit check. Wait is only
// meaningful when Allowed is false.
type RateLimitResult struct {
	Allowed  bool
	Attempts int
	Wait     time.Duration
}

// LoginLimiter throttles login attempts per (email, IP) pair. It is
// advisory, not a lock: two concurrent attempts may both pass the check
// before either failure is recorded, which is accepted. A store error
// fails open — the limiter must never take logins down with it.
type LoginLimiter struct {
	Store       AttemptStore
	MaxAttempts int
	Window      time.Duration
	Now         func() time.Time
}

func NewLoginLimiter(store AttemptStore, maxAttempts, windowMin int) *LoginLimiter {
	return &LoginLimiter{
		Store:       store,
		MaxAttempts: maxAttempts,
		Window:      time.Duration(windowMin) * time.Minute,
		Now:         time.Now,
	}
}

// Check prunes stale attempts, counts the rest and decides whether one
// more attempt is allowed. When blocked, Wait is a conservative upper
// bound: the time until the most recent attempt ages out of the window,
// by which point every counted attempt is guaranteed to be gone. The
// limit may lift earlier as older attempts expire.
func (l *LoginLimiter) Check(ctx context.Context, email, ip string) RateLimitResult {
	now := l.Now().UTC()
	cutoff := now.Add(-l.Window)
	if err := l.Store.DeleteOlderThan(ctx, cutoff); err != nil {
		log.Printf("auth: pruning login attempts failed: %v", err)
	}
	attempts, lastAttempt, err := l.Store.CountRecent(ctx, email, ip, cutoff)
	if err != nil {
		log.Printf("auth: rate limit check failed, allowing login: %v", err)
		return RateLimitResult{Allowed: true}
	}
	if attempts < l.MaxAttempts {
		return RateLimitResult{Allowed: true, Attempts: attempts}
	}
	wait := lastAttempt.Add(l.Window).Sub(now)
	if wait < 0 {
		wait = 0
	}
	return RateLimitResult{Allowed: false, Attempts: attempts, Wait: wait}
}

// Record logs an attempt outcome. Best effort only.
func (l *LoginLimiter) Record(ctx context.Context, email, ip string, success bool) {
	if err := l.Store.Record(ctx, email, ip, success); err != nil {
		log.Printf("auth: recording login attempt failed: %v", err)
	}
}
