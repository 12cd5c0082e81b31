package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type attemptRecord struct {
	email, ip string
	success   bool
	at        time.Time
}

type fakeAttemptStore struct {
	attempts []attemptRecord
	now      func() time.Time
	err      error
}

func (f *fakeAttemptStore) DeleteOlderThan(_ context.Context, cutoff time.Time) error {
	if f.err != nil {
		return f.err
	}
	kept := f.attempts[:0]
	for _, a := range f.attempts {
		if !a.at.Before(cutoff) {
			kept = append(kept, a)
		}
	}
	f.attempts = kept
	return nil
}

func (f *fakeAttemptStore) CountRecent(_ context.Context, email, ip string, since time.Time) (int, time.Time, error) {
	if f.err != nil {
		return 0, time.Time{}, f.err
	}
	var n int
	var last time.Time
	for _, a := range f.attempts {
		if a.email == email && a.ip == ip && !a.success && !a.at.Before(since) {
			n++
			if a.at.After(last) {
				last = a.at
			}
		}
	}
	return n, last, nil
}

func (f *fakeAttemptStore) Record(_ context.Context, email, ip string, success bool) error {
	if f.err != nil {
		return f.err
	}
	f.attempts = append(f.attempts, attemptRecord{email: email, ip: ip, success: success, at: f.now()})
	return nil
}

func testLimiter(now time.Time) (*LoginLimiter, *fakeAttemptStore, *time.Time) {
	clock := now
	store := &fakeAttemptStore{now: func() time.Time { return clock }}
	l := NewLoginLimiter(store, 5, 15)
	l.Now = func() time.Time { return clock }
	return l, store, &clock
}

func TestLoginLimiter_AllowsUpToMax(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, _ := testLimiter(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		res := l.Check(ctx, "user@example.com", "10.0.0.1")
		require.True(t, res.Allowed, "attempt %d should be allowed", i+1)
		l.Record(ctx, "user@example.com", "10.0.0.1", false)
	}

	res := l.Check(ctx, "user@example.com", "10.0.0.1")
	assert.False(t, res.Allowed)
	assert.Equal(t, 5, res.Attempts)
	// Wait counts from the most recent attempt: with all five recorded
	// at the frozen clock, the bound is the full window.
	assert.Equal(t, 15*time.Minute, res.Wait)
}

func TestLoginLimiter_WaitCountsFromMostRecentAttempt(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, clock := testLimiter(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		l.Record(ctx, "user@example.com", "10.0.0.1", false)
		*clock = clock.Add(time.Minute)
	}

	// Last failure at 12:04, clock now 12:05: the conservative bound is
	// 12:04 + 15m - 12:05 = 14m, not the 10m until the oldest expires.
	res := l.Check(ctx, "user@example.com", "10.0.0.1")
	assert.False(t, res.Allowed)
	assert.Equal(t, 14*time.Minute, res.Wait)
}

func TestLoginLimiter_KeyedByEmailAndIP(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, _ := testLimiter(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		l.Record(ctx, "user@example.com", "10.0.0.1", false)
	}

	assert.False(t, l.Check(ctx, "user@example.com", "10.0.0.1").Allowed)
	assert.True(t, l.Check(ctx, "user@example.com", "10.0.0.2").Allowed, "same email, other IP")
	assert.True(t, l.Check(ctx, "other@example.com", "10.0.0.1").Allowed, "other email, same IP")
}

func TestLoginLimiter_WindowRecovery(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, clock := testLimiter(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 5; i++ {
		l.Record(ctx, "user@example.com", "10.0.0.1", false)
	}
	require.False(t, l.Check(ctx, "user@example.com", "10.0.0.1").Allowed)

	*clock = clock.Add(16 * time.Minute)
	res := l.Check(ctx, "user@example.com", "10.0.0.1")
	assert.True(t, res.Allowed, "attempts outside the window no longer count")
	assert.Zero(t, res.Attempts)
}

func TestLoginLimiter_SuccessesDoNotCount(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	l, _, _ := testLimiter(time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC))

	for i := 0; i < 10; i++ {
		l.Record(ctx, "user@example.com", "10.0.0.1", true)
	}
	assert.True(t, l.Check(ctx, "user@example.com", "10.0.0.1").Allowed)
}

func TestLoginLimiter_FailsOpenOnStoreError(t *testing.T) {
	t.Parallel()
	store := &fakeAttemptStore{err: errors.New("db down")}
	l := NewLoginLimiter(store, 5, 15)

	res := l.Check(context.Background(), "user@example.com", "10.0.0.1")
	assert.True(t, res.Allowed, "a broken store must not lock everyone out")
}
