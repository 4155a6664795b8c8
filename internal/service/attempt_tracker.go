package service

import (
	"context"
	"strconv"
	"time"

	"go-session-auth-service/internal/observability"
)

const attemptKeyPrefix = "attempts:"

// AttemptTracker gates login attempts per source identifier (client IP).
// Failures within the lockout window accumulate; once the cap is reached the
// source is denied until the window elapses with no further failures.
type AttemptTracker interface {
	Allowed(ctx context.Context, identifier string) (bool, error)
	RecordFailure(ctx context.Context, identifier string) error
	RecordSuccess(ctx context.Context, identifier string) error
}

type KVAttemptTracker struct {
	store       KVStore
	maxAttempts int
	window      time.Duration
}

func NewAttemptTracker(store KVStore, maxAttempts int, window time.Duration) *KVAttemptTracker {
	return &KVAttemptTracker{store: store, maxAttempts: maxAttempts, window: window}
}

func (t *KVAttemptTracker) Allowed(ctx context.Context, identifier string) (bool, error) {
	raw, ok, err := t.store.Get(ctx, attemptKeyPrefix+identifier)
	if err != nil {
		return false, err
	}
	if !ok {
		// No record, or the window elapsed and the key expired: a fresh
		// failure starts a new count at 1.
		observability.RecordAttemptDecision(ctx, "allow")
		return true, nil
	}
	count, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		// Unreadable counter: treat the source as locked rather than waving
		// it through.
		observability.RecordAttemptDecision(ctx, "deny")
		return false, nil
	}
	if count >= int64(t.maxAttempts) {
		observability.RecordAttemptDecision(ctx, "deny")
		return false, nil
	}
	observability.RecordAttemptDecision(ctx, "allow")
	return true, nil
}

// RecordFailure atomically increments the counter and restarts the lockout
// window from now. No failure is silently dropped under concurrency.
func (t *KVAttemptTracker) RecordFailure(ctx context.Context, identifier string) error {
	_, err := t.store.Increment(ctx, attemptKeyPrefix+identifier, t.window)
	if err != nil {
		return err
	}
	observability.RecordAttemptDecision(ctx, "failure_recorded")
	return nil
}

func (t *KVAttemptTracker) RecordSuccess(ctx context.Context, identifier string) error {
	if _, err := t.store.Delete(ctx, attemptKeyPrefix+identifier); err != nil {
		return err
	}
	observability.RecordAttemptDecision(ctx, "reset")
	return nil
}
