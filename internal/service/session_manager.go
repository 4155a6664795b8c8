package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go-session-auth-service/internal/domain"
	"go-session-auth-service/internal/observability"
	"go-session-auth-service/internal/security"
)

const sessionKeyPrefix = "session:"

// SessionManager owns the lifecycle of server-side sessions: Anonymous on
// first contact, Authenticated after register/login, Destroyed on logout or
// expiry. Establish and Terminate swap the stored record as a whole, so the
// per-session state transitions are atomic with respect to reads.
type SessionManager struct {
	store KVStore
	ttl   time.Duration
	now   func() time.Time
}

func NewSessionManager(store KVStore, ttl time.Duration) *SessionManager {
	return &SessionManager{store: store, ttl: ttl, now: time.Now}
}

// GetOrCreate resolves the cookie value to a live session, or creates a new
// Anonymous one. The second return value reports whether a Set-Cookie must be
// emitted.
func (m *SessionManager) GetOrCreate(ctx context.Context, cookieValue string) (*domain.Session, bool, error) {
	if cookieValue != "" {
		session, err := m.lookup(ctx, cookieValue)
		if err != nil {
			return nil, false, err
		}
		if session != nil {
			return session, false, nil
		}
	}

	id, err := security.NewSessionID()
	if err != nil {
		return nil, false, err
	}
	secret, err := security.NewCSRFSecret()
	if err != nil {
		return nil, false, err
	}
	now := m.now()
	session := &domain.Session{
		ID:         id,
		State:      domain.AnonymousState(),
		CSRFSecret: secret,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.ttl),
	}
	if err := m.save(ctx, session); err != nil {
		return nil, false, err
	}
	observability.RecordSessionEvent(ctx, "created")
	return session, true, nil
}

// Establish transitions the session to Authenticated. Callers must only
// invoke it after credential verification succeeded.
func (m *SessionManager) Establish(ctx context.Context, session *domain.Session, userID uint, username string) error {
	session.State = domain.AuthenticatedState(userID, username)
	if err := m.save(ctx, session); err != nil {
		return err
	}
	observability.RecordSessionEvent(ctx, "established")
	return nil
}

// Terminate destroys the session. Terminating an already-destroyed session
// fails with ErrSessionNotFound.
func (m *SessionManager) Terminate(ctx context.Context, session *domain.Session) error {
	existed, err := m.store.Delete(ctx, sessionKeyPrefix+session.ID)
	if err != nil {
		return err
	}
	if !existed {
		return domain.ErrSessionNotFound
	}
	observability.RecordSessionEvent(ctx, "terminated")
	return nil
}

// RequireAuthenticated returns the principal behind the session or
// ErrUnauthenticated when the session is Anonymous or missing.
func (m *SessionManager) RequireAuthenticated(session *domain.Session) (uint, string, error) {
	if session == nil || !session.State.Authenticated {
		return 0, "", domain.ErrUnauthenticated
	}
	return session.State.UserID, session.State.Username, nil
}

func (m *SessionManager) lookup(ctx context.Context, id string) (*domain.Session, error) {
	raw, ok, err := m.store.Get(ctx, sessionKeyPrefix+id)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	var session domain.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode session record: %w", err)
	}
	if session.Expired(m.now()) {
		_, _ = m.store.Delete(ctx, sessionKeyPrefix+id)
		observability.RecordSessionEvent(ctx, "expired")
		return nil, nil
	}
	return &session, nil
}

func (m *SessionManager) save(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("encode session record: %w", err)
	}
	ttl := session.ExpiresAt.Sub(m.now())
	if ttl <= 0 {
		return domain.ErrSessionNotFound
	}
	return m.store.SetWithTTL(ctx, sessionKeyPrefix+session.ID, raw, ttl)
}
