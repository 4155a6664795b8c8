package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go-session-auth-service/internal/domain"
	"go-session-auth-service/internal/observability"
	"go-session-auth-service/internal/repository"
	"go-session-auth-service/internal/security"
)

const (
	readRetryAttempts = 3
	readRetryBaseWait = 50 * time.Millisecond
)

// AuthService orchestrates register/login/profile/logout over the credential
// store, password hasher, session manager and attempt tracker. CSRF
// enforcement happens in middleware before any of these run.
type AuthService struct {
	users    repository.UserRepository
	hasher   security.PasswordHasher
	sessions *SessionManager
	attempts AttemptTracker
}

func NewAuthService(users repository.UserRepository, hasher security.PasswordHasher, sessions *SessionManager, attempts AttemptTracker) *AuthService {
	return &AuthService{users: users, hasher: hasher, sessions: sessions, attempts: attempts}
}

func (s *AuthService) Register(ctx context.Context, session *domain.Session, username, password string) (*domain.PublicUser, error) {
	if err := ValidateCredentials(username, password); err != nil {
		observability.RecordAuthOperation(ctx, "register", "validation_failed")
		return nil, err
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		observability.RecordAuthOperation(ctx, "register", "error")
		return nil, err
	}

	user := &domain.User{Username: username, PasswordHash: hash}
	// Create is not retried: the unique constraint makes a duplicate attempt
	// detectable, a blind retry would not be.
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			observability.RecordAuthOperation(ctx, "register", "conflict")
			return nil, domain.ErrUserExists
		}
		observability.RecordAuthOperation(ctx, "register", "error")
		return nil, err
	}

	if err := s.sessions.Establish(ctx, session, user.ID, user.Username); err != nil {
		observability.RecordAuthOperation(ctx, "register", "error")
		return nil, err
	}
	observability.RecordAuthOperation(ctx, "register", "success")
	view := user.Public()
	return &view, nil
}

func (s *AuthService) Login(ctx context.Context, session *domain.Session, username, password, sourceID string) (*domain.PublicUser, error) {
	allowed, err := s.attempts.Allowed(ctx, sourceID)
	if err != nil {
		observability.RecordAuthOperation(ctx, "login", "error")
		return nil, err
	}
	if !allowed {
		observability.RecordAuthOperation(ctx, "login", "locked_out")
		return nil, domain.ErrTooManyAttempts
	}

	user, err := s.findByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// Unknown username takes the same path and comparable time as a
			// wrong password; the response must not distinguish them.
			s.hasher.DummyVerify(password)
			return nil, s.failLogin(ctx, sourceID)
		}
		observability.RecordAuthOperation(ctx, "login", "error")
		return nil, err
	}

	if !s.hasher.Verify(password, user.PasswordHash) {
		return nil, s.failLogin(ctx, sourceID)
	}

	if err := s.attempts.RecordSuccess(ctx, sourceID); err != nil {
		slog.WarnContext(ctx, "reset attempt counter failed", "error", err)
	}
	if err := s.sessions.Establish(ctx, session, user.ID, user.Username); err != nil {
		observability.RecordAuthOperation(ctx, "login", "error")
		return nil, err
	}
	observability.RecordAuthOperation(ctx, "login", "success")
	view := user.Public()
	return &view, nil
}

func (s *AuthService) Profile(ctx context.Context, session *domain.Session) (*domain.PublicUser, error) {
	userID, _, err := s.sessions.RequireAuthenticated(session)
	if err != nil {
		observability.RecordAuthOperation(ctx, "profile", "unauthenticated")
		return nil, err
	}

	user, err := s.findByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			// The user vanished under a live session; the session is no
			// longer meaningful.
			if terr := s.sessions.Terminate(ctx, session); terr != nil && !errors.Is(terr, domain.ErrSessionNotFound) {
				slog.WarnContext(ctx, "terminate orphaned session failed", "error", terr)
			}
			observability.RecordAuthOperation(ctx, "profile", "user_gone")
			return nil, domain.ErrUserNotFound
		}
		observability.RecordAuthOperation(ctx, "profile", "error")
		return nil, err
	}
	observability.RecordAuthOperation(ctx, "profile", "success")
	view := user.Public()
	return &view, nil
}

func (s *AuthService) Logout(ctx context.Context, session *domain.Session) error {
	if _, _, err := s.sessions.RequireAuthenticated(session); err != nil {
		observability.RecordAuthOperation(ctx, "logout", "unauthenticated")
		return err
	}
	if err := s.sessions.Terminate(ctx, session); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			observability.RecordAuthOperation(ctx, "logout", "unauthenticated")
			return domain.ErrUnauthenticated
		}
		observability.RecordAuthOperation(ctx, "logout", "error")
		return err
	}
	observability.RecordAuthOperation(ctx, "logout", "success")
	return nil
}

func (s *AuthService) failLogin(ctx context.Context, sourceID string) error {
	if err := s.attempts.RecordFailure(ctx, sourceID); err != nil {
		slog.WarnContext(ctx, "record login failure failed", "error", err)
	}
	observability.RecordAuthOperation(ctx, "login", "invalid_credentials")
	return domain.ErrInvalidCredentials
}

// findByUsername retries transient store faults a small bounded number of
// times; lookups are idempotent so this is safe.
func (s *AuthService) findByUsername(ctx context.Context, username string) (*domain.User, error) {
	var user *domain.User
	err := retryRead(ctx, func() error {
		var err error
		user, err = s.users.FindByUsername(ctx, username)
		return err
	})
	return user, err
}

func (s *AuthService) findByID(ctx context.Context, id uint) (*domain.User, error) {
	var user *domain.User
	err := retryRead(ctx, func() error {
		var err error
		user, err = s.users.FindByID(ctx, id)
		return err
	})
	return user, err
}

func retryRead(ctx context.Context, op func() error) error {
	var err error
	for attempt := 1; attempt <= readRetryAttempts; attempt++ {
		err = op()
		if err == nil || !errors.Is(err, domain.ErrStoreUnavailable) {
			return err
		}
		if attempt == readRetryAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(readRetryBaseWait * time.Duration(attempt)):
		}
	}
	return err
}
