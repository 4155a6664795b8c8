package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-session-auth-service/internal/domain"
)

func newSessionManagerForTest(t *testing.T) (*SessionManager, *time.Time) {
	t.Helper()
	store, now := newMemoryStoreForTest(t)
	m := NewSessionManager(store, time.Hour)
	m.now = store.now
	return m, now
}

func TestGetOrCreateNewAnonymousSession(t *testing.T) {
	ctx := context.Background()
	m, _ := newSessionManagerForTest(t)

	session, created, err := m.GetOrCreate(ctx, "")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created {
		t.Fatal("expected a new session")
	}
	if session.State.Authenticated {
		t.Fatal("new session must be anonymous")
	}
	if session.ID == "" || len(session.CSRFSecret) == 0 {
		t.Fatal("session must carry an id and csrf secret")
	}
	if _, _, err := m.RequireAuthenticated(session); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("anonymous session must not pass RequireAuthenticated, got %v", err)
	}
}

func TestGetOrCreateReturnsLiveSession(t *testing.T) {
	ctx := context.Background()
	m, _ := newSessionManagerForTest(t)

	first, _, err := m.GetOrCreate(ctx, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, created, err := m.GetOrCreate(ctx, first.ID)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if created {
		t.Fatal("live session must be reused, not recreated")
	}
	if second.ID != first.ID {
		t.Fatalf("expected same session id, got %q vs %q", second.ID, first.ID)
	}
}

func TestGetOrCreateReplacesUnknownCookie(t *testing.T) {
	ctx := context.Background()
	m, _ := newSessionManagerForTest(t)

	session, created, err := m.GetOrCreate(ctx, "stale-or-forged-value")
	if err != nil {
		t.Fatalf("get or create: %v", err)
	}
	if !created || session.ID == "stale-or-forged-value" {
		t.Fatal("unknown cookie must yield a fresh session")
	}
}

func TestEstablishAndRequireAuthenticated(t *testing.T) {
	ctx := context.Background()
	m, _ := newSessionManagerForTest(t)

	session, _, _ := m.GetOrCreate(ctx, "")
	if err := m.Establish(ctx, session, 42, "alice123"); err != nil {
		t.Fatalf("establish: %v", err)
	}

	userID, username, err := m.RequireAuthenticated(session)
	if err != nil {
		t.Fatalf("require authenticated: %v", err)
	}
	if userID != 42 || username != "alice123" {
		t.Fatalf("unexpected principal %d/%q", userID, username)
	}

	// A fresh read of the stored record observes the established state.
	reloaded, created, err := m.GetOrCreate(ctx, session.ID)
	if err != nil || created {
		t.Fatalf("reload: created=%v err=%v", created, err)
	}
	if !reloaded.State.Authenticated || reloaded.State.UserID != 42 {
		t.Fatalf("stored state not established: %+v", reloaded.State)
	}
}

func TestTerminate(t *testing.T) {
	ctx := context.Background()
	m, _ := newSessionManagerForTest(t)

	session, _, _ := m.GetOrCreate(ctx, "")
	if err := m.Terminate(ctx, session); err != nil {
		t.Fatalf("terminate: %v", err)
	}
	if err := m.Terminate(ctx, session); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("double terminate must fail with ErrSessionNotFound, got %v", err)
	}

	// The old cookie now yields a fresh anonymous session.
	replacement, created, err := m.GetOrCreate(ctx, session.ID)
	if err != nil || !created {
		t.Fatalf("expected fresh session after terminate, created=%v err=%v", created, err)
	}
	if replacement.State.Authenticated {
		t.Fatal("replacement session must be anonymous")
	}
}

func TestSessionExpiry(t *testing.T) {
	ctx := context.Background()
	m, now := newSessionManagerForTest(t)

	session, _, _ := m.GetOrCreate(ctx, "")
	*now = now.Add(2 * time.Hour)

	_, created, err := m.GetOrCreate(ctx, session.ID)
	if err != nil {
		t.Fatalf("get or create after expiry: %v", err)
	}
	if !created {
		t.Fatal("expired session must be replaced")
	}
}
