package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go-session-auth-service/internal/domain"
	"go-session-auth-service/internal/security"
	"go-session-auth-service/internal/service"
)

func newSessionForTest(t *testing.T) *domain.Session {
	t.Helper()
	id, err := security.NewSessionID()
	if err != nil {
		t.Fatalf("new session id: %v", err)
	}
	secret, err := security.NewCSRFSecret()
	if err != nil {
		t.Fatalf("new csrf secret: %v", err)
	}
	return &domain.Session{
		ID:         id,
		State:      domain.AnonymousState(),
		CSRFSecret: secret,
		CreatedAt:  time.Now(),
		ExpiresAt:  time.Now().Add(time.Hour),
	}
}

func requestWithSession(method, target string, session *domain.Session) *http.Request {
	req := httptest.NewRequest(method, target, nil)
	if session == nil {
		return req
	}
	ctx := context.WithValue(req.Context(), sessionContextKey, session)
	return req.WithContext(ctx)
}

func csrfProtectedHandler() http.Handler {
	validator := service.NewCSRFValidator()
	return CSRFRequired(validator)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestCSRFRequiredRejectsMissingHeader(t *testing.T) {
	h := csrfProtectedHandler()
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, requestWithSession(http.MethodPost, "/auth/login", newSessionForTest(t)))

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without csrf header, got %d", rr.Code)
	}
}

func TestCSRFRequiredRejectsForeignToken(t *testing.T) {
	h := csrfProtectedHandler()
	other := newSessionForTest(t)
	token, err := service.NewCSRFValidator().Issue(other)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := requestWithSession(http.MethodPost, "/auth/login", newSessionForTest(t))
	req.Header.Set(CSRFHeader, token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for foreign token, got %d", rr.Code)
	}
}

func TestCSRFRequiredRejectsRequestWithoutSession(t *testing.T) {
	h := csrfProtectedHandler()
	req := requestWithSession(http.MethodPost, "/auth/login", nil)
	req.Header.Set(CSRFHeader, "anything")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without session, got %d", rr.Code)
	}
}

func TestCSRFRequiredAllowsValidToken(t *testing.T) {
	h := csrfProtectedHandler()
	session := newSessionForTest(t)
	token, err := service.NewCSRFValidator().Issue(session)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := requestWithSession(http.MethodPost, "/auth/login", session)
	req.Header.Set(CSRFHeader, token)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for valid token, got %d", rr.Code)
	}
}
