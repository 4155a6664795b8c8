package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"go-session-auth-service/internal/domain"
	"go-session-auth-service/internal/http/response"
	"go-session-auth-service/internal/security"
	"go-session-auth-service/internal/service"
)

type contextKey string

const sessionContextKey contextKey = "session"

// SessionMiddleware resolves the session cookie to a live session, creating
// an Anonymous one (and emitting Set-Cookie) when needed, and attaches it to
// the request context.
func SessionMiddleware(sessions *service.SessionManager, cookieSecure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookieValue := security.GetCookie(r, security.SessionCookieName)
			session, created, err := sessions.GetOrCreate(r.Context(), cookieValue)
			if err != nil {
				slog.ErrorContext(r.Context(), "session resolution failed", "error", err)
				response.Error(w, r, http.StatusServiceUnavailable, "service_unavailable", nil)
				return
			}
			if created {
				security.SetSessionCookie(w, session.ID, session.ExpiresAt, cookieSecure)
			}
			ctx := context.WithValue(r.Context(), sessionContextKey, session)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func SessionFromContext(ctx context.Context) (*domain.Session, bool) {
	s, ok := ctx.Value(sessionContextKey).(*domain.Session)
	return s, ok
}
