package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"go-session-auth-service/internal/domain"
	"go-session-auth-service/internal/http/middleware"
	"go-session-auth-service/internal/http/response"
	"go-session-auth-service/internal/observability"
	"go-session-auth-service/internal/security"
	"go-session-auth-service/internal/service"
)

type AuthHandler struct {
	auth          *service.AuthService
	csrf          *service.CSRFValidator
	cookieSecure  bool
	lockoutWindow time.Duration
}

func NewAuthHandler(auth *service.AuthService, csrf *service.CSRFValidator, cookieSecure bool, lockoutWindow time.Duration) *AuthHandler {
	return &AuthHandler{auth: auth, csrf: csrf, cookieSecure: cookieSecure, lockoutWindow: lockoutWindow}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type userSummary struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
}

type userCreatedView struct {
	ID        uint      `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// CSRFToken returns a fresh anti-forgery token for the caller's session.
// Safe method, no CSRF check; issuing repeatedly is harmless.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusServiceUnavailable, "service_unavailable", nil)
		return
	}
	token, err := h.csrf.Issue(session)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]string{"csrfToken": token})
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusServiceUnavailable, "service_unavailable", nil)
		return
	}
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.auth.Register(r.Context(), session, req.Username, req.Password)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	observability.Audit(r, "auth.register", "user_id", user.ID)
	response.JSON(w, r, http.StatusCreated, map[string]any{
		"message": "registration successful",
		"user":    userCreatedView{ID: user.ID, Username: user.Username, CreatedAt: user.CreatedAt},
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusServiceUnavailable, "service_unavailable", nil)
		return
	}
	req, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	user, err := h.auth.Login(r.Context(), session, req.Username, req.Password, middleware.ClientIP(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	observability.Audit(r, "auth.login", "user_id", user.ID)
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message": "login successful",
		"user":    userSummary{ID: user.ID, Username: user.Username},
	})
}

func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusServiceUnavailable, "service_unavailable", nil)
		return
	}

	user, err := h.auth.Profile(r.Context(), session)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			// The principal vanished; the session was invalidated, clear the
			// cookie alongside the uniform 401.
			security.ClearSessionCookie(w, h.cookieSecure)
		}
		h.writeError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, map[string]any{
		"message": "profile",
		"user":    user,
	})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	session, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		response.Error(w, r, http.StatusServiceUnavailable, "service_unavailable", nil)
		return
	}

	if err := h.auth.Logout(r.Context(), session); err != nil {
		h.writeError(w, r, err)
		return
	}
	security.ClearSessionCookie(w, h.cookieSecure)
	observability.Audit(r, "auth.logout", "user_id", session.State.UserID)
	response.JSON(w, r, http.StatusOK, map[string]string{"message": "logout successful"})
}

func (h *AuthHandler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var req credentialsRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		response.Error(w, r, http.StatusBadRequest, "validation_failed", []domain.FieldError{
			{Field: "body", Message: "must be a JSON object with username and password"},
		})
		return credentialsRequest{}, false
	}
	return req, true
}

func (h *AuthHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		response.Error(w, r, http.StatusBadRequest, "validation_failed", verr.Fields)
	case errors.Is(err, domain.ErrUserExists):
		response.Error(w, r, http.StatusConflict, "user_exists", nil)
	case errors.Is(err, domain.ErrInvalidCredentials):
		response.Error(w, r, http.StatusUnauthorized, "invalid_credentials", nil)
	case errors.Is(err, domain.ErrTooManyAttempts):
		w.Header().Set("Retry-After", retryAfterSeconds(h.lockoutWindow))
		response.Error(w, r, http.StatusTooManyRequests, "too_many_attempts", nil)
	case errors.Is(err, domain.ErrInvalidCSRFToken):
		response.Error(w, r, http.StatusForbidden, "invalid_csrf_token", nil)
	case errors.Is(err, domain.ErrUnauthenticated), errors.Is(err, domain.ErrUserNotFound), errors.Is(err, domain.ErrSessionNotFound):
		response.Error(w, r, http.StatusUnauthorized, "unauthenticated", nil)
	case errors.Is(err, domain.ErrStoreUnavailable):
		slog.ErrorContext(r.Context(), "store unavailable", "error", err)
		response.Error(w, r, http.StatusServiceUnavailable, "service_unavailable", nil)
	default:
		slog.ErrorContext(r.Context(), "unhandled auth error", "error", err)
		response.Error(w, r, http.StatusInternalServerError, "internal_error", nil)
	}
}

func retryAfterSeconds(d time.Duration) string {
	seconds := int(d.Round(time.Second).Seconds())
	if seconds <= 0 {
		seconds = 1
	}
	return strconv.Itoa(seconds)
}
