package middleware

import (
	"net/http"

	"go-session-auth-service/internal/http/response"
	"go-session-auth-service/internal/observability"
	"go-session-auth-service/internal/service"
)

const CSRFHeader = "X-CSRF-Token"

// CSRFRequired rejects mutating requests whose X-CSRF-Token header is not a
// valid derivation of the session secret. It runs before any handler logic,
// so a rejected request has no side effects. The response does not reveal
// whether the session itself was valid.
func CSRFRequired(validator *service.CSRFValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			session, ok := SessionFromContext(r.Context())
			token := r.Header.Get(CSRFHeader)
			if !ok || !validator.Validate(session, token) {
				observability.RecordCSRFValidation(r.Context(), "rejected")
				observability.Audit(r, "csrf.rejected")
				response.Error(w, r, http.StatusForbidden, "invalid_csrf_token", nil)
				return
			}
			observability.RecordCSRFValidation(r.Context(), "accepted")
			next.ServeHTTP(w, r)
		})
	}
}
