package response

import (
	"encoding/json"
	"net/http"

	"go-session-auth-service/internal/domain"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

type errorBody struct {
	Error     string             `json:"error"`
	Details   []domain.FieldError `json:"details,omitempty"`
	RequestID string             `json:"request_id,omitempty"`
}

// JSON writes a success payload as-is.
func JSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// Error writes the stable error shape: a machine-readable code plus, for
// validation failures, per-field details. Internal context never reaches the
// client here.
func Error(w http.ResponseWriter, r *http.Request, status int, code string, details []domain.FieldError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{
		Error:     code,
		Details:   details,
		RequestID: requestID(r),
	})
}

func requestID(r *http.Request) string {
	if id := chimiddleware.GetReqID(r.Context()); id != "" {
		return id
	}
	return r.Header.Get("X-Request-Id")
}
