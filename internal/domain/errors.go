package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUserExists is returned when registration hits the username unique constraint.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials covers both unknown username and wrong password,
	// deliberately indistinguishable at the boundary.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrTooManyAttempts is returned while a source is inside its lockout window.
	ErrTooManyAttempts = errors.New("too many failed attempts")
	// ErrInvalidCSRFToken is returned when a mutating request carries no valid
	// anti-forgery token.
	ErrInvalidCSRFToken = errors.New("invalid csrf token")
	// ErrUnauthenticated is returned when an operation requires an
	// authenticated session and none is present.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrUserNotFound is returned when an authenticated session references a
	// user that no longer exists.
	ErrUserNotFound = errors.New("user not found")
	// ErrSessionNotFound is returned when terminating a session that is
	// already destroyed or expired.
	ErrSessionNotFound = errors.New("session not found")
	// ErrStoreUnavailable wraps transient infrastructure faults; read
	// operations may be retried, writes must not be.
	ErrStoreUnavailable = errors.New("store unavailable")
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries one message per violated input rule.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		msgs = append(msgs, fmt.Sprintf("%s: %s", f.Field, f.Message))
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

func (e *ValidationError) HasErrors() bool { return len(e.Fields) > 0 }
