package service

import (
	"go-session-auth-service/internal/domain"
	"go-session-auth-service/internal/security"
)

// CSRFValidator implements the double-submit pattern bound to the session:
// tokens are derivations of the session-held secret, so possessing the
// session cookie alone is not enough to forge a mutating request.
type CSRFValidator struct{}

func NewCSRFValidator() *CSRFValidator { return &CSRFValidator{} }

// Issue mints a fresh token for the session. Repeated issuance is safe:
// earlier tokens for the same session remain valid, so concurrent tabs do
// not break each other.
func (v *CSRFValidator) Issue(session *domain.Session) (string, error) {
	return security.DeriveCSRFToken(session.CSRFSecret)
}

// Validate checks the presented token against the session secret in constant
// time. It reveals nothing about why validation failed.
func (v *CSRFValidator) Validate(session *domain.Session, presented string) bool {
	if session == nil || presented == "" {
		return false
	}
	return security.VerifyCSRFToken(session.CSRFSecret, presented)
}
