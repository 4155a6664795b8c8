package service

import (
	"strings"
	"unicode"

	"go-session-auth-service/internal/domain"
)

const passwordSymbols = "!@#$%^&*()-_=+[]{};:,.<>?"

// Each rule is an independently testable predicate with its own message,
// rather than one opaque pattern.
type passwordRule struct {
	message string
	ok      func(string) bool
}

var passwordRules = []passwordRule{
	{"must be at least 8 characters", func(p string) bool { return len(p) >= 8 }},
	{"must contain an uppercase letter", func(p string) bool { return strings.ContainsFunc(p, unicode.IsUpper) }},
	{"must contain a lowercase letter", func(p string) bool { return strings.ContainsFunc(p, unicode.IsLower) }},
	{"must contain a digit", func(p string) bool { return strings.ContainsFunc(p, unicode.IsDigit) }},
	{"must contain a symbol (" + passwordSymbols + ")", func(p string) bool { return strings.ContainsAny(p, passwordSymbols) }},
}

func validateUsername(username string, verr *domain.ValidationError) {
	if len(username) < 3 || len(username) > 30 {
		verr.Add("username", "must be 3-30 characters")
		return
	}
	for _, r := range username {
		if !isAlphanumeric(r) {
			verr.Add("username", "must contain only letters and digits")
			return
		}
	}
}

func validatePassword(password string, verr *domain.ValidationError) {
	for _, rule := range passwordRules {
		if !rule.ok(password) {
			verr.Add("password", rule.message)
		}
	}
}

// ValidateCredentials checks username format and password strength and
// returns a ValidationError carrying every violated rule, or nil.
func ValidateCredentials(username, password string) error {
	verr := &domain.ValidationError{}
	validateUsername(username, verr)
	validatePassword(password, verr)
	if verr.HasErrors() {
		return verr
	}
	return nil
}

func isAlphanumeric(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
