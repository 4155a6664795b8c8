package security

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

const (
	sessionIDBytes  = 32
	csrfSecretBytes = 32
	csrfNonceBytes  = 16
)

// NewSessionID returns an opaque, non-decodable session identifier.
func NewSessionID() (string, error) {
	raw, err := randomBytes(sessionIDBytes)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// NewCSRFSecret returns fresh secret material for anti-forgery token
// derivation, held server-side only.
func NewCSRFSecret() ([]byte, error) {
	return randomBytes(csrfSecretBytes)
}

// DeriveCSRFToken mints a token as nonce || HMAC-SHA256(secret, nonce).
// Each issuance uses a fresh nonce, so previously issued tokens for the same
// secret stay valid.
func DeriveCSRFToken(secret []byte) (string, error) {
	nonce, err := randomBytes(csrfNonceBytes)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(nonce)
	return base64.RawURLEncoding.EncodeToString(append(nonce, mac.Sum(nil)...)), nil
}

// VerifyCSRFToken reports whether token is a valid derivation of secret.
// The comparison is constant time; malformed input only yields false.
func VerifyCSRFToken(secret []byte, token string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(raw) != csrfNonceBytes+sha256.Size {
		return false
	}
	nonce, presented := raw[:csrfNonceBytes], raw[csrfNonceBytes:]
	mac := hmac.New(sha256.New, secret)
	mac.Write(nonce)
	return hmac.Equal(presented, mac.Sum(nil))
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("read random bytes: %w", err)
	}
	return b, nil
}
