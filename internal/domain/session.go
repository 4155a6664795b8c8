package domain

import "time"

// Session is the server-side record behind the opaque cookie value. It is
// stored as a whole and swapped as a whole, so concurrent readers observe
// either the fully-old or fully-new state.
type Session struct {
	ID         string       `json:"id"`
	State      SessionState `json:"state"`
	CSRFSecret []byte       `json:"csrf_secret"`
	CreatedAt  time.Time    `json:"created_at"`
	ExpiresAt  time.Time    `json:"expires_at"`
}

// SessionState is Anonymous until a register or login succeeds. UserID and
// Username are meaningful only when Authenticated is true.
type SessionState struct {
	Authenticated bool   `json:"authenticated"`
	UserID        uint   `json:"user_id,omitempty"`
	Username      string `json:"username,omitempty"`
}

func AnonymousState() SessionState {
	return SessionState{}
}

func AuthenticatedState(userID uint, username string) SessionState {
	return SessionState{Authenticated: true, UserID: userID, Username: username}
}

func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}
