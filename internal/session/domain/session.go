package domain

import "time"

// Session represents a persisted session for an authenticated user. All
// fields except ExpiresAt are write-once; a session is either renewed
// (ExpiresAt pushed forward) or deleted, never otherwise mutated.
type Session struct {
	ID         string
	SessionKey string // random lookup key, not the bearer token
	UserID     string
	ExpiresAt  time.Time
	IPAddress  string // "" when the origin address was not observed
	IsAdmin    bool   // copied from the user at creation, not re-derived
	CreatedAt  time.Time
}

// IsExpired reports whether the session is past its expiry at the given time.
// A session is valid while now <= ExpiresAt.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}
