package domain

import "time"

// Session represents one logical login: the lineage of a single refresh
// token. AccessTokenJTI always refers to the most recently issued access
// token for this session; rotating it on refresh invalidates the previous
// access token's session linkage even though that token stays
// cryptographically valid until its own expiry.
type Session struct {
	ID               string
	UserID           string
	RefreshTokenHash string // SHA-256 hex of the refresh token; unique
	AccessTokenJTI   string // jti of the current access token; unique
	CreatedAt        time.Time
	ExpiresAt        time.Time // refresh-token lifetime; checked lazily
	IPAddress        string
	UserAgent        string
	IsActive         bool // false is terminal; sessions are never reactivated
}

// Expired reports whether the session's own lifetime has passed at t.
func (s *Session) Expired(t time.Time) bool {
	return t.After(s.ExpiresAt)
}
