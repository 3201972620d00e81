package domain

import "time"

// DefaultTokenName is stored against tokens issued by login.
const DefaultTokenName = "auth_token"

// AccessToken is the stored record behind a bearer token. Only the
// fingerprint is kept; the plaintext is shown once at login.
type AccessToken struct {
	ID         string
	UserID     string
	Name       string
	TokenHash  string // base64url SHA-256 of the opaque token, or of the JWT jti
	ExpiresAt  time.Time
	LastUsedAt *time.Time
	CreatedAt  time.Time
}

// Expired reports whether the token is no longer valid at now.
func (t AccessToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}
