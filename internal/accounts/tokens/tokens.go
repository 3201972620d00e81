// Package tokens issues and resolves bearer tokens. The token format
// (opaque or JWT) and the session backend (database or Redis) vary
// independently.
package tokens

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidToken covers every reason a presented token cannot be used:
// unknown, expired, revoked, or badly signed.
var ErrInvalidToken = errors.New("tokens: invalid token")

// Token is a freshly issued bearer token. Value is shown to the client once.
type Token struct {
	Value     string
	ExpiresAt time.Time
}

// Issuer hands out, resolves, and revokes bearer tokens.
type Issuer interface {
	Issue(ctx context.Context, userID string) (Token, error)

	// Resolve returns the user ID the token belongs to.
	Resolve(ctx context.Context, raw string) (string, error)

	// Revoke invalidates exactly raw. Revoking an unknown token is a no-op.
	Revoke(ctx context.Context, raw string) error

	// RevokeUser invalidates every session of userID.
	RevokeUser(ctx context.Context, userID string) error
}

// Session is the server-side record behind a token, keyed by fingerprint.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore persists sessions by token fingerprint.
type SessionStore interface {
	Save(ctx context.Context, fingerprint string, s Session) error

	// Lookup returns ErrInvalidToken when the session is missing or expired.
	Lookup(ctx context.Context, fingerprint string) (Session, error)

	Delete(ctx context.Context, fingerprint string) error
	DeleteUser(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
}
