package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/idx"
)

// OpaqueIssuer issues random 256-bit tokens. Only their fingerprint is stored.
type OpaqueIssuer struct {
	sessions SessionStore
	ttl      time.Duration
	now      func() time.Time
}

func NewOpaqueIssuer(sessions SessionStore, ttl time.Duration) *OpaqueIssuer {
	return &OpaqueIssuer{sessions: sessions, ttl: ttl, now: time.Now}
}

// WithClock swaps the time source used to stamp expiry.
func (o *OpaqueIssuer) WithClock(now func() time.Time) *OpaqueIssuer {
	o.now = now
	return o
}

func (o *OpaqueIssuer) Issue(ctx context.Context, userID string) (Token, error) {
	raw, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return Token{}, fmt.Errorf("issue token: %w", err)
	}

	expiresAt := o.now().UTC().Add(o.ttl)
	err = o.sessions.Save(ctx, cryptox.FingerprintToken(raw), Session{
		ID:        idx.New().String(),
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return Token{}, err
	}

	return Token{Value: raw, ExpiresAt: expiresAt}, nil
}

func (o *OpaqueIssuer) Resolve(ctx context.Context, raw string) (string, error) {
	if raw == "" {
		return "", ErrInvalidToken
	}
	s, err := o.sessions.Lookup(ctx, cryptox.FingerprintToken(raw))
	if err != nil {
		return "", err
	}
	return s.UserID, nil
}

func (o *OpaqueIssuer) Revoke(ctx context.Context, raw string) error {
	return o.sessions.Delete(ctx, cryptox.FingerprintToken(raw))
}

func (o *OpaqueIssuer) RevokeUser(ctx context.Context, userID string) error {
	return o.sessions.DeleteUser(ctx, userID)
}
