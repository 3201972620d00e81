package tokens

import (
	"context"
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

// JWTIssuer issues EdDSA-signed JWTs. The jti fingerprint keys a session,
// so a signed token still dies on logout.
type JWTIssuer struct {
	signer   jwtx.Signer
	verifier jwtx.Verifier
	issuer   string
	sessions SessionStore
	ttl      time.Duration
	now      func() time.Time
}

func NewJWTIssuer(signer jwtx.Signer, verifier jwtx.Verifier, issuer string, sessions SessionStore, ttl time.Duration) *JWTIssuer {
	return &JWTIssuer{
		signer:   signer,
		verifier: verifier,
		issuer:   issuer,
		sessions: sessions,
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock swaps the time source used for iat/exp.
func (j *JWTIssuer) WithClock(now func() time.Time) *JWTIssuer {
	j.now = now
	return j
}

func (j *JWTIssuer) Issue(ctx context.Context, userID string) (Token, error) {
	claims := jwtx.NewClaims(userID, j.issuer, j.ttl, j.now())

	signed, err := j.signer.Sign(claims)
	if err != nil {
		return Token{}, fmt.Errorf("sign token: %w", err)
	}

	expiresAt := claims.ExpiresAtTime()
	err = j.sessions.Save(ctx, cryptox.FingerprintToken(claims.ID), Session{
		ID:        idx.New().String(),
		UserID:    userID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return Token{}, err
	}

	return Token{Value: signed, ExpiresAt: expiresAt}, nil
}

func (j *JWTIssuer) Resolve(ctx context.Context, raw string) (string, error) {
	claims, err := j.verifier.Verify(raw)
	if err != nil {
		return "", ErrInvalidToken
	}

	s, err := j.sessions.Lookup(ctx, cryptox.FingerprintToken(claims.ID))
	if err != nil {
		return "", err
	}
	if s.UserID != claims.Subject {
		return "", ErrInvalidToken
	}
	return s.UserID, nil
}

// Revoke drops the session behind raw. Tokens that no longer verify have
// nothing left to revoke.
func (j *JWTIssuer) Revoke(ctx context.Context, raw string) error {
	claims, err := j.verifier.Verify(raw)
	if err != nil {
		return nil
	}
	return j.sessions.Delete(ctx, cryptox.FingerprintToken(claims.ID))
}

func (j *JWTIssuer) RevokeUser(ctx context.Context, userID string) error {
	return j.sessions.DeleteUser(ctx, userID)
}
