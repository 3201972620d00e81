package tokens

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
)

// DBSessions keeps sessions in the access_tokens table.
type DBSessions struct {
	store store.Store
	now   func() time.Time
}

func NewDBSessions(s store.Store) *DBSessions {
	return &DBSessions{store: s, now: time.Now}
}

// WithClock swaps the time source used for expiry checks.
func (d *DBSessions) WithClock(now func() time.Time) *DBSessions {
	d.now = now
	return d
}

func (d *DBSessions) Save(ctx context.Context, fingerprint string, s Session) error {
	err := d.store.AccessTokens().CreateAccessToken(ctx, domain.AccessToken{
		ID:        s.ID,
		UserID:    s.UserID,
		Name:      domain.DefaultTokenName,
		TokenHash: fingerprint,
		ExpiresAt: s.ExpiresAt,
		CreatedAt: d.now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Lookup also stamps last_used_at. A failed stamp is logged, not returned.
func (d *DBSessions) Lookup(ctx context.Context, fingerprint string) (Session, error) {
	t, err := d.store.AccessTokens().GetAccessTokenByHash(ctx, fingerprint)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrInvalidToken
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup session: %w", err)
	}

	now := d.now().UTC()
	if t.Expired(now) {
		return Session{}, ErrInvalidToken
	}

	if err := d.store.AccessTokens().TouchAccessToken(ctx, t.ID, now); err != nil {
		slogx.FromContext(ctx).Warn("failed to touch access token",
			slog.String("token_id", t.ID),
			slog.String("error", err.Error()))
	}

	return Session{ID: t.ID, UserID: t.UserID, ExpiresAt: t.ExpiresAt}, nil
}

func (d *DBSessions) Delete(ctx context.Context, fingerprint string) error {
	err := d.store.AccessTokens().DeleteAccessTokenByHash(ctx, fingerprint)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (d *DBSessions) DeleteUser(ctx context.Context, userID string) error {
	if _, err := d.store.AccessTokens().DeleteUserAccessTokens(ctx, userID); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func (d *DBSessions) Ping(ctx context.Context) error { return d.store.Ping(ctx) }
