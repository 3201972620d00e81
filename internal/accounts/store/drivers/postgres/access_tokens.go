package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
)

type accessTokensRepo struct {
	db DBTX
}

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	defer store.ObserveQuery(driverName, "create_access_token")()

	name := t.Name
	if name == "" {
		name = domain.DefaultTokenName
	}

	query := `
		INSERT INTO access_tokens (id, user_id, name, token_hash, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := r.db.ExecContext(ctx, query,
		t.ID, t.UserID, name, t.TokenHash, t.ExpiresAt.UTC(), t.CreatedAt.UTC()); err != nil {
		return mapConstraint(err)
	}
	return nil
}

func (r *accessTokensRepo) GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	defer store.ObserveQuery(driverName, "get_access_token_by_hash")()

	query := `
		SELECT id, user_id, name, token_hash, expires_at, last_used_at, created_at
		FROM access_tokens
		WHERE token_hash = $1
	`

	var (
		t        domain.AccessToken
		lastUsed sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, hash).
		Scan(&t.ID, &t.UserID, &t.Name, &t.TokenHash, &t.ExpiresAt, &lastUsed, &t.CreatedAt)
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}

	t.ExpiresAt = t.ExpiresAt.UTC()
	t.CreatedAt = t.CreatedAt.UTC()
	if lastUsed.Valid {
		at := lastUsed.Time.UTC()
		t.LastUsedAt = &at
	}
	return t, nil
}

func (r *accessTokensRepo) TouchAccessToken(ctx context.Context, id string, at time.Time) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE access_tokens SET last_used_at = $1 WHERE id = $2`, at.UTC(), id); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *accessTokensRepo) DeleteAccessTokenByHash(ctx context.Context, hash string) error {
	defer store.ObserveQuery(driverName, "delete_access_token")()

	res, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE token_hash = $1`, hash)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return affected(res)
}

func (r *accessTokensRepo) DeleteUserAccessTokens(ctx context.Context, userID string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}

func (r *accessTokensRepo) DeleteExpiredAccessTokens(ctx context.Context, now time.Time) (int64, error) {
	defer store.ObserveQuery(driverName, "delete_expired_access_tokens")()

	res, err := r.db.ExecContext(ctx, `DELETE FROM access_tokens WHERE expires_at <= $1`, now.UTC())
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return res.RowsAffected()
}
