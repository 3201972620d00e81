package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite/gen"
)

type accessTokensRepo struct {
	q *gen.Queries
}

func (r *accessTokensRepo) CreateAccessToken(ctx context.Context, t domain.AccessToken) error {
	defer store.ObserveQuery(driverName, "create_access_token")()

	name := t.Name
	if name == "" {
		name = domain.DefaultTokenName
	}

	err := r.q.CreateAccessToken(ctx, gen.CreateAccessTokenParams{
		ID:        t.ID,
		UserID:    t.UserID,
		Name:      name,
		TokenHash: t.TokenHash,
		ExpiresAt: t.ExpiresAt.UTC(),
		CreatedAt: t.CreatedAt.UTC(),
	})
	return mapConstraint(err)
}

func (r *accessTokensRepo) GetAccessTokenByHash(ctx context.Context, hash string) (domain.AccessToken, error) {
	defer store.ObserveQuery(driverName, "get_access_token_by_hash")()

	row, err := r.q.GetAccessTokenByHash(ctx, hash)
	if err != nil {
		return domain.AccessToken{}, mapNotFound(err)
	}
	return mapAccessToken(row), nil
}

func (r *accessTokensRepo) TouchAccessToken(ctx context.Context, id string, at time.Time) error {
	return r.q.TouchAccessToken(ctx, gen.TouchAccessTokenParams{
		LastUsedAt: sql.NullTime{Time: at.UTC(), Valid: true},
		ID:         id,
	})
}

func (r *accessTokensRepo) DeleteAccessTokenByHash(ctx context.Context, hash string) error {
	defer store.ObserveQuery(driverName, "delete_access_token")()

	n, err := r.q.DeleteAccessTokenByHash(ctx, hash)
	if err != nil {
		return err
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *accessTokensRepo) DeleteUserAccessTokens(ctx context.Context, userID string) (int64, error) {
	return r.q.DeleteUserAccessTokens(ctx, userID)
}

func (r *accessTokensRepo) DeleteExpiredAccessTokens(ctx context.Context, now time.Time) (int64, error) {
	defer store.ObserveQuery(driverName, "delete_expired_access_tokens")()

	return r.q.DeleteExpiredAccessTokens(ctx, now.UTC())
}
