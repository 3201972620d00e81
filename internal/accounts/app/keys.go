package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aussiebroadwan/accounts/internal/accounts/store"
	"github.com/aussiebroadwan/accounts/internal/accounts/tokens"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

// jwtLeeway tolerates clock skew between replicas sharing a signing key.
const jwtLeeway = 30 * time.Second

// initSessions picks where issued tokens are remembered.
//
// Storage backends:
//   - "database": the access_tokens table. Tokens survive restarts and die
//     with their user through the foreign key.
//   - "redis": one key per session with a TTL. Replicas share sessions and
//     expired ones vanish without housekeeping.
func initSessions(ctx context.Context, cfg Config, db store.Store, logger *slog.Logger) (tokens.SessionStore, *redis.Client, error) {
	switch cfg.TokenBackend {
	case TokenBackendRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		logger.Info("token sessions in redis", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return tokens.NewRedisSessions(rdb), rdb, nil

	default:
		logger.Info("token sessions in database")
		return tokens.NewDBSessions(db), nil, nil
	}
}

// initIssuer builds the token issuer for the configured format.
//
// Formats:
//   - "opaque": random 256-bit tokens. Only their SHA-256 fingerprint is
//     stored.
//   - "jwt": EdDSA-signed JWTs. The key is loaded from (or written to)
//     TOKEN_SIGNING_KEY_FILE so tokens survive restarts. Revocation still
//     goes through the session store.
//
// The returned KeySet is nil for opaque tokens.
func initIssuer(cfg Config, sessions tokens.SessionStore, logger *slog.Logger) (tokens.Issuer, *jwtx.KeySet, error) {
	switch cfg.TokenFormat {
	case TokenFormatJWT:
		key, err := cryptox.LoadOrGenerateEd25519Key(cfg.TokenSigningKeyFile)
		if err != nil {
			return nil, nil, fmt.Errorf("load signing key: %w", err)
		}

		signer, err := jwtx.NewSignerEdDSA("", key)
		if err != nil {
			return nil, nil, fmt.Errorf("signer: %w", err)
		}

		keys := jwtx.NewKeySet()
		keys.AddSigner(signer)
		verifier := jwtx.NewVerifierEdDSA(keys, cfg.TokenIssuer, jwtLeeway)

		logger.Info("issuing jwt tokens",
			"kid", signer.KID(),
			"issuer", cfg.TokenIssuer,
			"ttl", cfg.TokenTTL(),
		)
		return tokens.NewJWTIssuer(signer, verifier, cfg.TokenIssuer, sessions, cfg.TokenTTL()), keys, nil

	default:
		logger.Info("issuing opaque tokens", "ttl", cfg.TokenTTL())
		return tokens.NewOpaqueIssuer(sessions, cfg.TokenTTL()), nil, nil
	}
}
