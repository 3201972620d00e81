package tokens_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/aussiebroadwan/accounts/internal/accounts/domain"
	"github.com/aussiebroadwan/accounts/internal/accounts/store/drivers/sqlite"
	"github.com/aussiebroadwan/accounts/internal/accounts/tokens"
	"github.com/aussiebroadwan/accounts/pkg/cryptox"
	"github.com/aussiebroadwan/accounts/pkg/idx"
	"github.com/aussiebroadwan/accounts/pkg/jwtx"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time          { return c.t }
func (c *clock) advance(d time.Duration) { c.t = c.t.Add(d) }
func newClock() *clock                   { return &clock{t: time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)} }

func newSQLite(t *testing.T, userIDs ...string) *sqlite.Store {
	t.Helper()

	s, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	now := time.Now().UTC()
	for _, id := range userIDs {
		require.NoError(t, s.Users().CreateUser(context.Background(), domain.User{
			ID: id, Name: id, Username: strings.ToLower(id), Email: strings.ToLower(id) + "@example.com",
			PasswordHash: "x", CreatedAt: now, UpdatedAt: now,
		}))
	}
	return s
}

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return mr, rdb
}

// sessionBackends returns both SessionStore implementations on a shared clock.
func sessionBackends(t *testing.T, c *clock, userIDs ...string) map[string]tokens.SessionStore {
	_, rdb := newRedis(t)
	return map[string]tokens.SessionStore{
		"database": tokens.NewDBSessions(newSQLite(t, userIDs...)).WithClock(c.now),
		"redis":    tokens.NewRedisSessions(rdb).WithClock(c.now),
	}
}

func TestOpaqueIssuer_Lifecycle(t *testing.T) {
	userID := idx.New().String()

	for name, sessions := range sessionBackends(t, newClock(), userID) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			iss := tokens.NewOpaqueIssuer(sessions, time.Hour)

			tok, err := iss.Issue(ctx, userID)
			require.NoError(t, err)
			require.Len(t, tok.Value, 43)

			got, err := iss.Resolve(ctx, tok.Value)
			require.NoError(t, err)
			require.Equal(t, userID, got)

			require.NoError(t, iss.Revoke(ctx, tok.Value))
			_, err = iss.Resolve(ctx, tok.Value)
			require.ErrorIs(t, err, tokens.ErrInvalidToken)

			// revoking twice is harmless
			require.NoError(t, iss.Revoke(ctx, tok.Value))
		})
	}
}

func TestOpaqueIssuer_RevokeIsPerToken(t *testing.T) {
	userID := idx.New().String()

	for name, sessions := range sessionBackends(t, newClock(), userID) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			iss := tokens.NewOpaqueIssuer(sessions, time.Hour)

			a, err := iss.Issue(ctx, userID)
			require.NoError(t, err)
			b, err := iss.Issue(ctx, userID)
			require.NoError(t, err)

			require.NoError(t, iss.Revoke(ctx, a.Value))

			_, err = iss.Resolve(ctx, a.Value)
			require.ErrorIs(t, err, tokens.ErrInvalidToken)
			got, err := iss.Resolve(ctx, b.Value)
			require.NoError(t, err)
			require.Equal(t, userID, got)
		})
	}
}

func TestOpaqueIssuer_Expiry(t *testing.T) {
	userID := idx.New().String()
	c := newClock()

	for name, sessions := range sessionBackends(t, c, userID) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			iss := tokens.NewOpaqueIssuer(sessions, time.Hour).WithClock(c.now)

			tok, err := iss.Issue(ctx, userID)
			require.NoError(t, err)
			require.Equal(t, c.now().Add(time.Hour), tok.ExpiresAt)

			c.advance(59 * time.Minute)
			_, err = iss.Resolve(ctx, tok.Value)
			require.NoError(t, err)

			c.advance(time.Minute)
			_, err = iss.Resolve(ctx, tok.Value)
			require.ErrorIs(t, err, tokens.ErrInvalidToken)

			c.advance(-time.Hour)
		})
	}
}

func TestOpaqueIssuer_RevokeUser(t *testing.T) {
	alice, bob := idx.New().String(), idx.New().String()

	for name, sessions := range sessionBackends(t, newClock(), alice, bob) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			iss := tokens.NewOpaqueIssuer(sessions, time.Hour)

			a1, err := iss.Issue(ctx, alice)
			require.NoError(t, err)
			a2, err := iss.Issue(ctx, alice)
			require.NoError(t, err)
			b1, err := iss.Issue(ctx, bob)
			require.NoError(t, err)

			require.NoError(t, iss.RevokeUser(ctx, alice))

			for _, tok := range []tokens.Token{a1, a2} {
				_, err := iss.Resolve(ctx, tok.Value)
				require.ErrorIs(t, err, tokens.ErrInvalidToken)
			}
			_, err = iss.Resolve(ctx, b1.Value)
			require.NoError(t, err)
		})
	}
}

func TestOpaqueIssuer_UnknownToken(t *testing.T) {
	for name, sessions := range sessionBackends(t, newClock()) {
		t.Run(name, func(t *testing.T) {
			iss := tokens.NewOpaqueIssuer(sessions, time.Hour)

			_, err := iss.Resolve(context.Background(), "nope")
			require.ErrorIs(t, err, tokens.ErrInvalidToken)
			_, err = iss.Resolve(context.Background(), "")
			require.ErrorIs(t, err, tokens.ErrInvalidToken)
		})
	}
}

func TestDBSessions_StoresFingerprintAndTouches(t *testing.T) {
	ctx := context.Background()
	userID := idx.New().String()
	st := newSQLite(t, userID)
	c := newClock()

	iss := tokens.NewOpaqueIssuer(tokens.NewDBSessions(st).WithClock(c.now), time.Hour).WithClock(c.now)
	tok, err := iss.Issue(ctx, userID)
	require.NoError(t, err)

	rec, err := st.AccessTokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(tok.Value))
	require.NoError(t, err)
	require.Equal(t, domain.DefaultTokenName, rec.Name)
	require.Nil(t, rec.LastUsedAt)

	c.advance(5 * time.Minute)
	_, err = iss.Resolve(ctx, tok.Value)
	require.NoError(t, err)

	rec, err = st.AccessTokens().GetAccessTokenByHash(ctx, cryptox.FingerprintToken(tok.Value))
	require.NoError(t, err)
	require.NotNil(t, rec.LastUsedAt)
	require.True(t, rec.LastUsedAt.Equal(c.now()))
}

func TestRedisSessions_TTLAndIndex(t *testing.T) {
	ctx := context.Background()
	mr, rdb := newRedis(t)
	c := newClock()
	userID := idx.New().String()

	sessions := tokens.NewRedisSessions(rdb).WithClock(c.now)
	iss := tokens.NewOpaqueIssuer(sessions, 30*time.Minute).WithClock(c.now)

	tok, err := iss.Issue(ctx, userID)
	require.NoError(t, err)

	fp := cryptox.FingerprintToken(tok.Value)
	require.True(t, mr.Exists("session:"+fp))
	require.Equal(t, 30*time.Minute, mr.TTL("session:"+fp))

	members, err := mr.Members("user_sessions:" + userID)
	require.NoError(t, err)
	require.Equal(t, []string{fp}, members)

	require.NoError(t, iss.Revoke(ctx, tok.Value))
	require.False(t, mr.Exists("session:"+fp))

	require.NoError(t, sessions.Ping(ctx))
}

func TestRedisSessions_SaveRejectsExpired(t *testing.T) {
	_, rdb := newRedis(t)
	c := newClock()

	err := tokens.NewRedisSessions(rdb).WithClock(c.now).Save(context.Background(), "fp", tokens.Session{
		ID: "s", UserID: "u", ExpiresAt: c.now(),
	})
	require.Error(t, err)
}

func newJWTIssuer(t *testing.T, sessions tokens.SessionStore, c *clock) *tokens.JWTIssuer {
	t.Helper()

	_, priv, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)

	signer, err := jwtx.NewSignerEdDSA("", priv)
	require.NoError(t, err)

	keys := jwtx.NewKeySet()
	keys.AddSigner(signer)
	verifier := jwtx.NewVerifierEdDSA(keys, "accounts", 0).WithClock(c.now)

	return tokens.NewJWTIssuer(signer, verifier, "accounts", sessions, time.Hour).WithClock(c.now)
}

func TestJWTIssuer_Lifecycle(t *testing.T) {
	userID := idx.New().String()
	c := newClock()

	for name, sessions := range sessionBackends(t, c, userID) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			iss := newJWTIssuer(t, sessions, c)

			tok, err := iss.Issue(ctx, userID)
			require.NoError(t, err)
			require.Len(t, strings.Split(tok.Value, "."), 3)
			require.Equal(t, c.now().Add(time.Hour), tok.ExpiresAt)

			got, err := iss.Resolve(ctx, tok.Value)
			require.NoError(t, err)
			require.Equal(t, userID, got)

			require.NoError(t, iss.Revoke(ctx, tok.Value))
			_, err = iss.Resolve(ctx, tok.Value)
			require.ErrorIs(t, err, tokens.ErrInvalidToken, "a revoked JWT must not resolve even with a valid signature")
		})
	}
}

func TestJWTIssuer_RejectsTampered(t *testing.T) {
	userID := idx.New().String()
	c := newClock()
	_, rdb := newRedis(t)
	iss := newJWTIssuer(t, tokens.NewRedisSessions(rdb).WithClock(c.now), c)

	tok, err := iss.Issue(context.Background(), userID)
	require.NoError(t, err)

	other := newJWTIssuer(t, tokens.NewRedisSessions(rdb).WithClock(c.now), c)
	_, err = other.Resolve(context.Background(), tok.Value)
	require.ErrorIs(t, err, tokens.ErrInvalidToken, "signed by a different key")

	_, err = iss.Resolve(context.Background(), tok.Value+"x")
	require.ErrorIs(t, err, tokens.ErrInvalidToken)
}

func TestJWTIssuer_Expired(t *testing.T) {
	userID := idx.New().String()
	c := newClock()
	_, rdb := newRedis(t)
	iss := newJWTIssuer(t, tokens.NewRedisSessions(rdb).WithClock(c.now), c)

	tok, err := iss.Issue(context.Background(), userID)
	require.NoError(t, err)

	c.advance(2 * time.Hour)
	_, err = iss.Resolve(context.Background(), tok.Value)
	require.ErrorIs(t, err, tokens.ErrInvalidToken)
}
