package tokens

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	sessionKeyPrefix     = "session:"
	userSessionKeyPrefix = "user_sessions:"
)

// RedisSessions keeps sessions in Redis with a TTL equal to the remaining
// token lifetime. A per-user set indexes the fingerprints so a user's
// sessions can be dropped together.
type RedisSessions struct {
	rdb *redis.Client
	now func() time.Time
}

func NewRedisSessions(rdb *redis.Client) *RedisSessions {
	return &RedisSessions{rdb: rdb, now: time.Now}
}

// WithClock swaps the time source used for TTLs and expiry checks.
func (r *RedisSessions) WithClock(now func() time.Time) *RedisSessions {
	r.now = now
	return r
}

func (r *RedisSessions) Save(ctx context.Context, fingerprint string, s Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return fmt.Errorf("save session: already expired")
	}

	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}

	userKey := userSessionKeyPrefix + s.UserID
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKeyPrefix+fingerprint, data, ttl)
		pipe.SAdd(ctx, userKey, fingerprint)
		// Every session shares one lifetime, so the newest outlives the rest.
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *RedisSessions) Lookup(ctx context.Context, fingerprint string) (Session, error) {
	data, err := r.rdb.Get(ctx, sessionKeyPrefix+fingerprint).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrInvalidToken
	}
	if err != nil {
		return Session{}, fmt.Errorf("lookup session: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return Session{}, fmt.Errorf("lookup session: %w", err)
	}
	if !r.now().Before(s.ExpiresAt) {
		return Session{}, ErrInvalidToken
	}
	return s, nil
}

func (r *RedisSessions) Delete(ctx context.Context, fingerprint string) error {
	key := sessionKeyPrefix + fingerprint

	s, err := r.Lookup(ctx, fingerprint)
	switch {
	case errors.Is(err, ErrInvalidToken):
		return r.rdb.Del(ctx, key).Err()
	case err != nil:
		return err
	}

	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, userSessionKeyPrefix+s.UserID, fingerprint)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *RedisSessions) DeleteUser(ctx context.Context, userID string) error {
	userKey := userSessionKeyPrefix + userID

	fps, err := r.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}

	keys := make([]string, 0, len(fps)+1)
	for _, fp := range fps {
		keys = append(keys, sessionKeyPrefix+fp)
	}
	keys = append(keys, userKey)

	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("delete user sessions: %w", err)
	}
	return nil
}

func (r *RedisSessions) Ping(ctx context.Context) error {
	return r.rdb.Ping(ctx).Err()
}
