package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the session in Redis under <prefix>:<name>, relying on key
// TTLs for expiry. Useful when several processes share one login.
type RedisStore struct {
	rdb  redis.UniversalClient
	opts options
}

// NewRedisStore wraps a connected Redis client.
func NewRedisStore(rdb redis.UniversalClient, opts ...Option) *RedisStore {
	return &RedisStore{rdb: rdb, opts: newOptions(opts)}
}

func (s *RedisStore) key(name string) string { return s.opts.prefix + ":" + name }

func (s *RedisStore) Get(ctx context.Context, name string) (string, bool, error) {
	if _, err := TTL(name); err != nil {
		return "", false, err
	}
	v, err := s.rdb.Get(ctx, s.key(name)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load %s: %w", name, err)
	}
	return v, true, nil
}

func (s *RedisStore) Set(ctx context.Context, pair TokenPair) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.key(AccessTokenName), pair.AccessToken, AccessTokenTTL)
		pipe.Set(ctx, s.key(RefreshTokenName), pair.RefreshToken, RefreshTokenTTL)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to save token pair: %w", err)
	}
	return nil
}

func (s *RedisStore) SetUserID(ctx context.Context, uid string) error {
	if err := s.rdb.Set(ctx, s.key(UserIDName), uid, UserIDTTL).Err(); err != nil {
		return fmt.Errorf("failed to save user id: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	keys := make([]string, len(Names))
	for i, name := range Names {
		keys[i] = s.key(name)
	}
	if err := s.rdb.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}
