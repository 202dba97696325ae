package quota

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is the shared Store variant backed by a key-value service with
// atomic INCR-with-EXPIRE semantics, usable across processes.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore constructs a RedisStore.
func NewRedisStore(client *redis.Client, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Increment atomically bumps the counter for key.
func (s *RedisStore) Increment(ctx context.Context, key string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, errors.New("quota redis: not initialized")
	}
	return s.client.Incr(ctx, s.buildKey(key)).Result()
}

// Peek returns the current count. Missing keys read as 0.
func (s *RedisStore) Peek(ctx context.Context, key string) (int64, error) {
	if s == nil || s.client == nil {
		return 0, errors.New("quota redis: not initialized")
	}
	count, errGet := s.client.Get(ctx, s.buildKey(key)).Int64()
	if errGet == redis.Nil {
		return 0, nil
	}
	if errGet != nil {
		return 0, errGet
	}
	return count, nil
}

// ExpireAfter arms the server-side TTL for key.
func (s *RedisStore) ExpireAfter(ctx context.Context, key string, ttl time.Duration) error {
	if s == nil || s.client == nil {
		return errors.New("quota redis: not initialized")
	}
	return s.client.Expire(ctx, s.buildKey(key), ttl).Err()
}

// Close releases the underlying client.
func (s *RedisStore) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *RedisStore) buildKey(key string) string {
	if s.prefix == "" {
		return key
	}
	return s.prefix + ":" + key
}
