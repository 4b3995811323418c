package storage

import (
	"context"
	"errors"

	"localeditor/redis"
)

const redisKeySpace = "state"

// RedisStore keeps values in Redis without expiry.
type RedisStore struct {
	rs *redis.Service
}

func NewRedisStore(rs *redis.Service) *RedisStore {
	return &RedisStore{rs: rs}
}

func (s *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.rs.Get(ctx, redis.Key(redisKeySpace, key))
	if errors.Is(err, redis.ErrCacheMiss) {
		return nil, ErrNotFound
	}
	return data, err
}

func (s *RedisStore) Set(ctx context.Context, key string, value []byte) error {
	return s.rs.Set(ctx, redis.Key(redisKeySpace, key), value, 0)
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	return s.rs.Delete(ctx, redis.Key(redisKeySpace, key))
}

// Close leaves the shared Redis service open; main owns it.
func (s *RedisStore) Close() error { return nil }
