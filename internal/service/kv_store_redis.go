package service

import (
	"context"
	"fmt"
	"time"

	"go-session-auth-service/internal/domain"

	"github.com/redis/go-redis/v9"
)

type RedisKVStore struct {
	client redis.UniversalClient
	prefix string
}

func NewRedisKVStore(client redis.UniversalClient, prefix string) *RedisKVStore {
	if prefix == "" {
		prefix = "auth"
	}
	return &RedisKVStore{client: client, prefix: prefix}
}

func (s *RedisKVStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := s.client.Get(ctx, s.key(key)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("%w: redis get: %w", domain.ErrStoreUnavailable, err)
	}
	return val, true, nil
}

func (s *RedisKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(key), value, ttl).Err(); err != nil {
		return fmt.Errorf("%w: redis set: %w", domain.ErrStoreUnavailable, err)
	}
	return nil
}

func (s *RedisKVStore) Delete(ctx context.Context, key string) (bool, error) {
	n, err := s.client.Del(ctx, s.key(key)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: redis del: %w", domain.ErrStoreUnavailable, err)
	}
	return n > 0, nil
}

func (s *RedisKVStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, s.key(key))
	if ttl > 0 {
		pipe.Expire(ctx, s.key(key), ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: redis incr: %w", domain.ErrStoreUnavailable, err)
	}
	return incr.Val(), nil
}

func (s *RedisKVStore) key(key string) string {
	return s.prefix + ":" + key
}
