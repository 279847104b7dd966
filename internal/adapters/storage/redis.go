package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	redis "github.com/go-redis/redis/v8"

	"github.com/selivandex/crypto-digest/pkg/models"
)

const redisKeyPrefix = "digest:day:"

// RedisKV is the slice of the redis client the store needs
type RedisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Health(ctx context.Context) error
}

// RedisStore shares digests between instances; entries expire after ttl
type RedisStore struct {
	kv  RedisKV
	ttl time.Duration
}

// NewRedisStore creates new redis store
func NewRedisStore(kv RedisKV, ttl time.Duration) *RedisStore {
	return &RedisStore{kv: kv, ttl: ttl}
}

func (s *RedisStore) Name() string {
	return "redis"
}

// RedisKey returns the redis key a date key is stored under
func RedisKey(key string) string {
	return redisKeyPrefix + key
}

func (s *RedisStore) Get(ctx context.Context, key string) (models.Digest, error) {
	data, err := s.kv.Get(ctx, RedisKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to read digest from redis: %w", err)
	}

	var digest models.Digest
	if err := json.Unmarshal(data, &digest); err != nil {
		return nil, fmt.Errorf("failed to decode digest from redis: %w", err)
	}
	return digest, nil
}

func (s *RedisStore) Put(ctx context.Context, key string, digest models.Digest) error {
	data, err := json.Marshal(digest)
	if err != nil {
		return fmt.Errorf("failed to encode digest: %w", err)
	}

	if err := s.kv.Set(ctx, RedisKey(key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write digest to redis: %w", err)
	}
	return nil
}

func (s *RedisStore) Health(ctx context.Context) error {
	return s.kv.Health(ctx)
}
