package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore caches extracted document text so repeated analyses of the same
// tender skip the fetch/extract/OCR pipeline.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr string, ttl time.Duration) *RedisStore {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	return &RedisStore{client: rdb, ttl: ttl}
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func docTextKey(key string) string {
	return fmt.Sprintf("doctext:%s", key)
}

// CacheDocumentText stores extracted text under the tender's link with a TTL.
func (s *RedisStore) CacheDocumentText(ctx context.Context, key, text string) error {
	return s.client.Set(ctx, docTextKey(key), text, s.ttl).Err()
}

// CachedDocumentText returns previously extracted text, if still cached.
func (s *RedisStore) CachedDocumentText(ctx context.Context, key string) (string, bool, error) {
	val, err := s.client.Get(ctx, docTextKey(key)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}
