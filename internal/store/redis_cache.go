package store

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
)

const (
	fieldDestination = "destination"
	fieldMissing     = "missing"
)

// RedisCache is a Redis implementation of shortener.Cache.
type RedisCache struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisCache creates a new Redis-backed redirect cache.
func NewRedisCache(client redis.UniversalClient) *RedisCache {
	return &RedisCache{
		client: client,
		prefix: "shortlink:cache:",
	}
}

// Get returns the cached destination for code.
func (r *RedisCache) Get(ctx context.Context, code shortener.Code) (string, error) {
	result, err := r.client.HGetAll(ctx, r.key(code)).Result()
	if err != nil {
		return "", err
	}

	if len(result) == 0 {
		return "", shortener.ErrCacheMiss
	}

	if _, ok := result[fieldMissing]; ok {
		return "", shortener.ErrNotFound
	}

	destination, ok := result[fieldDestination]
	if !ok {
		return "", shortener.ErrCacheMiss
	}

	return destination, nil
}

// Set caches destination for ttl. A non-positive ttl keeps the entry until evicted.
func (r *RedisCache) Set(ctx context.Context, code shortener.Code, destination string, ttl time.Duration) error {
	return r.write(ctx, code, map[string]any{fieldDestination: destination}, ttl)
}

// SetMissing caches the absence of code for ttl.
func (r *RedisCache) SetMissing(ctx context.Context, code shortener.Code, ttl time.Duration) error {
	return r.write(ctx, code, map[string]any{fieldMissing: 1}, ttl)
}

// Invalidate drops any entry for code.
func (r *RedisCache) Invalidate(ctx context.Context, code shortener.Code) error {
	return r.client.Del(ctx, r.key(code)).Err()
}

func (r *RedisCache) write(ctx context.Context, code shortener.Code, fields map[string]any, ttl time.Duration) error {
	key := r.key(code)

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fields)

		if ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}

		return nil
	})

	return err
}

func (r *RedisCache) key(code shortener.Code) string {
	return r.prefix + string(code)
}

var _ shortener.Cache = (*RedisCache)(nil)
