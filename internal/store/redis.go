package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
)

// saveIfAbsent writes the url hash only when the key is free.
var saveIfAbsent = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
	return 0
end
redis.call('HSET', KEYS[1], 'original_url', ARGV[1], 'created_at', ARGV[2])
return 1
`)

// RedisStore is a Redis implementation of shortener.Repository.
// Entries never expire; use it when Redis runs with persistence.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a new Redis-backed URL store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{
		client: client,
		prefix: "shortlink:url:",
	}
}

func (r *RedisStore) Save(ctx context.Context, shortURL *shortener.ShortURL) error {
	created, err := saveIfAbsent.Run(ctx, r.client,
		[]string{r.prefix + string(shortURL.Code)},
		shortURL.OriginalURL,
		shortURL.CreatedAt.UnixNano(),
	).Int()
	if err != nil {
		return err
	}

	if created == 0 {
		return shortener.ErrConflict
	}

	return nil
}

func (r *RedisStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	fields, err := r.client.HGetAll(ctx, r.prefix+string(code)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	if len(fields) == 0 {
		return nil, shortener.ErrNotFound
	}

	url := &shortener.ShortURL{
		Code:        code,
		OriginalURL: fields["original_url"],
	}

	if nanos, err := strconv.ParseInt(fields["created_at"], 10, 64); err == nil {
		url.CreatedAt = time.Unix(0, nanos).UTC()
	}

	return url, nil
}

var _ shortener.Repository = (*RedisStore)(nil)
