package store

import (
	"context"
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
)

// MemoryCounter is a process-local sequence starting at 1.
type MemoryCounter struct {
	n atomic.Uint64
}

// NewMemoryCounter creates a counter whose first value is start+1.
func NewMemoryCounter(start uint64) *MemoryCounter {
	c := &MemoryCounter{}
	c.n.Store(start)

	return c
}

func (c *MemoryCounter) Next(_ context.Context) (uint64, error) {
	return c.n.Add(1), nil
}

// RedisCounter uses INCR on a single key, atomic across every process sharing the server.
type RedisCounter struct {
	client redis.UniversalClient
	key    string
}

// NewRedisCounter creates a Redis-backed counter.
func NewRedisCounter(client redis.UniversalClient) *RedisCounter {
	return &RedisCounter{
		client: client,
		key:    "shortlink:counter",
	}
}

func (c *RedisCounter) Next(ctx context.Context) (uint64, error) {
	n, err := c.client.Incr(ctx, c.key).Result()
	if err != nil {
		return 0, err
	}

	return uint64(n), nil
}

// PostgresCounter draws values from the short_code_seq sequence.
type PostgresCounter struct {
	pool *pgxpool.Pool
}

// NewPostgresCounter creates a sequence-backed counter.
func NewPostgresCounter(pool *pgxpool.Pool) *PostgresCounter {
	return &PostgresCounter{pool: pool}
}

func (c *PostgresCounter) Next(ctx context.Context) (uint64, error) {
	var n int64
	if err := c.pool.QueryRow(ctx, `SELECT nextval('short_code_seq')`).Scan(&n); err != nil {
		return 0, err
	}

	return uint64(n), nil
}

var (
	_ shortener.Counter = (*MemoryCounter)(nil)
	_ shortener.Counter = (*RedisCounter)(nil)
	_ shortener.Counter = (*PostgresCounter)(nil)
)
