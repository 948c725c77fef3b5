package store

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
)

// applyIncrement adds ARGV[1] visits and keeps the larger of the stored and given
// last-visit timestamps (unix millis) in one atomic step.
var applyIncrement = redis.NewScript(`
redis.call('HINCRBY', KEYS[1], 'visit_count', ARGV[1])
local last = tonumber(redis.call('HGET', KEYS[1], 'last_visited_at') or '0')
if tonumber(ARGV[2]) > last then
	redis.call('HSET', KEYS[1], 'last_visited_at', ARGV[2])
end
return 1
`)

// Redis keeps visit counters in one hash per code.
// A pipeline is not a transaction: a failed batch may be partially applied, and
// retrying it over-counts like any other duplicate delivery.
type Redis struct {
	client redis.UniversalClient
	prefix string
}

// NewRedis creates a Redis-backed stats store.
func NewRedis(client redis.UniversalClient) *Redis {
	return &Redis{client: client, prefix: "shortlink:stats:"}
}

func (r *Redis) ApplyBatch(ctx context.Context, increments []analytics.Increment) error {
	if len(increments) == 0 {
		return nil
	}

	// make sure the script is cached so EVALSHA inside the pipeline cannot miss
	if err := applyIncrement.Load(ctx, r.client).Err(); err != nil {
		return err
	}

	_, err := r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, inc := range increments {
			applyIncrement.EvalSha(ctx, pipe,
				[]string{r.prefix + string(inc.Code)},
				inc.Count,
				inc.LastVisitedAt.UnixMilli(),
			)
		}

		return nil
	})

	return err
}

func (r *Redis) GetStats(ctx context.Context, code shortener.Code) (*shortener.Stats, error) {
	fields, err := r.client.HGetAll(ctx, r.prefix+string(code)).Result()
	if err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		return nil, shortener.ErrNotFound
	}

	visits, err := strconv.ParseUint(fields["visit_count"], 10, 64)
	if err != nil {
		return nil, err
	}

	stats := &shortener.Stats{Code: code, VisitCount: visits}

	if millis, err := strconv.ParseInt(fields["last_visited_at"], 10, 64); err == nil && millis > 0 {
		last := time.UnixMilli(millis).UTC()
		stats.LastVisitedAt = &last
	}

	return stats, nil
}

var _ analytics.Store = (*Redis)(nil)
