package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
)

const upsertStats = `
	INSERT INTO url_stats (code, visit_count, last_visited_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (code) DO UPDATE SET
		visit_count     = url_stats.visit_count + EXCLUDED.visit_count,
		last_visited_at = GREATEST(url_stats.last_visited_at, EXCLUDED.last_visited_at)
`

// Postgres keeps visit counters in the url_stats table, apart from the urls table.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres creates a PostgreSQL-backed stats store.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool}
}

// ApplyBatch upserts every increment in one transaction: either the whole batch
// lands or none of it does.
func (p *Postgres) ApplyBatch(ctx context.Context, increments []analytics.Increment) error {
	if len(increments) == 0 {
		return nil
	}

	return pgx.BeginFunc(ctx, p.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}

		for _, inc := range increments {
			batch.Queue(upsertStats, string(inc.Code), int64(inc.Count), inc.LastVisitedAt)
		}

		results := tx.SendBatch(ctx, batch)

		for _, inc := range increments {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()

				return fmt.Errorf("upsert stats for %s: %w", inc.Code, err)
			}
		}

		return results.Close()
	})
}

func (p *Postgres) GetStats(ctx context.Context, code shortener.Code) (*shortener.Stats, error) {
	query := `
		SELECT visit_count, last_visited_at
		FROM url_stats
		WHERE code = $1
	`

	var (
		visits int64
		last   *time.Time
	)

	err := p.pool.QueryRow(ctx, query, string(code)).Scan(&visits, &last)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return &shortener.Stats{Code: code, VisitCount: uint64(visits), LastVisitedAt: last}, nil
}

var _ analytics.Store = (*Postgres)(nil)
