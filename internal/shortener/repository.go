package shortener

import (
	"context"
	"time"
)

// Repository is the authoritative url store.
type Repository interface {
	Save(ctx context.Context, shortURL *ShortURL) error
	GetByCode(ctx context.Context, code Code) (*ShortURL, error)
}

// Cache holds code to destination mappings in front of a Repository.
// Get returns ErrCacheMiss when nothing is cached and ErrNotFound for a negative entry.
type Cache interface {
	Get(ctx context.Context, code Code) (string, error)
	Set(ctx context.Context, code Code, destination string, ttl time.Duration) error
	SetMissing(ctx context.Context, code Code, ttl time.Duration) error
	Invalidate(ctx context.Context, code Code) error
}

// VisitSink accepts visits for asynchronous counting. Enqueue must not block.
type VisitSink interface {
	Enqueue(ctx context.Context, visit Visit)
}

// StatsReader reads aggregated counters. GetStats returns ErrNotFound when no visit was recorded.
type StatsReader interface {
	GetStats(ctx context.Context, code Code) (*Stats, error)
}
