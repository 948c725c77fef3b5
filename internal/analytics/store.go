package analytics

import (
	"context"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
)

// Increment is the collapsed effect of a batch of visits on one code.
type Increment struct {
	Code          shortener.Code
	Count         uint64
	LastVisitedAt time.Time
}

// Store persists visit counters. ApplyBatch must add each Count atomically and keep
// the latest LastVisitedAt; it never reads then writes.
type Store interface {
	ApplyBatch(ctx context.Context, increments []Increment) error
	GetStats(ctx context.Context, code shortener.Code) (*shortener.Stats, error)
}
