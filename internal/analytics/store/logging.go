package store

import (
	"context"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

// Logging decorates an analytics.Store and logs every applied batch.
type Logging struct {
	next   analytics.Store
	logger *zap.Logger
}

// NewLogging wraps next.
func NewLogging(next analytics.Store, logger *zap.Logger) *Logging {
	return &Logging{next: next, logger: logger}
}

func (l *Logging) ApplyBatch(ctx context.Context, increments []analytics.Increment) error {
	if err := l.next.ApplyBatch(ctx, increments); err != nil {
		return err
	}

	if ce := l.logger.Check(zap.DebugLevel, "stats batch applied"); ce != nil {
		var visits uint64
		for _, inc := range increments {
			visits += inc.Count
		}

		ce.Write(
			zap.Int("codes", len(increments)),
			zap.Uint64("visits", visits),
		)
	}

	return nil
}

func (l *Logging) GetStats(ctx context.Context, code shortener.Code) (*shortener.Stats, error) {
	return l.next.GetStats(ctx, code)
}

var _ analytics.Store = (*Logging)(nil)
