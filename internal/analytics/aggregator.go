package analytics

import (
	"cmp"
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

// ErrAggregatorClosed is returned by Add after Shutdown began.
var ErrAggregatorClosed = errors.New("aggregator closed")

// AggregatorConfig controls batching and flush retries.
type AggregatorConfig struct {
	// BatchSize flushes once this many visits are buffered.
	BatchSize int
	// FlushInterval flushes whatever is buffered this long after the previous flush.
	FlushInterval time.Duration
	// RetryBase is the first backoff delay of a failed flush; each retry doubles it.
	RetryBase time.Duration
	// RetryCap bounds a single backoff delay. Zero leaves it unbounded.
	RetryCap time.Duration
	// MaxRetries is the retry budget of one batch before it is declared lost.
	MaxRetries uint64
	// ShutdownTimeout bounds the final flush.
	ShutdownTimeout time.Duration
}

// Aggregator buffers visit events and commits them to a Store as per-code increments.
//
// Events are acknowledged upstream once buffered, so a crash loses the open batch;
// only a graceful Shutdown flushes it. Upstream redelivery can count a visit twice.
type Aggregator struct {
	store  Store
	cfg    AggregatorConfig
	logger *zap.Logger

	events   chan VisitEvent
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	ctx      context.Context
	cancel   context.CancelFunc

	committed   atomic.Uint64
	lost        atomic.Uint64
	failedFlush atomic.Uint64
}

// NewAggregator creates an aggregator writing to store.
func NewAggregator(store Store, cfg AggregatorConfig, logger *zap.Logger) *Aggregator {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 500
	}

	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = time.Second
	}

	if cfg.RetryBase <= 0 {
		cfg.RetryBase = 100 * time.Millisecond
	}

	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}

	return &Aggregator{
		store:  store,
		cfg:    cfg,
		logger: logger,
		events: make(chan VisitEvent, cfg.BatchSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

// Add hands one event to the aggregator. It blocks only while the intake is full.
func (a *Aggregator) Add(ctx context.Context, event *VisitEvent) error {
	select {
	case <-a.stop:
		return ErrAggregatorClosed
	default:
	}

	select {
	case a.events <- *event:
		return nil
	case <-a.stop:
		return ErrAggregatorClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Start runs the batching loop. Cancelling ctx does not abort it; Shutdown does.
func (a *Aggregator) Start(ctx context.Context) error {
	a.ctx, a.cancel = context.WithCancel(context.WithoutCancel(ctx))

	go a.run()

	return nil
}

func (a *Aggregator) run() {
	defer close(a.done)

	ticker := time.NewTicker(a.cfg.FlushInterval)
	defer ticker.Stop()

	batch := make([]VisitEvent, 0, a.cfg.BatchSize)

	for {
		select {
		case event := <-a.events:
			batch = append(batch, event)
			if len(batch) >= a.cfg.BatchSize {
				a.flush(batch)
				batch = batch[:0]

				ticker.Reset(a.cfg.FlushInterval)
			}
		case <-ticker.C:
			a.flush(batch)
			batch = batch[:0]
		case <-a.stop:
			for {
				select {
				case event := <-a.events:
					batch = append(batch, event)
				default:
					a.flush(batch)

					return
				}
			}
		}
	}
}

func (a *Aggregator) flush(batch []VisitEvent) {
	if len(batch) == 0 {
		return
	}

	increments := Collapse(batch)

	backoff := retry.NewExponential(a.cfg.RetryBase)
	if a.cfg.RetryCap > 0 {
		backoff = retry.WithCappedDuration(a.cfg.RetryCap, backoff)
	}

	backoff = retry.WithMaxRetries(a.cfg.MaxRetries, backoff)

	attempts := 0

	err := retry.Do(a.ctx, backoff, func(ctx context.Context) error {
		attempts++

		if err := a.store.ApplyBatch(ctx, increments); err != nil {
			a.logger.Warn("stats flush attempt failed",
				zap.Int("attempt", attempts),
				zap.Int("codes", len(increments)),
				zap.Error(err),
			)

			return retry.RetryableError(err)
		}

		return nil
	})
	if err != nil {
		a.failedFlush.Add(1)
		a.lost.Add(uint64(len(batch)))

		a.logger.Error("stats_flush_failed",
			zap.Int("visits_lost", len(batch)),
			zap.Int("codes", len(increments)),
			zap.Int("attempts", attempts),
			zap.Error(err),
		)

		return
	}

	a.committed.Add(uint64(len(batch)))

	a.logger.Debug("stats flushed",
		zap.Int("visits", len(batch)),
		zap.Int("codes", len(increments)),
	)
}

// Committed returns how many visits reached the store.
func (a *Aggregator) Committed() uint64 {
	return a.committed.Load()
}

// Lost returns how many visits were dropped after exhausting retries.
func (a *Aggregator) Lost() uint64 {
	return a.lost.Load()
}

// FailedFlushes returns how many batches were given up on.
func (a *Aggregator) FailedFlushes() uint64 {
	return a.failedFlush.Load()
}

// Shutdown stops intake and flushes what is buffered. If the flush outlives
// ShutdownTimeout its retries are abandoned.
func (a *Aggregator) Shutdown() error {
	a.stopOnce.Do(func() { close(a.stop) })

	if a.cancel == nil {
		return nil
	}

	defer a.cancel()

	timer := time.NewTimer(a.cfg.ShutdownTimeout)
	defer timer.Stop()

	select {
	case <-a.done:
	case <-timer.C:
		a.logger.Warn("final stats flush exceeded shutdown budget, abandoning retries")
		a.cancel()
		<-a.done
	}

	a.logger.Info("stats aggregator stopped",
		zap.Uint64("visits_committed", a.committed.Load()),
		zap.Uint64("visits_lost", a.lost.Load()),
	)

	return nil
}

// Collapse groups visits by code, counting them and keeping the latest visit time.
// The result is sorted by code so concurrent writers touch rows in the same order.
func Collapse(batch []VisitEvent) []Increment {
	byCode := make(map[shortener.Code]*Increment, len(batch))

	for _, e := range batch {
		code := shortener.Code(e.Code)

		inc, ok := byCode[code]
		if !ok {
			inc = &Increment{Code: code}
			byCode[code] = inc
		}

		inc.Count++

		if e.VisitedAt.After(inc.LastVisitedAt) {
			inc.LastVisitedAt = e.VisitedAt
		}
	}

	out := make([]Increment, 0, len(byCode))
	for _, inc := range byCode {
		out = append(out, *inc)
	}

	slices.SortFunc(out, func(x, y Increment) int {
		return cmp.Compare(x.Code, y.Code)
	})

	return out
}
