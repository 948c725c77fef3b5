package analytics

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/serroba/shortlink/internal/messaging"
	"github.com/serroba/shortlink/internal/shortener"
	"go.uber.org/zap"
)

var (
	errBufferFull     = errors.New("visit buffer full")
	errRecorderClosed = errors.New("visit recorder stopped")
)

// RecorderConfig bounds how much the recorder may hold and wait.
type RecorderConfig struct {
	BufferSize      int
	PublishTimeout  time.Duration
	ShutdownTimeout time.Duration
}

// Recorder is the producer side of the stats queue. Enqueue never blocks: visits go
// into a bounded buffer and a single goroutine publishes them. Visits that do not fit
// or fail to publish are dropped and counted as stats_dropped.
type Recorder struct {
	publish messaging.Publish[VisitEvent]
	visits  chan shortener.Visit
	cfg     RecorderConfig
	logger  *zap.Logger
	dropped atomic.Uint64

	// closed is written under the write lock so no send can land after the final drain.
	mu     sync.RWMutex
	closed bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewRecorder creates a recorder publishing through publish.
func NewRecorder(publish messaging.Publish[VisitEvent], cfg RecorderConfig, logger *zap.Logger) *Recorder {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1024
	}

	return &Recorder{
		publish: publish,
		visits:  make(chan shortener.Visit, cfg.BufferSize),
		cfg:     cfg,
		logger:  logger,
		done:    make(chan struct{}),
	}
}

// Enqueue offers a visit for publishing. Visits offered after Shutdown are dropped.
func (r *Recorder) Enqueue(_ context.Context, visit shortener.Visit) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.drop(visit.Code, errRecorderClosed)

		return
	}

	select {
	case r.visits <- visit:
	default:
		r.drop(visit.Code, errBufferFull)
	}
}

// Dropped returns how many visits were lost so far.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}

// Start runs the publishing loop until Shutdown.
func (r *Recorder) Start(ctx context.Context) error {
	ctx, r.cancel = context.WithCancel(ctx)

	go r.run(ctx)

	return nil
}

func (r *Recorder) run(ctx context.Context) {
	defer close(r.done)

	for {
		select {
		case <-ctx.Done():
			r.drain()

			return
		case visit := <-r.visits:
			r.publishVisit(visit)
		}
	}
}

// drain publishes what is still buffered until the shutdown budget runs out.
func (r *Recorder) drain() {
	deadline := time.Now().Add(r.cfg.ShutdownTimeout)

	for {
		select {
		case visit := <-r.visits:
			if time.Now().After(deadline) {
				r.drop(visit.Code, context.DeadlineExceeded)

				continue
			}

			r.publishVisit(visit)
		default:
			return
		}
	}
}

func (r *Recorder) publishVisit(visit shortener.Visit) {
	ctx := context.Background()

	if r.cfg.PublishTimeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, r.cfg.PublishTimeout)
		defer cancel()
	}

	if err := r.publish(ctx, NewVisitEvent(visit)); err != nil {
		r.drop(visit.Code, err)
	}
}

func (r *Recorder) drop(code shortener.Code, err error) {
	n := r.dropped.Add(1)

	fields := []zap.Field{
		zap.String("code", string(code)),
		zap.Uint64("stats_dropped", n),
		zap.Error(err),
	}

	if n == 1 || n%1000 == 0 {
		r.logger.Warn("stats_dropped", fields...)

		return
	}

	r.logger.Debug("stats_dropped", fields...)
}

// Shutdown stops the loop after a best-effort drain of the buffer.
func (r *Recorder) Shutdown() error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	if r.cancel == nil {
		return nil
	}

	r.cancel()
	<-r.done

	r.logger.Info("visit recorder stopped", zap.Uint64("stats_dropped", r.dropped.Load()))

	return nil
}

var _ shortener.VisitSink = (*Recorder)(nil)
