package shortener

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Config tunes the resolver's cache and store behaviour.
type Config struct {
	// CacheTTL is how long a resolved destination stays cached.
	CacheTTL time.Duration
	// NegativeTTL caches unknown codes for a short while. Zero disables negative caching.
	NegativeTTL time.Duration
	// StoreTimeout bounds every url store call. Zero means the caller's deadline only.
	StoreTimeout time.Duration
	// SeedCache writes new urls into the cache at creation time.
	SeedCache bool
}

// Service creates short urls, resolves them through the cache and reports their stats.
type Service struct {
	allocator Allocator
	store     Repository
	cache     Cache
	visits    VisitSink
	stats     StatsReader
	cfg       Config
	logger    *zap.Logger
	now       func() time.Time
}

// NewService wires the redirect core.
func NewService(
	allocator Allocator,
	store Repository,
	cache Cache,
	visits VisitSink,
	stats StatsReader,
	cfg Config,
	logger *zap.Logger,
) *Service {
	return &Service{
		allocator: allocator,
		store:     store,
		cache:     cache,
		visits:    visits,
		stats:     stats,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
	}
}

// Create allocates a code for destination and stores the mapping.
// Destination must already be validated.
func (s *Service) Create(ctx context.Context, destination string) (*ShortURL, error) {
	code, err := s.allocator.Allocate(ctx)
	if err != nil {
		return nil, err
	}

	shortURL := &ShortURL{
		Code:        code,
		OriginalURL: destination,
		CreatedAt:   s.now().UTC(),
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	if err = s.store.Save(storeCtx, shortURL); err != nil {
		if errors.Is(err, ErrConflict) {
			// the counter is behind the store, e.g. a volatile counter after a restart
			s.logger.Error("allocated code already stored", zap.String("code", string(code)))

			return nil, fmt.Errorf("%w: code %s: %w", ErrAllocatorUnavailable, code, err)
		}

		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	switch {
	case s.cfg.SeedCache:
		s.cacheDestination(ctx, code, destination)
	case s.cfg.NegativeTTL > 0:
		// the code may have been probed before it existed
		if err = s.cache.Invalidate(ctx, code); err != nil {
			s.logger.Warn("cache invalidate failed", zap.String("code", string(code)), zap.Error(err))
		}
	}

	return shortURL, nil
}

// Resolve returns the destination for code and records a visit.
// Visit recording never delays or fails the resolution.
func (s *Service) Resolve(ctx context.Context, code Code, requester Requester) (string, error) {
	destination, err := s.lookup(ctx, code)
	if err != nil {
		return "", err
	}

	s.visits.Enqueue(ctx, Visit{
		Code:       code,
		ObservedAt: s.now().UTC(),
		Requester:  requester,
	})

	return destination, nil
}

// Stats returns the visit counters of code. A known code without visits has zero stats.
func (s *Service) Stats(ctx context.Context, code Code) (*Stats, error) {
	if _, err := s.lookup(ctx, code); err != nil {
		return nil, err
	}

	stats, err := s.stats.GetStats(ctx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return &Stats{Code: code}, nil
		}

		return nil, fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	return stats, nil
}

func (s *Service) lookup(ctx context.Context, code Code) (string, error) {
	destination, err := s.cache.Get(ctx, code)

	switch {
	case err == nil:
		return destination, nil
	case errors.Is(err, ErrNotFound):
		return "", ErrNotFound
	case !errors.Is(err, ErrCacheMiss):
		s.logger.Warn("cache read failed, falling back to store",
			zap.String("code", string(code)),
			zap.Error(err),
		)
	}

	storeCtx, cancel := s.storeContext(ctx)
	defer cancel()

	shortURL, err := s.store.GetByCode(storeCtx, code)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			s.cacheMissing(ctx, code)

			return "", ErrNotFound
		}

		return "", fmt.Errorf("%w: %w", ErrServiceUnavailable, err)
	}

	s.cacheDestination(ctx, code, shortURL.OriginalURL)

	return shortURL.OriginalURL, nil
}

func (s *Service) storeContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.cfg.StoreTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, s.cfg.StoreTimeout)
}

func (s *Service) cacheDestination(ctx context.Context, code Code, destination string) {
	if err := s.cache.Set(ctx, code, destination, s.cfg.CacheTTL); err != nil {
		s.logger.Warn("cache write failed", zap.String("code", string(code)), zap.Error(err))
	}
}

func (s *Service) cacheMissing(ctx context.Context, code Code) {
	if s.cfg.NegativeTTL <= 0 {
		return
	}

	if err := s.cache.SetMissing(ctx, code, s.cfg.NegativeTTL); err != nil {
		s.logger.Warn("negative cache write failed", zap.String("code", string(code)), zap.Error(err))
	}
}
