//go:build integration

package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
	"github.com/serroba/shortlink/internal/store"
	"github.com/serroba/shortlink/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStoreIntegration(t *testing.T) {
	ctx := context.Background()
	pool := testutil.Postgres(t)
	s := store.NewPostgresStore(pool)

	t.Run("save and get by code", func(t *testing.T) {
		shortURL := &shortener.ShortURL{
			Code:        "pg1",
			OriginalURL: testURL,
			CreatedAt:   time.Now().UTC().Truncate(time.Microsecond),
		}

		require.NoError(t, s.Save(ctx, shortURL))

		got, err := s.GetByCode(ctx, "pg1")
		require.NoError(t, err)
		assert.Equal(t, shortURL.OriginalURL, got.OriginalURL)
		assert.True(t, shortURL.CreatedAt.Equal(got.CreatedAt))
	})

	t.Run("duplicate code conflicts", func(t *testing.T) {
		shortURL := &shortener.ShortURL{Code: "pg2", OriginalURL: testURL, CreatedAt: time.Now()}
		require.NoError(t, s.Save(ctx, shortURL))

		err := s.Save(ctx, shortURL)

		assert.ErrorIs(t, err, shortener.ErrConflict)
	})

	t.Run("unknown code is not found", func(t *testing.T) {
		_, err := s.GetByCode(ctx, "missing")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})
}

func TestPostgresCounterIntegration(t *testing.T) {
	pool := testutil.Postgres(t)

	// two counters over one sequence behave like two server processes
	counters := []*store.PostgresCounter{store.NewPostgresCounter(pool), store.NewPostgresCounter(pool)}

	var (
		mu   sync.Mutex
		seen = map[uint64]bool{}
		wg   sync.WaitGroup
	)

	for _, c := range counters {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for range 100 {
				n, err := c.Next(context.Background())
				if !assert.NoError(t, err) {
					return
				}

				mu.Lock()
				seen[n] = true
				mu.Unlock()
			}
		}()
	}

	wg.Wait()

	assert.Len(t, seen, 200)
}
