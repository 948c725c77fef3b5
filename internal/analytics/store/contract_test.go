package store_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testStore runs the behaviour every analytics.Store must share.
func testStore(t *testing.T, newStore func(t *testing.T) analytics.Store) {
	t.Helper()

	ctx := context.Background()
	t0 := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("unknown code is not found", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetStats(ctx, "never")

		assert.ErrorIs(t, err, shortener.ErrNotFound)
	})

	t.Run("increments add up across batches", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.ApplyBatch(ctx, []analytics.Increment{
			{Code: "a", Count: 3, LastVisitedAt: t0},
			{Code: "b", Count: 1, LastVisitedAt: t0},
		}))
		require.NoError(t, s.ApplyBatch(ctx, []analytics.Increment{
			{Code: "a", Count: 2, LastVisitedAt: t0.Add(time.Minute)},
		}))

		a, err := s.GetStats(ctx, "a")
		require.NoError(t, err)
		assert.Equal(t, uint64(5), a.VisitCount)
		require.NotNil(t, a.LastVisitedAt)
		assert.True(t, t0.Add(time.Minute).Equal(*a.LastVisitedAt))

		b, err := s.GetStats(ctx, "b")
		require.NoError(t, err)
		assert.Equal(t, uint64(1), b.VisitCount)
	})

	t.Run("last visit never moves backwards", func(t *testing.T) {
		s := newStore(t)

		require.NoError(t, s.ApplyBatch(ctx, []analytics.Increment{{Code: "c", Count: 1, LastVisitedAt: t0}}))
		require.NoError(t, s.ApplyBatch(ctx, []analytics.Increment{{Code: "c", Count: 1, LastVisitedAt: t0.Add(-time.Hour)}}))

		c, err := s.GetStats(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, uint64(2), c.VisitCount)
		assert.True(t, t0.Equal(*c.LastVisitedAt))
	})

	t.Run("empty batch is a no-op", func(t *testing.T) {
		s := newStore(t)

		assert.NoError(t, s.ApplyBatch(ctx, nil))
	})

	t.Run("concurrent batches on one code do not lose updates", func(t *testing.T) {
		s := newStore(t)

		const writers, batches = 4, 25

		var wg sync.WaitGroup

		for range writers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for range batches {
					assert.NoError(t, s.ApplyBatch(ctx, []analytics.Increment{{Code: "hot", Count: 2, LastVisitedAt: t0}}))
				}
			}()
		}

		wg.Wait()

		hot, err := s.GetStats(ctx, "hot")
		require.NoError(t, err)
		assert.Equal(t, uint64(writers*batches*2), hot.VisitCount)
	})
}
