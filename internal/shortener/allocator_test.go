package shortener_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/serroba/shortlink/internal/shortener"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCounter struct {
	n   atomic.Uint64
	err error
}

func (c *stubCounter) Next(_ context.Context) (uint64, error) {
	if c.err != nil {
		return 0, c.err
	}

	return c.n.Add(1), nil
}

func TestCounterAllocator_Allocate(t *testing.T) {
	t.Run("first allocation is 1", func(t *testing.T) {
		alloc := shortener.NewCounterAllocator(&stubCounter{})

		code, err := alloc.Allocate(context.Background())

		require.NoError(t, err)
		assert.Equal(t, shortener.Code("1"), code)
	})

	t.Run("codes are distinct under concurrency", func(t *testing.T) {
		alloc := shortener.NewCounterAllocator(&stubCounter{}, shortener.WithSecret(0x5bd1e995))

		const workers, perWorker = 8, 500

		var (
			mu   sync.Mutex
			seen = make(map[shortener.Code]struct{}, workers*perWorker)
			wg   sync.WaitGroup
		)

		for range workers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				for range perWorker {
					code, err := alloc.Allocate(context.Background())
					if !assert.NoError(t, err) {
						return
					}

					mu.Lock()
					seen[code] = struct{}{}
					mu.Unlock()
				}
			}()
		}

		wg.Wait()

		assert.Len(t, seen, workers*perWorker)
	})

	t.Run("secret permutes but stays decodable", func(t *testing.T) {
		const secret = 0xdeadbeef

		alloc := shortener.NewCounterAllocator(&stubCounter{}, shortener.WithSecret(secret))

		code, err := alloc.Allocate(context.Background())
		require.NoError(t, err)

		n, err := shortener.Decode(string(code))
		require.NoError(t, err)
		assert.Equal(t, uint64(1), n^secret)
	})

	t.Run("fails once the ceiling is passed", func(t *testing.T) {
		alloc := shortener.NewCounterAllocator(&stubCounter{}, shortener.WithMaxCounter(2))

		_, err := alloc.Allocate(context.Background())
		require.NoError(t, err)
		_, err = alloc.Allocate(context.Background())
		require.NoError(t, err)

		_, err = alloc.Allocate(context.Background())
		assert.ErrorIs(t, err, shortener.ErrAllocationExhausted)
	})

	t.Run("wraps counter failures", func(t *testing.T) {
		backendErr := errors.New("connection refused")
		alloc := shortener.NewCounterAllocator(&stubCounter{err: backendErr})

		_, err := alloc.Allocate(context.Background())

		assert.ErrorIs(t, err, shortener.ErrAllocatorUnavailable)
		assert.ErrorIs(t, err, backendErr)
	})

	t.Run("skips reserved codes", func(t *testing.T) {
		docs, err := shortener.Decode("docs")
		require.NoError(t, err)

		counter := &stubCounter{}
		counter.n.Store(docs - 1)

		alloc := shortener.NewCounterAllocator(counter, shortener.WithReserved("docs", "health"))

		code, err := alloc.Allocate(context.Background())

		require.NoError(t, err)
		assert.Equal(t, shortener.Code(shortener.Encode(docs+1)), code)
	})

	t.Run("reserved skip still honours the ceiling", func(t *testing.T) {
		alloc := shortener.NewCounterAllocator(&stubCounter{},
			shortener.WithReserved("1"),
			shortener.WithMaxCounter(1),
		)

		_, err := alloc.Allocate(context.Background())

		assert.ErrorIs(t, err, shortener.ErrAllocationExhausted)
	})
}
