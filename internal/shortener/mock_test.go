package shortener_test

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/shortlink/internal/shortener"
)

// mockStore is a map-backed Repository that counts reads and can fail on demand.
type mockStore struct {
	mu      sync.Mutex
	urls    map[shortener.Code]*shortener.ShortURL
	reads   int
	getErr  error
	saveErr error
	delay   time.Duration
}

func newMockStore() *mockStore {
	return &mockStore{urls: make(map[shortener.Code]*shortener.ShortURL)}
}

func (m *mockStore) Save(_ context.Context, shortURL *shortener.ShortURL) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}

	m.urls[shortURL.Code] = shortURL

	return nil
}

func (m *mockStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.reads++

	if m.getErr != nil {
		return nil, m.getErr
	}

	u, ok := m.urls[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return u, nil
}

func (m *mockStore) readCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.reads
}

type cacheEntry struct {
	destination string
	missing     bool
	ttl         time.Duration
}

// mockCache records writes and can be flushed to simulate eviction.
type mockCache struct {
	mu      sync.Mutex
	entries map[shortener.Code]cacheEntry
	getErr  error
	setErr  error
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[shortener.Code]cacheEntry)}
}

func (m *mockCache) Get(_ context.Context, code shortener.Code) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.getErr != nil {
		return "", m.getErr
	}

	e, ok := m.entries[code]
	if !ok {
		return "", shortener.ErrCacheMiss
	}

	if e.missing {
		return "", shortener.ErrNotFound
	}

	return e.destination, nil
}

func (m *mockCache) Set(_ context.Context, code shortener.Code, destination string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.setErr != nil {
		return m.setErr
	}

	m.entries[code] = cacheEntry{destination: destination, ttl: ttl}

	return nil
}

func (m *mockCache) SetMissing(_ context.Context, code shortener.Code, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[code] = cacheEntry{missing: true, ttl: ttl}

	return nil
}

func (m *mockCache) Invalidate(_ context.Context, code shortener.Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.entries, code)

	return nil
}

func (m *mockCache) entry(code shortener.Code) (cacheEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[code]

	return e, ok
}

func (m *mockCache) evictAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries = make(map[shortener.Code]cacheEntry)
}

// mockSink collects visits in memory.
type mockSink struct {
	mu     sync.Mutex
	visits []shortener.Visit
}

func (m *mockSink) Enqueue(_ context.Context, visit shortener.Visit) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.visits = append(m.visits, visit)
}

func (m *mockSink) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return len(m.visits)
}

// mockStats returns canned stats.
type mockStats struct {
	stats map[shortener.Code]*shortener.Stats
	err   error
}

func (m *mockStats) GetStats(_ context.Context, code shortener.Code) (*shortener.Stats, error) {
	if m.err != nil {
		return nil, m.err
	}

	s, ok := m.stats[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	return s, nil
}
