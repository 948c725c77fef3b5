package store

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/serroba/shortlink/internal/shortener"
)

type memoryEntry struct {
	destination string
	missing     bool
}

// MemoryCache is an in-process shortener.Cache with per-entry expiry.
type MemoryCache struct {
	items *gocache.Cache
}

// NewMemoryCache creates a cache whose janitor sweeps expired entries every cleanupInterval.
func NewMemoryCache(cleanupInterval time.Duration) *MemoryCache {
	return &MemoryCache{
		items: gocache.New(gocache.NoExpiration, cleanupInterval),
	}
}

func (m *MemoryCache) Get(_ context.Context, code shortener.Code) (string, error) {
	v, ok := m.items.Get(string(code))
	if !ok {
		return "", shortener.ErrCacheMiss
	}

	entry := v.(memoryEntry)
	if entry.missing {
		return "", shortener.ErrNotFound
	}

	return entry.destination, nil
}

func (m *MemoryCache) Set(_ context.Context, code shortener.Code, destination string, ttl time.Duration) error {
	m.items.Set(string(code), memoryEntry{destination: destination}, expiration(ttl))

	return nil
}

func (m *MemoryCache) SetMissing(_ context.Context, code shortener.Code, ttl time.Duration) error {
	m.items.Set(string(code), memoryEntry{missing: true}, expiration(ttl))

	return nil
}

func (m *MemoryCache) Invalidate(_ context.Context, code shortener.Code) error {
	m.items.Delete(string(code))

	return nil
}

// Len reports the number of cached entries, expired ones included until swept.
func (m *MemoryCache) Len() int {
	return m.items.ItemCount()
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}

	return ttl
}

// NoopCache never holds anything; every lookup misses.
type NoopCache struct{}

func (NoopCache) Get(context.Context, shortener.Code) (string, error) {
	return "", shortener.ErrCacheMiss
}

func (NoopCache) Set(context.Context, shortener.Code, string, time.Duration) error { return nil }

func (NoopCache) SetMissing(context.Context, shortener.Code, time.Duration) error { return nil }

func (NoopCache) Invalidate(context.Context, shortener.Code) error { return nil }

var (
	_ shortener.Cache = (*MemoryCache)(nil)
	_ shortener.Cache = NoopCache{}
)
