package store

import (
	"context"
	"sync"
	"time"

	"github.com/serroba/shortlink/internal/analytics"
	"github.com/serroba/shortlink/internal/shortener"
)

type counter struct {
	visits uint64
	last   time.Time
}

// Memory is an in-memory analytics.Store.
type Memory struct {
	mu    sync.RWMutex
	stats map[shortener.Code]counter
}

// NewMemory creates an empty in-memory stats store.
func NewMemory() *Memory {
	return &Memory{stats: make(map[shortener.Code]counter)}
}

func (m *Memory) ApplyBatch(_ context.Context, increments []analytics.Increment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, inc := range increments {
		c := m.stats[inc.Code]
		c.visits += inc.Count

		if inc.LastVisitedAt.After(c.last) {
			c.last = inc.LastVisitedAt
		}

		m.stats[inc.Code] = c
	}

	return nil
}

func (m *Memory) GetStats(_ context.Context, code shortener.Code) (*shortener.Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.stats[code]
	if !ok {
		return nil, shortener.ErrNotFound
	}

	last := c.last

	return &shortener.Stats{Code: code, VisitCount: c.visits, LastVisitedAt: &last}, nil
}

var _ analytics.Store = (*Memory)(nil)
