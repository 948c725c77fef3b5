package shortener

import (
	"context"
	"fmt"
)

// Counter is a durable, atomically incremented sequence.
type Counter interface {
	Next(ctx context.Context) (uint64, error)
}

// Allocator produces unique short codes without consulting the url store.
type Allocator interface {
	Allocate(ctx context.Context) (Code, error)
}

// CounterAllocator encodes successive counter values as base62 codes.
type CounterAllocator struct {
	counter    Counter
	secret     uint64
	maxCounter uint64
	reserved   map[Code]struct{}
}

// AllocatorOption configures a CounterAllocator.
type AllocatorOption func(*CounterAllocator)

// WithSecret XORs every counter value with secret before encoding.
// XOR is its own inverse, so distinct counter values still map to distinct codes.
func WithSecret(secret uint64) AllocatorOption {
	return func(a *CounterAllocator) {
		a.secret = secret
	}
}

// WithMaxCounter makes the allocator fail once the counter passes limit. Zero means no limit.
func WithMaxCounter(limit uint64) AllocatorOption {
	return func(a *CounterAllocator) {
		a.maxCounter = limit
	}
}

// WithReserved lists codes that must never be handed out, such as codes that equal a
// route segment. The counter value behind a reserved code is skipped.
func WithReserved(codes ...Code) AllocatorOption {
	return func(a *CounterAllocator) {
		if a.reserved == nil {
			a.reserved = make(map[Code]struct{}, len(codes))
		}

		for _, c := range codes {
			a.reserved[c] = struct{}{}
		}
	}
}

// NewCounterAllocator creates an allocator backed by counter.
func NewCounterAllocator(counter Counter, opts ...AllocatorOption) *CounterAllocator {
	a := &CounterAllocator{counter: counter}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

func (a *CounterAllocator) Allocate(ctx context.Context) (Code, error) {
	for {
		n, err := a.counter.Next(ctx)
		if err != nil {
			return "", fmt.Errorf("%w: %w", ErrAllocatorUnavailable, err)
		}

		if a.maxCounter > 0 && n > a.maxCounter {
			return "", fmt.Errorf("%w: counter at %d, limit %d", ErrAllocationExhausted, n, a.maxCounter)
		}

		code := Code(Encode(n ^ a.secret))
		if _, taken := a.reserved[code]; !taken {
			return code, nil
		}
	}
}
