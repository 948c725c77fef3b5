package shortener

import "errors"

var (
	// ErrNotFound is returned when a code is unknown.
	ErrNotFound = errors.New("short url not found")

	// ErrConflict is returned when a code is already taken.
	ErrConflict = errors.New("short code already exists")

	// ErrAllocationExhausted is returned when the counter passed its configured ceiling.
	ErrAllocationExhausted = errors.New("code allocation exhausted")

	// ErrAllocatorUnavailable is returned when the counter backend cannot be reached.
	ErrAllocatorUnavailable = errors.New("code allocator unavailable")

	// ErrServiceUnavailable is returned when the url store fails or times out.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrCacheMiss is returned by caches when no entry exists for a code.
	ErrCacheMiss = errors.New("cache miss")
)
