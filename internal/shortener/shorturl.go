package shortener

import "time"

// Code represents a short URL code.
type Code string

// ShortURL represents a shortened URL entity. It is immutable once saved.
type ShortURL struct {
	Code        Code
	OriginalURL string
	CreatedAt   time.Time
}

// Requester carries optional metadata about whoever followed a short link.
type Requester struct {
	ClientIP  string
	UserAgent string
	Referrer  string
}

// Visit is a single successful resolution of a code.
type Visit struct {
	Code       Code
	ObservedAt time.Time
	Requester  Requester
}

// Stats is the aggregated visit counter of a code.
type Stats struct {
	Code          Code
	VisitCount    uint64
	LastVisitedAt *time.Time
}
