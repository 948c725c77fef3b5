package analytics

import (
	"time"

	"github.com/serroba/shortlink/internal/shortener"
)

// TopicURLVisited carries one VisitEvent per successful redirect.
const TopicURLVisited = "url.visited"

// VisitEvent represents an event emitted when a short url is resolved.
type VisitEvent struct {
	Code      string    `json:"code"`
	VisitedAt time.Time `json:"visitedAt"`
	ClientIP  string    `json:"clientIp,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	Referrer  string    `json:"referrer,omitempty"`
}

// NewVisitEvent converts a domain visit into its wire form.
func NewVisitEvent(v shortener.Visit) *VisitEvent {
	return &VisitEvent{
		Code:      string(v.Code),
		VisitedAt: v.ObservedAt,
		ClientIP:  v.Requester.ClientIP,
		UserAgent: v.Requester.UserAgent,
		Referrer:  v.Requester.Referrer,
	}
}
