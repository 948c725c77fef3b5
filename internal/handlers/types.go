package handlers

import "time"

// CreateShortURLRequest is the request body for creating a short URL.
type CreateShortURLRequest struct {
	Body struct {
		OriginalURL string `doc:"The URL to shorten. https:// is assumed when the scheme is missing." example:"https://example.com/very/long/path" json:"original_url"`
	}
}

// CreateShortURLResponse is the response for a successfully created short URL.
type CreateShortURLResponse struct {
	Location string `doc:"The short URL location" header:"Location"`
	Body     struct {
		ShortCode   string `doc:"The short code"     example:"4c92"                               json:"short_code"`
		ShortURL    string `doc:"The full short URL" example:"http://localhost:8888/4c92"         json:"short_url"`
		OriginalURL string `doc:"The original URL"   example:"https://example.com/very/long/path" json:"original_url"`
	}
}

// RedirectRequest is the request for redirecting a short URL.
type RedirectRequest struct {
	Code string `doc:"The short code" example:"4c92" path:"code"`
}

// RedirectResponse sends the client on to the destination.
type RedirectResponse struct {
	Status   int
	Location string `header:"Location"`
}

// StatsRequest is the request for the visit stats of a short URL.
type StatsRequest struct {
	Code string `doc:"The short code" example:"4c92" path:"code"`
}

// StatsResponse reports the visit counters of a short URL.
type StatsResponse struct {
	Body struct {
		ShortCode     string     `doc:"The short code"                          json:"short_code"`
		VisitCount    uint64     `doc:"Number of counted redirects"             json:"visit_count"`
		LastVisitedAt *time.Time `doc:"Time of the latest counted redirect" json:"last_visited_at"`
	}
}
