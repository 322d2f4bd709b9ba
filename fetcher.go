package docingest

import (
	"context"
	"time"
)

// Fetcher retrieves HTML from URLs.
type Fetcher interface {
	// Fetch retrieves the HTML at url. A proxy attached to ctx with
	// NewProxyContext is used for the request.
	// The context controls timeout and cancellation.
	// A host asking the crawler to slow down (HTTP 429 or 503) is
	// reported as EUNAVAILABLE.
	Fetch(ctx context.Context, url string) (html string, err error)

	// Close releases resources held by the fetcher.
	Close() error
}

// DomainLimiter provides per-domain rate limiting.
type DomainLimiter interface {
	// Wait blocks until the rate limit allows a request to the domain.
	// Returns an error if the context is canceled.
	Wait(ctx context.Context, domain string) error

	// Backoff holds every request to the domain for at least d.
	Backoff(domain string, d time.Duration)
}
