package mock

import (
	"context"
	"time"

	"github.com/fwojciec/docingest"
)

var _ docingest.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of docingest.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) (string, error)
	CloseFn func() error
}

func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	return f.FetchFn(ctx, url)
}

func (f *Fetcher) Close() error {
	return f.CloseFn()
}

var _ docingest.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter is a mock implementation of docingest.DomainLimiter.
type DomainLimiter struct {
	WaitFn    func(ctx context.Context, domain string) error
	BackoffFn func(domain string, d time.Duration)
}

func (l *DomainLimiter) Wait(ctx context.Context, domain string) error {
	return l.WaitFn(ctx, domain)
}

func (l *DomainLimiter) Backoff(domain string, d time.Duration) {
	l.BackoffFn(domain, d)
}
