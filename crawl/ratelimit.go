package crawl

import (
	"context"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/docingest"
	"golang.org/x/time/rate"
)

// DefaultThrottleBackoff is how long a host that answered 429 or 503 is
// left alone by every worker.
const DefaultThrottleBackoff = 10 * time.Second

var _ docingest.DomainLimiter = (*DomainLimiter)(nil)

// DomainLimiter shares one token bucket per host between all crawl
// workers, so a session's concurrency never exceeds rps requests per
// second against a single documentation host. Hosts are keyed without
// port and case-insensitively.
type DomainLimiter struct {
	limit rate.Limit

	mu    sync.Mutex
	hosts map[string]*hostLimit
}

type hostLimit struct {
	bucket *rate.Limiter
	until  time.Time
}

// NewDomainLimiter creates a DomainLimiter allowing rps requests per
// second per host with a burst of 1. A non-positive rps disables the
// bucket; backoffs still apply.
func NewDomainLimiter(rps float64) *DomainLimiter {
	limit := rate.Limit(rps)
	if rps <= 0 {
		limit = rate.Inf
	}
	return &DomainLimiter{
		limit: limit,
		hosts: make(map[string]*hostLimit),
	}
}

// Wait blocks until the host is out of backoff and its bucket has a
// token. Returns the context error if ctx ends first.
func (d *DomainLimiter) Wait(ctx context.Context, domain string) error {
	h, until := d.host(domain)
	if wait := until.Sub(time.Now()); wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	return h.bucket.Wait(ctx)
}

// Backoff holds the host for d. Overlapping backoffs keep the later end.
func (d *DomainLimiter) Backoff(domain string, dur time.Duration) {
	if dur <= 0 {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.lookup(domain)
	if until := time.Now().Add(dur); until.After(h.until) {
		h.until = until
	}
}

func (d *DomainLimiter) host(domain string) (*hostLimit, time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	h := d.lookup(domain)
	return h, h.until
}

// lookup returns the host's state, creating it. Callers hold mu.
func (d *DomainLimiter) lookup(domain string) *hostLimit {
	key := hostKey(domain)
	h, ok := d.hosts[key]
	if !ok {
		h = &hostLimit{bucket: rate.NewLimiter(d.limit, 1)}
		d.hosts[key] = h
	}
	return h
}

func hostKey(domain string) string {
	domain = strings.ToLower(domain)
	if host, _, err := net.SplitHostPort(domain); err == nil {
		return host
	}
	return domain
}
