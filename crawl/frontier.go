package crawl

import (
	"context"
	"sync"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/bloom"
)

// Compile-time interface verification.
var _ docingest.URLFrontier = (*Frontier)(nil)

// Frontier is the session-scoped registry of crawl URLs. Rows live in a
// CrawlURLService; a Bloom filter lets definitely-new URLs skip the
// existence lookup, and the store's unique index is the final guard.
//
// It is safe for concurrent use by multiple goroutines.
type Frontier struct {
	urls      docingest.CrawlURLService
	sessionID string

	mu       sync.Mutex
	opened   bool
	filter   docingest.URLFilter
	seen     *bloom.Filter
	inFlight map[string]struct{}
	counts   map[docingest.URLStatus]int

	duplicates int
	rejected   int
}

// FrontierStats reports frontier counters.
type FrontierStats struct {
	Counts     map[docingest.URLStatus]int
	InFlight   int
	Duplicates int
	Rejected   int
}

// NewFrontier creates a frontier for a session. Open must be called before use.
func NewFrontier(session *docingest.CrawlSession, urls docingest.CrawlURLService) *Frontier {
	return &Frontier{
		urls:      urls,
		sessionID: session.ID,
		filter:    session.Filter(),
		seen:      bloom.NewFilter(bloom.DefaultCapacity, bloom.DefaultFPRate),
		inFlight:  make(map[string]struct{}),
		counts:    make(map[docingest.URLStatus]int),
	}
}

// Open loads status counts and seeds the Bloom filter with every URL
// already known to the session.
func (f *Frontier) Open(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts, err := f.urls.CountCrawlURLs(ctx, f.sessionID)
	if err != nil {
		return err
	}
	known, err := f.urls.FindCrawlURLs(ctx, docingest.CrawlURLFilter{SessionID: &f.sessionID})
	if err != nil {
		return err
	}

	urls := make([]string, len(known))
	for i, u := range known {
		urls[i] = u.URL
	}
	f.seen = bloom.NewSessionFilter(urls)
	f.counts = counts
	f.opened = true
	return nil
}

// SetFilter replaces the filter applied to future submissions.
// URLs already registered are not re-evaluated.
func (f *Frontier) SetFilter(filter docingest.URLFilter) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filter = filter
}

// Submit registers a discovered URL as pending.
func (f *Frontier) Submit(ctx context.Context, rawURL string) (accepted, isNew bool, err error) {
	url := docingest.NormalizeURL(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return false, false, err
	}

	if !f.filter.Accept(url) {
		f.rejected++
		return false, false, nil
	}

	if f.seen.Test(url) {
		_, err := f.urls.FindCrawlURL(ctx, f.sessionID, url)
		if err == nil {
			f.duplicates++
			return true, false, nil
		} else if docingest.ErrorCode(err) != docingest.ENOTFOUND {
			return false, false, err
		}
	}

	err = f.urls.CreateCrawlURL(ctx, &docingest.CrawlURL{
		SessionID: f.sessionID,
		URL:       url,
		Status:    docingest.StatusPending,
	})
	if docingest.ErrorCode(err) == docingest.ECONFLICT {
		f.seen.Add(url)
		f.duplicates++
		return true, false, nil
	} else if err != nil {
		return false, false, err
	}

	f.seen.Add(url)
	f.counts[docingest.StatusPending]++
	return true, true, nil
}

// MarkCrawled stores fetched content and moves the URL to crawled.
func (f *Frontier) MarkCrawled(ctx context.Context, url, html, markdown string) error {
	status := docingest.StatusCrawled
	empty := ""
	return f.mark(ctx, url, docingest.CrawlURLUpdate{
		Status:   &status,
		HTML:     &html,
		Markdown: &markdown,
		Error:    &empty,
	})
}

// MarkProcessed stores cleaned Markdown and the snippet count.
func (f *Frontier) MarkProcessed(ctx context.Context, url, cleaned string, snippets int) error {
	status := docingest.StatusProcessed
	empty := ""
	return f.mark(ctx, url, docingest.CrawlURLUpdate{
		Status:          &status,
		CleanedMarkdown: &cleaned,
		SnippetCount:    &snippets,
		Error:           &empty,
	})
}

// MarkError records a failure. A processed URL keeps its status and its
// existing snippets; only the failure reason is recorded.
func (f *Frontier) MarkError(ctx context.Context, url string, reason error) error {
	msg := "unknown error"
	if reason != nil {
		msg = reason.Error()
	}
	status := docingest.StatusError
	return f.mark(ctx, url, docingest.CrawlURLUpdate{Status: &status, Error: &msg})
}

// MarkSkipped excludes a pending URL from crawling.
func (f *Frontier) MarkSkipped(ctx context.Context, url string) error {
	status := docingest.StatusSkipped
	return f.mark(ctx, url, docingest.CrawlURLUpdate{Status: &status})
}

func (f *Frontier) mark(ctx context.Context, rawURL string, upd docingest.CrawlURLUpdate) error {
	url := docingest.NormalizeURL(rawURL)

	f.mu.Lock()
	defer f.mu.Unlock()
	defer delete(f.inFlight, url)

	if err := f.checkOpen(); err != nil {
		return err
	}

	u, err := f.urls.FindCrawlURL(ctx, f.sessionID, url)
	if err != nil {
		return err
	}

	to := *upd.Status
	if u.Status == docingest.StatusProcessed && to == docingest.StatusError {
		upd.Status = nil
		to = u.Status
	} else if !docingest.CanTransition(u.Status, to) {
		return docingest.Errorf(docingest.EINVALID, "cannot move %s from %s to %s", url, u.Status, to)
	}

	if _, err := f.urls.UpdateCrawlURL(ctx, u.ID, upd); err != nil {
		return err
	}

	f.counts[u.Status]--
	f.counts[to]++
	return nil
}

// PendingBatch claims the rows among urls eligible for op that are not
// already in flight. An empty urls slice means the whole session.
func (f *Frontier) PendingBatch(ctx context.Context, urls []string, op docingest.Operation) ([]*docingest.CrawlURL, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.checkOpen(); err != nil {
		return nil, err
	}

	filter := docingest.CrawlURLFilter{
		SessionID:   &f.sessionID,
		Statuses:    operationStatuses(op),
		WithContent: op != docingest.OpCrawl,
	}
	if len(urls) > 0 {
		filter.URLs = make([]string, len(urls))
		for i, u := range urls {
			filter.URLs[i] = docingest.NormalizeURL(u)
		}
	}

	rows, err := f.urls.FindCrawlURLs(ctx, filter)
	if err != nil {
		return nil, err
	}

	batch := make([]*docingest.CrawlURL, 0, len(rows))
	for _, u := range rows {
		if !op.Eligible(u) {
			continue
		}
		if _, ok := f.inFlight[u.URL]; ok {
			continue
		}
		f.inFlight[u.URL] = struct{}{}
		batch = append(batch, u)
	}
	return batch, nil
}

// Release drops the in-flight claim on a URL without changing its status.
func (f *Frontier) Release(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.inFlight, docingest.NormalizeURL(url))
}

// Stats returns a snapshot of the frontier counters.
func (f *Frontier) Stats() FrontierStats {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[docingest.URLStatus]int, len(f.counts))
	for k, v := range f.counts {
		counts[k] = v
	}
	return FrontierStats{
		Counts:     counts,
		InFlight:   len(f.inFlight),
		Duplicates: f.duplicates,
		Rejected:   f.rejected,
	}
}

func (f *Frontier) checkOpen() error {
	if !f.opened {
		return docingest.Errorf(docingest.EINVALID, "frontier is not open")
	}
	return nil
}

func operationStatuses(op docingest.Operation) []docingest.URLStatus {
	switch op {
	case docingest.OpCrawl:
		return []docingest.URLStatus{docingest.StatusPending}
	case docingest.OpProcess:
		return []docingest.URLStatus{docingest.StatusCrawled, docingest.StatusError}
	default:
		return []docingest.URLStatus{docingest.StatusCrawled, docingest.StatusProcessed, docingest.StatusError}
	}
}
