// Package crawl provides documentation crawling orchestration: the
// session frontier, proxy rotation and the crawl worker pool.
package crawl

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/fwojciec/docingest"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxPages bounds recursive crawls to prevent runaway link following.
const DefaultMaxPages = 1000

// WorkerPool fetches claimed URLs concurrently, registers discovered links
// with the frontier and stores converted Markdown.
type WorkerPool struct {
	Fetcher       docingest.Fetcher
	LinkExtractor docingest.LinkExtractor
	Converter     docingest.Converter

	// Extractor, when set, strips boilerplate before conversion.
	Extractor docingest.Extractor

	// Proxies, when set, routes every request through the next proxy.
	Proxies *ProxyPool

	RateLimiter docingest.DomainLimiter
	RetryDelays []time.Duration

	// ThrottleBackoff pauses a host on the RateLimiter after it answers
	// EUNAVAILABLE. Defaults to DefaultThrottleBackoff.
	ThrottleBackoff time.Duration
}

// CrawlOptions configures a single Crawl call.
type CrawlOptions struct {
	// MaxConcurrency bounds workers; zero sizes the pool to the batch.
	MaxConcurrency int

	// Recursive crawls newly discovered links in the same call.
	// Otherwise they stay pending for a later batch.
	Recursive bool

	// MaxPages bounds the pages crawled in recursive mode, seeds included.
	// The initial batch is never truncated. Defaults to DefaultMaxPages.
	MaxPages int

	// Cancelled is polled before each fetch.
	Cancelled func() bool

	Progress ProgressFunc
}

// ProgressType indicates the type of progress event.
type ProgressType int

const (
	ProgressStarted ProgressType = iota
	ProgressCompleted
	ProgressFailed
	ProgressCancelled
	ProgressFinished
)

// ProgressEvent reports progress during a crawl operation.
type ProgressEvent struct {
	Type      ProgressType
	Completed int
	Total     int
	URL       string
	Error     error
}

// ProgressFunc is a callback for reporting crawl progress.
type ProgressFunc func(event ProgressEvent)

// CrawlOutcome is the manifest entry for one URL.
type CrawlOutcome struct {
	URL       string `json:"url"`
	Err       error  `json:"-"`
	Links     int    `json:"links"`
	NewLinks  int    `json:"newLinks"`
	Cancelled bool   `json:"cancelled"`
}

// CrawlResult is the manifest of a Crawl call. Outcomes are in claim order.
type CrawlResult struct {
	Outcomes   []CrawlOutcome `json:"outcomes"`
	Crawled    int            `json:"crawled"`
	Failed     int            `json:"failed"`
	Cancelled  int            `json:"cancelled"`
	Discovered int            `json:"discovered"`
}

// crawlResult is what a worker hands back to the coordinator.
type crawlResult struct {
	index    int
	outcome  CrawlOutcome
	newLinks []docingest.DiscoveredLink
}

// Crawl claims the pending URLs among seeds (all pending URLs when seeds is
// empty) and crawls them. Per-URL failures are recorded on the frontier and
// in the manifest; only precondition failures return an error.
func (p *WorkerPool) Crawl(ctx context.Context, frontier docingest.URLFrontier, seeds []string, opts CrawlOptions) (*CrawlResult, error) {
	if err := p.validate(frontier); err != nil {
		return nil, err
	}

	batch, err := frontier.PendingBatch(ctx, seeds, docingest.OpCrawl)
	if err != nil {
		return nil, err
	}

	maxPages := opts.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}

	result := &CrawlResult{Outcomes: make([]CrawlOutcome, 0, len(batch))}
	queue := &linkQueue{}
	for _, u := range batch {
		queue.push(len(result.Outcomes), u.URL, docingest.PriorityNavigation)
		result.Outcomes = append(result.Outcomes, CrawlOutcome{URL: u.URL})
	}

	emit := func(e ProgressEvent) {
		if opts.Progress != nil {
			opts.Progress(e)
		}
	}
	emit(ProgressEvent{Type: ProgressStarted, Total: len(result.Outcomes)})

	if len(batch) == 0 {
		emit(ProgressEvent{Type: ProgressFinished})
		return result, nil
	}

	workers := docingest.ResolveConcurrency(opts.MaxConcurrency, len(batch))

	workCh := make(chan queuedLink)
	resultCh := make(chan crawlResult)
	done := make(chan struct{})
	go func() {
		defer close(done)
		p.runWorkers(ctx, frontier, workers, workCh, resultCh, opts)
	}()

	completed := 0
	handle := func(r crawlResult) {
		result.Outcomes[r.index] = r.outcome
		completed++
		result.Discovered += r.outcome.NewLinks

		ev := ProgressEvent{Completed: completed, Total: len(result.Outcomes), URL: r.outcome.URL, Error: r.outcome.Err}
		switch {
		case r.outcome.Cancelled:
			result.Cancelled++
			ev.Type = ProgressCancelled
		case r.outcome.Err != nil:
			result.Failed++
			ev.Type = ProgressFailed
		default:
			result.Crawled++
			ev.Type = ProgressCompleted
		}
		emit(ev)

		if !opts.Recursive || len(r.newLinks) == 0 || isCancelled(ctx, opts) {
			return
		}
		budget := maxPages - len(result.Outcomes)
		if budget <= 0 {
			return
		}
		priorities := make(map[string]docingest.LinkPriority, len(r.newLinks))
		urls := make([]string, 0, min(budget, len(r.newLinks)))
		for _, l := range r.newLinks {
			if len(urls) == budget {
				break
			}
			priorities[l.URL] = l.Priority
			urls = append(urls, l.URL)
		}
		// Claim failures leave the links pending for a later batch.
		claimed, err := frontier.PendingBatch(ctx, urls, docingest.OpCrawl)
		if err != nil {
			return
		}
		for _, u := range claimed {
			queue.push(len(result.Outcomes), u.URL, priorities[u.URL])
			result.Outcomes = append(result.Outcomes, CrawlOutcome{URL: u.URL})
		}
	}

	// Coordinator loop
	pending := 0
	stopped := false
	ctxDone := ctx.Done()
	for {
		if !stopped && isCancelled(ctx, opts) {
			stopped = true
		}

		var sendCh chan queuedLink
		var next queuedLink
		if !stopped && queue.len() > 0 {
			sendCh = workCh
			next = queue.peek()
		}
		if sendCh == nil && pending == 0 {
			break
		}

		select {
		case sendCh <- next:
			queue.pop()
			pending++
		case r := <-resultCh:
			pending--
			handle(r)
		case <-ctxDone:
			stopped = true
			ctxDone = nil
		}
	}

	close(workCh)
	<-done

	// Units never started are released and reported as cancelled.
	for queue.len() > 0 {
		link := queue.pop()
		frontier.Release(link.url)
		handle(crawlResult{index: link.index, outcome: cancelledOutcome(link.url)})
	}

	emit(ProgressEvent{Type: ProgressFinished, Completed: completed, Total: len(result.Outcomes)})
	return result, nil
}

func (p *WorkerPool) validate(frontier docingest.URLFrontier) error {
	if frontier == nil {
		return docingest.Errorf(docingest.EINVALID, "frontier required")
	}
	if p.Fetcher == nil {
		return docingest.Errorf(docingest.EINVALID, "fetcher required")
	}
	if p.LinkExtractor == nil {
		return docingest.Errorf(docingest.EINVALID, "link extractor required")
	}
	if p.Converter == nil {
		return docingest.Errorf(docingest.EINVALID, "converter required")
	}
	if p.Proxies != nil && p.Proxies.Len() == 0 {
		return docingest.Errorf(docingest.EUNAVAILABLE, "proxy pool is empty")
	}
	return nil
}

func (p *WorkerPool) runWorkers(
	ctx context.Context,
	frontier docingest.URLFrontier,
	workers int,
	workCh <-chan queuedLink,
	resultCh chan<- crawlResult,
	opts CrawlOptions,
) {
	g := new(errgroup.Group)
	for range workers {
		g.Go(func() error {
			for link := range workCh {
				resultCh <- p.crawlURL(ctx, frontier, link, opts)
			}
			return nil
		})
	}
	_ = g.Wait()
}

// crawlURL fetches one URL, submits its links and stores its content.
func (p *WorkerPool) crawlURL(ctx context.Context, frontier docingest.URLFrontier, link queuedLink, opts CrawlOptions) crawlResult {
	res := crawlResult{index: link.index, outcome: CrawlOutcome{URL: link.url}}

	if isCancelled(ctx, opts) {
		frontier.Release(link.url)
		res.outcome = cancelledOutcome(link.url)
		return res
	}

	html, err := p.fetch(ctx, link.url)
	if err != nil {
		if ctx.Err() != nil {
			frontier.Release(link.url)
			res.outcome = cancelledOutcome(link.url)
			return res
		}
		fetchErr := docingest.Errorf(docingest.EFETCH, "fetch %s: %s", link.url, err)
		res.outcome.Err = fetchErr
		if markErr := frontier.MarkError(context.WithoutCancel(ctx), link.url, fetchErr); markErr != nil {
			res.outcome.Err = errors.Join(fetchErr, markErr)
		}
		return res
	}

	// A fetched page is recorded even if the crawl was cancelled meanwhile.
	ctx = context.WithoutCancel(ctx)

	// Link extraction failures only cost discovery, never the page.
	if links, err := p.LinkExtractor.ExtractLinks(html, link.url); err == nil {
		res.outcome.Links = len(links)
		for _, l := range links {
			accepted, isNew, err := frontier.Submit(ctx, l.URL)
			if err != nil || !accepted || !isNew {
				continue
			}
			res.outcome.NewLinks++
			l.URL = docingest.NormalizeURL(l.URL)
			res.newLinks = append(res.newLinks, l)
		}
	}

	if err := frontier.MarkCrawled(ctx, link.url, html, p.convert(html)); err != nil {
		res.outcome.Err = err
	}
	return res
}

func (p *WorkerPool) fetch(ctx context.Context, rawURL string) (string, error) {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}

	delays := p.RetryDelays
	if delays == nil {
		delays = DefaultRetryDelays()
	}

	return Retry(ctx, delays, func(ctx context.Context) (string, error) {
		if p.Proxies != nil {
			proxy, err := p.Proxies.Next(ctx)
			if err != nil {
				return "", err
			}
			ctx = docingest.NewProxyContext(ctx, proxy)
		}
		if p.RateLimiter == nil {
			return p.Fetcher.Fetch(ctx, rawURL)
		}
		if err := p.RateLimiter.Wait(ctx, host); err != nil {
			return "", err
		}
		html, err := p.Fetcher.Fetch(ctx, rawURL)
		if docingest.ErrorCode(err) == docingest.EUNAVAILABLE {
			p.RateLimiter.Backoff(host, p.throttleBackoff())
		}
		return html, err
	})
}

func (p *WorkerPool) throttleBackoff() time.Duration {
	if p.ThrottleBackoff > 0 {
		return p.ThrottleBackoff
	}
	return DefaultThrottleBackoff
}

// convert returns Markdown for the page, or an empty string when conversion
// fails so that processing retries it from the stored HTML.
func (p *WorkerPool) convert(html string) string {
	content := html
	if p.Extractor != nil {
		extracted, err := p.Extractor.Extract(html)
		if err != nil {
			return ""
		}
		content = extracted.ContentHTML
	}
	markdown, err := p.Converter.Convert(content)
	if err != nil {
		return ""
	}
	return markdown
}

func cancelledOutcome(url string) CrawlOutcome {
	return CrawlOutcome{
		URL:       url,
		Err:       docingest.Errorf(docingest.ECANCELED, "crawl cancelled before %s was fetched", url),
		Cancelled: true,
	}
}

func isCancelled(ctx context.Context, opts CrawlOptions) bool {
	if ctx.Err() != nil {
		return true
	}
	return opts.Cancelled != nil && opts.Cancelled()
}
