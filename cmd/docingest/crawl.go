package main

import (
	"fmt"
	"net/url"

	"github.com/fwojciec/docingest"
	"github.com/fwojciec/docingest/crawl"
	"github.com/fwojciec/docingest/goquery"
	"github.com/fwojciec/docingest/htmltomarkdown"
	"github.com/fwojciec/docingest/progress"
	"github.com/fwojciec/docingest/readability"
	"github.com/fwojciec/docingest/trafilatura"
)

// Run executes the crawl command.
func (c *CrawlCmd) Run(deps *Dependencies) error {
	session, err := findSession(deps, c.Name)
	if err != nil {
		return err
	}

	frontier := crawl.NewFrontier(session, deps.URLs)
	if err := frontier.Open(deps.Ctx); err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}

	added, err := c.seed(deps, session, frontier)
	if err != nil {
		fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
		return err
	}
	if added > 0 {
		fmt.Fprintf(deps.Stdout, "  Queued %d new URLs\n", added)
	}

	pool := &crawl.WorkerPool{
		Fetcher:       deps.Fetcher,
		LinkExtractor: goquery.NewLinkExtractor(),
		Converter:     newConverter(session.PrefixPath),
		Extractor:     newExtractor(c.Extractor),
	}
	if c.RPS > 0 {
		pool.RateLimiter = crawl.NewDomainLimiter(c.RPS)
	}
	if c.UseProxy {
		proxies, err := loadProxyPool(deps)
		if err != nil {
			fmt.Fprintf(deps.Stderr, "error: %s\n", docingest.ErrorMessage(err))
			return err
		}
		pool.Proxies = proxies
		fmt.Fprintf(deps.Stdout, "  Using %d proxies\n", proxies.Len())
	}

	task := deps.Tracker.Create("crawl", progress.CrawlStages...)
	progressFn := func(event crawl.ProgressEvent) {
		switch event.Type {
		case crawl.ProgressStarted:
			fmt.Fprintf(deps.Stdout, "  Crawling %d URLs\n", event.Total)
			_ = deps.Tracker.UpdateStage(task.ID, "crawl", docingest.StageActive, 0)
		case crawl.ProgressCompleted, crawl.ProgressFailed:
			if event.Type == crawl.ProgressFailed {
				fmt.Fprintf(deps.Stderr, "  skip %s: %s\n", crawl.TruncateURL(event.URL, 80), docingest.ErrorMessage(event.Error))
			}
			if event.Total > 0 {
				_ = deps.Tracker.UpdateStage(task.ID, "crawl", docingest.StageActive, event.Completed*100/event.Total)
			}
		}
	}

	result, err := pool.Crawl(deps.Ctx, frontier, nil, crawl.CrawlOptions{
		MaxConcurrency: session.MaxConcurrency,
		Recursive:      c.Recursive,
		MaxPages:       c.MaxPages,
		Cancelled:      deps.Tracker.Canceller(task.ID),
		Progress:       progressFn,
	})
	if err != nil {
		_ = deps.Tracker.Fail(task.ID, err)
		fmt.Fprintf(deps.Stderr, "error crawling: %s\n", docingest.ErrorMessage(err))
		return err
	}
	if !deps.Tracker.IsCancelled(task.ID) {
		_ = deps.Tracker.Complete(task.ID)
	}

	stats := frontier.Stats()
	fmt.Fprintf(deps.Stdout, "  Crawled %d pages, %d failed, %d cancelled, %d new links\n",
		result.Crawled, result.Failed, result.Cancelled, result.Discovered)
	fmt.Fprintf(deps.Stdout, "  %s\n", crawl.FormatStatusCounts(stats.Counts))
	return nil
}

// seed submits the session prefix and, when enabled, the sitemap URLs.
// Sitemap failures are reported and do not stop the crawl.
func (c *CrawlCmd) seed(deps *Dependencies, session *docingest.CrawlSession, frontier *crawl.Frontier) (int, error) {
	seeds := []string{session.PrefixPath}
	if c.Sitemap {
		urls, err := deps.Sitemaps.DiscoverURLs(deps.Ctx, session.PrefixPath, session.Filter())
		if err != nil {
			fmt.Fprintf(deps.Stderr, "  sitemap: %s\n", docingest.ErrorMessage(err))
		} else {
			fmt.Fprintf(deps.Stdout, "  Found %d URLs in sitemap\n", len(urls))
		}
		seeds = append(seeds, urls...)
	}

	added := 0
	for _, u := range seeds {
		_, isNew, err := frontier.Submit(deps.Ctx, u)
		if err != nil {
			return added, err
		}
		if isNew {
			added++
		}
	}
	return added, nil
}

// loadProxyPool loads stored proxies, refreshing from the proxy list when
// none are stored yet.
func loadProxyPool(deps *Dependencies) (*crawl.ProxyPool, error) {
	pool := crawl.NewProxyPool(deps.Proxies, deps.ProxySource)
	if err := pool.Load(deps.Ctx); err != nil {
		return nil, err
	}
	if pool.Len() == 0 && deps.ProxySource != nil {
		if _, err := pool.Refresh(deps.Ctx); err != nil {
			return nil, err
		}
	}
	if pool.Len() == 0 {
		return nil, docingest.Errorf(docingest.EINVALID, "proxy pool is empty; set DOCINGEST_PROXY_LIST or run 'docingest proxies refresh'")
	}
	return pool, nil
}

// newConverter resolves relative links against the origin of prefix.
func newConverter(prefix string) *htmltomarkdown.Converter {
	u, err := url.Parse(prefix)
	if err != nil || u.Host == "" {
		return htmltomarkdown.NewConverter()
	}
	return htmltomarkdown.NewConverter(htmltomarkdown.WithDomain(u.Scheme + "://" + u.Host))
}

func newExtractor(name string) docingest.Extractor {
	switch name {
	case "readability":
		return readability.NewExtractor()
	case "none":
		return nil
	default:
		return trafilatura.NewExtractor()
	}
}
