package mock

import (
	"context"

	"github.com/fwojciec/docingest"
)

var _ docingest.CrawlURLService = (*CrawlURLService)(nil)

// CrawlURLService is a mock implementation of docingest.CrawlURLService.
type CrawlURLService struct {
	CreateCrawlURLFn func(ctx context.Context, u *docingest.CrawlURL) error
	FindCrawlURLFn   func(ctx context.Context, sessionID, url string) (*docingest.CrawlURL, error)
	FindCrawlURLsFn  func(ctx context.Context, filter docingest.CrawlURLFilter) ([]*docingest.CrawlURL, error)
	UpdateCrawlURLFn func(ctx context.Context, id string, upd docingest.CrawlURLUpdate) (*docingest.CrawlURL, error)
	CountCrawlURLsFn func(ctx context.Context, sessionID string) (map[docingest.URLStatus]int, error)
}

func (s *CrawlURLService) CreateCrawlURL(ctx context.Context, u *docingest.CrawlURL) error {
	return s.CreateCrawlURLFn(ctx, u)
}

func (s *CrawlURLService) FindCrawlURL(ctx context.Context, sessionID, url string) (*docingest.CrawlURL, error) {
	return s.FindCrawlURLFn(ctx, sessionID, url)
}

func (s *CrawlURLService) FindCrawlURLs(ctx context.Context, filter docingest.CrawlURLFilter) ([]*docingest.CrawlURL, error) {
	return s.FindCrawlURLsFn(ctx, filter)
}

func (s *CrawlURLService) UpdateCrawlURL(ctx context.Context, id string, upd docingest.CrawlURLUpdate) (*docingest.CrawlURL, error) {
	return s.UpdateCrawlURLFn(ctx, id, upd)
}

func (s *CrawlURLService) CountCrawlURLs(ctx context.Context, sessionID string) (map[docingest.URLStatus]int, error) {
	return s.CountCrawlURLsFn(ctx, sessionID)
}

var _ docingest.URLFrontier = (*URLFrontier)(nil)

// URLFrontier is a mock implementation of docingest.URLFrontier.
type URLFrontier struct {
	SubmitFn        func(ctx context.Context, url string) (bool, bool, error)
	MarkCrawledFn   func(ctx context.Context, url, html, markdown string) error
	MarkProcessedFn func(ctx context.Context, url, cleaned string, snippets int) error
	MarkErrorFn     func(ctx context.Context, url string, reason error) error
	MarkSkippedFn   func(ctx context.Context, url string) error
	PendingBatchFn  func(ctx context.Context, urls []string, op docingest.Operation) ([]*docingest.CrawlURL, error)
	ReleaseFn       func(url string)
}

func (f *URLFrontier) Submit(ctx context.Context, url string) (bool, bool, error) {
	return f.SubmitFn(ctx, url)
}

func (f *URLFrontier) MarkCrawled(ctx context.Context, url, html, markdown string) error {
	return f.MarkCrawledFn(ctx, url, html, markdown)
}

func (f *URLFrontier) MarkProcessed(ctx context.Context, url, cleaned string, snippets int) error {
	return f.MarkProcessedFn(ctx, url, cleaned, snippets)
}

func (f *URLFrontier) MarkError(ctx context.Context, url string, reason error) error {
	return f.MarkErrorFn(ctx, url, reason)
}

func (f *URLFrontier) MarkSkipped(ctx context.Context, url string) error {
	return f.MarkSkippedFn(ctx, url)
}

func (f *URLFrontier) PendingBatch(ctx context.Context, urls []string, op docingest.Operation) ([]*docingest.CrawlURL, error) {
	return f.PendingBatchFn(ctx, urls, op)
}

func (f *URLFrontier) Release(url string) {
	f.ReleaseFn(url)
}
