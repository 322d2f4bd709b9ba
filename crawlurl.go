package docingest

import (
	"context"
	"strings"
	"time"
)

// URLStatus is the lifecycle state of a CrawlURL.
type URLStatus string

// CrawlURL statuses.
const (
	StatusPending   URLStatus = "pending"
	StatusCrawled   URLStatus = "crawled"
	StatusProcessed URLStatus = "processed"
	StatusError     URLStatus = "error"
	StatusSkipped   URLStatus = "skipped"
)

// URLStatuses lists every status in lifecycle order.
var URLStatuses = []URLStatus{StatusPending, StatusCrawled, StatusProcessed, StatusError, StatusSkipped}

// transitions lists the allowed forward moves for each status.
var transitions = map[URLStatus][]URLStatus{
	StatusPending:   {StatusCrawled, StatusError, StatusSkipped},
	StatusCrawled:   {StatusCrawled, StatusProcessed, StatusError},
	StatusProcessed: {StatusProcessed},
	StatusError:     {StatusCrawled, StatusProcessed, StatusError},
}

// CanTransition reports whether a URL may move from one status to another.
func CanTransition(from, to URLStatus) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// CrawlURL represents a URL known to a crawl session.
type CrawlURL struct {
	ID              string    `json:"id"`
	SessionID       string    `json:"sessionId"`
	URL             string    `json:"url"`
	Status          URLStatus `json:"status"`
	HTML            string    `json:"html,omitempty"`
	Markdown        string    `json:"markdown,omitempty"`
	CleanedMarkdown string    `json:"cleanedMarkdown,omitempty"`
	ContentHash     string    `json:"contentHash,omitempty"`
	SnippetCount    int       `json:"snippetCount"`
	Error           string    `json:"error,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Validate returns an error if the URL contains invalid fields.
func (u *CrawlURL) Validate() error {
	if u.SessionID == "" {
		return Errorf(EINVALID, "crawl URL session ID required")
	}
	if u.URL == "" {
		return Errorf(EINVALID, "crawl URL required")
	}
	return nil
}

// NormalizeURL strips the fragment so URLs differing only by fragment
// are treated as the same page.
func NormalizeURL(rawURL string) string {
	if idx := strings.Index(rawURL, "#"); idx != -1 {
		return rawURL[:idx]
	}
	return rawURL
}

// CrawlURLService represents a service for persisting crawl URLs.
type CrawlURLService interface {
	// CreateCrawlURL inserts a new URL.
	// Returns ECONFLICT if the URL already exists in the session.
	CreateCrawlURL(ctx context.Context, u *CrawlURL) error

	// FindCrawlURL retrieves a URL by session and address.
	// Returns ENOTFOUND if the URL does not exist.
	FindCrawlURL(ctx context.Context, sessionID, url string) (*CrawlURL, error)

	// FindCrawlURLs retrieves URLs matching the filter.
	FindCrawlURLs(ctx context.Context, filter CrawlURLFilter) ([]*CrawlURL, error)

	// UpdateCrawlURL applies an update and returns the updated row.
	// Returns ENOTFOUND if the URL does not exist.
	UpdateCrawlURL(ctx context.Context, id string, upd CrawlURLUpdate) (*CrawlURL, error)

	// CountCrawlURLs returns the number of URLs per status for a session.
	CountCrawlURLs(ctx context.Context, sessionID string) (map[URLStatus]int, error)
}

// CrawlURLFilter represents a filter for FindCrawlURLs.
type CrawlURLFilter struct {
	SessionID *string     `json:"sessionId"`
	Statuses  []URLStatus `json:"statuses"`
	URLs      []string    `json:"urls"`

	// WithContent loads HTML and Markdown bodies.
	WithContent bool `json:"withContent"`

	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

// CrawlURLUpdate represents fields that can be updated on a crawl URL.
type CrawlURLUpdate struct {
	Status          *URLStatus `json:"status"`
	HTML            *string    `json:"html"`
	Markdown        *string    `json:"markdown"`
	CleanedMarkdown *string    `json:"cleanedMarkdown"`
	ContentHash     *string    `json:"contentHash"`
	SnippetCount    *int       `json:"snippetCount"`
	Error           *string    `json:"error"`
}

// Operation selects which URLs a frontier batch may claim.
type Operation int

// Frontier batch operations.
const (
	OpCrawl Operation = iota
	OpProcess
	OpReprocess
)

// Eligible reports whether a URL in the given state may be claimed for op.
func (op Operation) Eligible(u *CrawlURL) bool {
	switch op {
	case OpCrawl:
		return u.Status == StatusPending
	case OpProcess:
		return u.Status == StatusCrawled || (u.Status == StatusError && u.HTML != "")
	case OpReprocess:
		return u.Status == StatusCrawled || u.Status == StatusProcessed ||
			(u.Status == StatusError && u.HTML != "")
	}
	return false
}

// URLFrontier is the session-scoped registry of crawl URLs shared by
// crawl and processing workers.
type URLFrontier interface {
	// Submit registers a discovered URL.
	// accepted is false when the session filter rejects the URL;
	// isNew is false when the URL was already known.
	Submit(ctx context.Context, url string) (accepted, isNew bool, err error)

	MarkCrawled(ctx context.Context, url, html, markdown string) error
	MarkProcessed(ctx context.Context, url, cleaned string, snippets int) error
	MarkError(ctx context.Context, url string, reason error) error
	MarkSkipped(ctx context.Context, url string) error

	// PendingBatch claims the rows among urls that are eligible for op and
	// not already in flight. An empty urls slice means the whole session.
	PendingBatch(ctx context.Context, urls []string, op Operation) ([]*CrawlURL, error)

	// Release drops the in-flight claim on a URL without changing its status.
	Release(url string)
}
