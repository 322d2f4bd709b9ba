// Package http provides HTTP implementations of docingest.Fetcher,
// docingest.SitemapService and docingest.ProxyListSource.
package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/fwojciec/docingest"
)

// DefaultFetchTimeout is the default timeout for HTTP requests.
const DefaultFetchTimeout = 10 * time.Second

// DefaultMaxBodyBytes caps the size of a fetched page.
const DefaultMaxBodyBytes = 10 << 20

// DefaultUserAgent identifies the crawler to documentation sites.
const DefaultUserAgent = "docingest/1.0 (+https://github.com/fwojciec/docingest)"

// Ensure Fetcher implements docingest.Fetcher at compile time.
var _ docingest.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves HTML content from URLs using HTTP requests. A proxy
// attached to the request context with docingest.NewProxyContext is used
// for that request; otherwise the environment proxy settings apply.
type Fetcher struct {
	client       *http.Client
	timeout      time.Duration
	maxBodyBytes int64
	userAgent    string
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithTimeout sets the timeout for HTTP requests.
// Defaults to DefaultFetchTimeout (10s) if not specified.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) {
		f.timeout = d
	}
}

// WithMaxBodyBytes caps the number of bytes read from a response.
func WithMaxBodyBytes(n int64) Option {
	return func(f *Fetcher) {
		f.maxBodyBytes = n
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(f *Fetcher) {
		f.userAgent = ua
	}
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		timeout:      DefaultFetchTimeout,
		maxBodyBytes: DefaultMaxBodyBytes,
		userAgent:    DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(f)
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = proxyFromContext

	f.client = &http.Client{
		Timeout:   f.timeout,
		Transport: transport,
	}

	return f
}

// proxyFromContext routes a request through the proxy attached to its
// context, falling back to the environment.
func proxyFromContext(req *http.Request) (*url.URL, error) {
	if p, ok := docingest.ProxyFromContext(req.Context()); ok {
		u, err := url.Parse(p.ProxyURL())
		if err != nil {
			return nil, docingest.Errorf(docingest.EINVALID, "invalid proxy %q: %s", p.URL, err)
		}
		return u, nil
	}
	return http.ProxyFromEnvironment(req)
}

// Fetch retrieves the HTML content from the given URL. Missing pages
// (404, 410) return ENOTFOUND, throttling (429, 503) returns EUNAVAILABLE
// and other failures return EFETCH. Context
// errors are returned unwrapped.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", docingest.Errorf(docingest.EINVALID, "invalid URL %q: %s", rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var codeErr *docingest.Error
		if errors.As(err, &codeErr) {
			return "", codeErr
		}
		return "", docingest.Errorf(docingest.EFETCH, "GET %s: %s", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return "", docingest.Errorf(docingest.ENOTFOUND, "HTTP %d for %s", resp.StatusCode, rawURL)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable:
		return "", docingest.Errorf(docingest.EUNAVAILABLE, "HTTP %d for %s", resp.StatusCode, rawURL)
	case resp.StatusCode != http.StatusOK:
		return "", docingest.Errorf(docingest.EFETCH, "HTTP %d for %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes+1))
	if err != nil {
		return "", docingest.Errorf(docingest.EFETCH, "read %s: %s", rawURL, err)
	}
	if int64(len(body)) > f.maxBodyBytes {
		return "", docingest.Errorf(docingest.EFETCH, "%s exceeds %d bytes", rawURL, f.maxBodyBytes)
	}

	return string(body), nil
}

// Close releases idle connections.
func (f *Fetcher) Close() error {
	f.client.CloseIdleConnections()
	return nil
}

// String describes the fetcher for logs.
func (f *Fetcher) String() string {
	return fmt.Sprintf("http.Fetcher(timeout=%s)", f.timeout)
}
