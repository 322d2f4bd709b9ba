package http

import (
	"bufio"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/docingest"
)

// DefaultMaxSitemaps bounds how many sitemap documents a single discovery
// fetches, index files included.
const DefaultMaxSitemaps = 200

var _ docingest.SitemapService = (*SitemapService)(nil)

// SitemapService seeds a crawl session from the site's sitemaps. Sitemaps
// are located through robots.txt with /sitemap.xml as the fallback. XML
// urlsets, sitemap indexes, gzip and plain-text sitemaps are supported.
type SitemapService struct {
	client *http.Client

	// MaxSitemaps caps the sitemap documents fetched per discovery.
	MaxSitemaps int
}

// NewSitemapService creates a SitemapService. A nil client means
// http.DefaultClient.
func NewSitemapService(client *http.Client) *SitemapService {
	if client == nil {
		client = http.DefaultClient
	}
	return &SitemapService{client: client, MaxSitemaps: DefaultMaxSitemaps}
}

// DiscoverURLs returns the normalized, de-duplicated page URLs listed in
// the sitemaps of baseURL's host that filter accepts. A site without
// sitemaps yields an empty slice.
func (s *SitemapService) DiscoverURLs(ctx context.Context, baseURL string, filter docingest.URLFilter) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	base, err := url.Parse(baseURL)
	if err != nil || base.Host == "" {
		return nil, docingest.Errorf(docingest.EINVALID, "invalid base URL %q", baseURL)
	}
	root := &url.URL{Scheme: base.Scheme, Host: base.Host}

	queue, err := s.locate(ctx, root)
	if err != nil {
		return nil, err
	}

	w := walk{
		seen:  make(map[string]bool),
		found: make(map[string]bool),
		urls:  []string{},
		limit: s.MaxSitemaps,
	}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if w.seen[next] {
			continue
		}
		if w.limit > 0 && len(w.seen) >= w.limit {
			break
		}
		w.seen[next] = true

		children, pages, err := s.read(ctx, next)
		if err != nil {
			return nil, err
		}
		queue = append(queue, children...)
		w.add(pages, filter)
	}
	return w.urls, nil
}

// walk accumulates discovery state across sitemap documents.
type walk struct {
	seen  map[string]bool
	found map[string]bool
	urls  []string
	limit int
}

func (w *walk) add(pages []string, filter docingest.URLFilter) {
	for _, p := range pages {
		p = docingest.NormalizeURL(p)
		if w.found[p] || !filter.Accept(p) {
			continue
		}
		w.found[p] = true
		w.urls = append(w.urls, p)
	}
}

// locate returns the sitemaps declared in robots.txt, or /sitemap.xml
// when robots.txt declares none and that file exists.
func (s *SitemapService) locate(ctx context.Context, root *url.URL) ([]string, error) {
	declared, err := s.robotsSitemaps(ctx, root.JoinPath("robots.txt").String())
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if len(declared) > 0 {
		return declared, nil
	}

	fallback := root.JoinPath("sitemap.xml").String()
	body, err := s.get(ctx, fallback)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, nil
	}
	body.Close()
	return []string{fallback}, nil
}

// robotsSitemaps parses the case-insensitive Sitemap: directives of a
// robots.txt file.
func (s *SitemapService) robotsSitemaps(ctx context.Context, robotsURL string) ([]string, error) {
	body, err := s.get(ctx, robotsURL)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	var sitemaps []string
	scanner := bufio.NewScanner(body)
	for scanner.Scan() {
		key, value, ok := strings.Cut(scanner.Text(), ":")
		if !ok || !strings.EqualFold(strings.TrimSpace(key), "sitemap") {
			continue
		}
		if value = strings.TrimSpace(value); value != "" {
			sitemaps = append(sitemaps, value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, docingest.Errorf(docingest.EFETCH, "read robots.txt: %s", err)
	}
	return sitemaps, nil
}

// read fetches one sitemap and splits its entries into nested sitemaps
// and page URLs.
func (s *SitemapService) read(ctx context.Context, sitemapURL string) (children, pages []string, err error) {
	body, err := s.get(ctx, sitemapURL)
	if err != nil {
		return nil, nil, err
	}
	defer body.Close()

	if isTextSitemap(sitemapURL) {
		pages, err = readTextSitemap(body)
		if err != nil {
			return nil, nil, docingest.Errorf(docingest.EFETCH, "read sitemap %s: %s", sitemapURL, err)
		}
		return nil, pages, nil
	}

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(body); err != nil {
		return nil, nil, docingest.Errorf(docingest.EFETCH, "parse sitemap %s: %s", sitemapURL, err)
	}
	root := doc.Root()
	if root == nil {
		return nil, nil, docingest.Errorf(docingest.EFETCH, "empty sitemap %s", sitemapURL)
	}

	if root.Tag == "sitemapindex" {
		return locs(root, "sitemap"), nil, nil
	}
	return nil, locs(root, "url"), nil
}

// locs returns the trimmed <loc> text of every child element named tag.
func locs(root *etree.Element, tag string) []string {
	var out []string
	for _, el := range root.SelectElements(tag) {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		if u := strings.TrimSpace(loc.Text()); u != "" {
			out = append(out, u)
		}
	}
	return out
}

func isTextSitemap(sitemapURL string) bool {
	p := strings.ToLower(sitemapURL)
	p = strings.TrimSuffix(p, ".gz")
	return strings.HasSuffix(p, ".txt")
}

func readTextSitemap(r io.Reader) ([]string, error) {
	var pages []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "http://") || strings.HasPrefix(line, "https://") {
			pages = append(pages, line)
		}
	}
	return pages, scanner.Err()
}

// get fetches targetURL and returns its body, transparently decompressing
// .gz files. Non-200 responses are EFETCH; context errors are returned
// as is.
func (s *SitemapService) get(ctx context.Context, targetURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, docingest.Errorf(docingest.EINVALID, "invalid URL %q: %s", targetURL, err)
	}
	req.Header.Set("User-Agent", DefaultUserAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, docingest.Errorf(docingest.EFETCH, "GET %s: %s", targetURL, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, docingest.Errorf(docingest.EFETCH, "HTTP %d for %s", resp.StatusCode, targetURL)
	}

	if !strings.HasSuffix(strings.ToLower(targetURL), ".gz") {
		return resp.Body, nil
	}
	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		resp.Body.Close()
		return nil, docingest.Errorf(docingest.EFETCH, "decompress %s: %s", targetURL, err)
	}
	return gzipBody{Reader: gz, body: resp.Body}, nil
}

// gzipBody closes both the decompressor and the response body.
type gzipBody struct {
	*gzip.Reader
	body io.ReadCloser
}

func (g gzipBody) Close() error {
	g.Reader.Close()
	return g.body.Close()
}
