package docingest

import (
	"context"
	"net/url"
	"strings"
)

// URLFilter decides whether a discovered URL belongs to a crawl session.
// It has no state beyond its rules and is safe for concurrent use.
type URLFilter struct {
	// PrefixPath is matched as a plain string prefix, not path-aware.
	PrefixPath string

	// AntiPaths are rejected when found anywhere in the URL path.
	AntiPaths []string

	// AntiKeywords are rejected when found anywhere in the URL, ignoring case.
	AntiKeywords []string
}

// Accept returns true if the URL passes the prefix, anti-path, and
// anti-keyword rules. Empty rule entries are ignored.
func (f URLFilter) Accept(rawURL string) bool {
	if !strings.HasPrefix(rawURL, f.PrefixPath) {
		return false
	}

	if len(f.AntiPaths) > 0 {
		u, err := url.Parse(rawURL)
		if err != nil {
			return false
		}
		for _, fragment := range f.AntiPaths {
			if fragment != "" && strings.Contains(u.Path, fragment) {
				return false
			}
		}
	}

	lower := strings.ToLower(rawURL)
	for _, kw := range f.AntiKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			return false
		}
	}

	return true
}

// SitemapService discovers URLs from website sitemaps.
type SitemapService interface {
	// DiscoverURLs finds all URLs from a site's sitemap.
	// It first checks robots.txt for sitemap directives, then falls back
	// to /sitemap.xml. Sitemap indexes are resolved recursively.
	//
	// Only URLs accepted by the filter are returned.
	DiscoverURLs(ctx context.Context, baseURL string, filter URLFilter) ([]string, error)
}
