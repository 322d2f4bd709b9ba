// Package goquery implements docingest.LinkExtractor using CSS selectors.
package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/docingest"
)

var _ docingest.LinkExtractor = (*LinkExtractor)(nil)

// LinkExtractor finds same-host links in a page and ranks them by where
// they appear. It recognizes common documentation generators and falls
// back to generic selectors for anything else. Anchors outside every
// known region are still returned with PriorityFallback when they sit
// under the page's directory.
type LinkExtractor struct {
	// DisableFallback skips anchors not matched by any selector.
	DisableFallback bool
}

// NewLinkExtractor returns a LinkExtractor with fallback enabled.
func NewLinkExtractor() *LinkExtractor {
	return &LinkExtractor{}
}

// Framework reports which documentation generator built the page.
// Returns "generic" if none is recognized.
func (e *LinkExtractor) Framework(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return genericProfile.name
	}
	return detect(doc).name
}

// ExtractLinks returns links in order of first appearance. A URL found in
// several regions keeps its highest priority. Fragments are stripped and
// links back to the page itself are dropped.
func (e *LinkExtractor) ExtractLinks(html string, baseURL string) ([]docingest.DiscoveredLink, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, docingest.Errorf(docingest.EINVALID, "invalid base URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, docingest.Errorf(docingest.EINVALID, "failed to parse HTML: %v", err)
	}

	c := &collector{base: base, seen: make(map[string]int)}
	for _, r := range detect(doc).rules {
		doc.Find(r.selector).Each(func(_ int, sel *goquery.Selection) {
			c.add(sel, r.priority, r.source)
		})
	}

	if !e.DisableFallback {
		dir := base.Path[:strings.LastIndex(base.Path, "/")+1]
		doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
			href, _ := sel.Attr("href")
			if resolved := c.resolve(href); resolved != nil && strings.HasPrefix(resolved.Path, dir) {
				c.add(sel, docingest.PriorityFallback, "fallback")
			}
		})
	}

	return c.links, nil
}

// collector deduplicates links while preserving first-seen order.
type collector struct {
	base  *url.URL
	seen  map[string]int
	links []docingest.DiscoveredLink
}

func (c *collector) add(sel *goquery.Selection, priority docingest.LinkPriority, source string) {
	href, _ := sel.Attr("href")
	resolved := c.resolve(href)
	if resolved == nil {
		return
	}

	link := docingest.DiscoveredLink{
		URL:      resolved.String(),
		Priority: priority,
		Text:     strings.Join(strings.Fields(sel.Text()), " "),
		Source:   source,
	}

	if idx, ok := c.seen[link.URL]; ok {
		if priority > c.links[idx].Priority {
			c.links[idx] = link
		}
		return
	}
	c.seen[link.URL] = len(c.links)
	c.links = append(c.links, link)
}

// resolve returns the absolute form of href, or nil if it is not an
// http(s) link on the base host or points back at the base page.
func (c *collector) resolve(href string) *url.URL {
	href = strings.TrimSpace(href)
	if href == "" || isNonHTTPLink(href) {
		return nil
	}

	ref, err := url.Parse(href)
	if err != nil {
		return nil
	}
	resolved := c.base.ResolveReference(ref)
	resolved.Fragment = ""
	resolved.RawFragment = ""

	if resolved.Scheme != "http" && resolved.Scheme != "https" {
		return nil
	}
	if resolved.Host != c.base.Host {
		return nil
	}

	self := *c.base
	self.Fragment = ""
	self.RawFragment = ""
	if resolved.String() == self.String() {
		return nil
	}
	return resolved
}

func isNonHTTPLink(href string) bool {
	href = strings.ToLower(href)
	return strings.HasPrefix(href, "javascript:") ||
		strings.HasPrefix(href, "mailto:") ||
		strings.HasPrefix(href, "tel:") ||
		strings.HasPrefix(href, "data:")
}
