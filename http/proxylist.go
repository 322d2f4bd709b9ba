package http

import (
	"bufio"
	"context"
	"net/http"
	"strings"

	"github.com/fwojciec/docingest"
)

var _ docingest.ProxyListSource = (*ProxyListSource)(nil)

// ProxyListSource fetches a newline-separated host:port list over HTTP.
type ProxyListSource struct {
	url    string
	client *http.Client
}

// NewProxyListSource creates a source for the list at url.
// If client is nil, http.DefaultClient is used.
func NewProxyListSource(url string, client *http.Client) *ProxyListSource {
	if client == nil {
		client = http.DefaultClient
	}
	return &ProxyListSource{url: url, client: client}
}

// FetchProxyList returns the published entries in order, skipping blank
// lines, comments and duplicates. Any failure to obtain the list is
// EUNAVAILABLE.
func (s *ProxyListSource) FetchProxyList(ctx context.Context) ([]string, error) {
	if s.url == "" {
		return nil, docingest.Errorf(docingest.EINVALID, "proxy list URL required")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, docingest.Errorf(docingest.EINVALID, "invalid proxy list URL %q: %s", s.url, err)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, docingest.Errorf(docingest.EUNAVAILABLE, "fetch proxy list: %s", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, docingest.Errorf(docingest.EUNAVAILABLE, "fetch proxy list: HTTP %d", resp.StatusCode)
	}

	var entries []string
	seen := make(map[string]bool)
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || seen[line] {
			continue
		}
		seen[line] = true
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, docingest.Errorf(docingest.EUNAVAILABLE, "read proxy list: %s", err)
	}
	return entries, nil
}
