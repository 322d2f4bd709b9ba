package docingest

import (
	"context"
	"strings"
	"time"
)

// ProxyRecord represents an outbound proxy endpoint.
type ProxyRecord struct {
	ID  string `json:"id"`
	URL string `json:"url"` // host:port, optionally with scheme

	// LastUsedAt is nil until the proxy is first handed out.
	LastUsedAt *time.Time `json:"lastUsedAt"`

	// Position is the insertion order, used to break ties between
	// proxies with equal LastUsedAt.
	Position int `json:"position"`
}

// ProxyURL returns the proxy address with a scheme, defaulting to http.
func (p *ProxyRecord) ProxyURL() string {
	if strings.Contains(p.URL, "://") {
		return p.URL
	}
	return "http://" + p.URL
}

// ProxyService persists proxy records.
type ProxyService interface {
	// FindProxies returns all proxies ordered by position.
	FindProxies(ctx context.Context) ([]*ProxyRecord, error)

	// ReplaceProxies inserts the added URLs and deletes the removed IDs
	// in a single transaction. Inserted records are returned with IDs set.
	ReplaceProxies(ctx context.Context, added []string, removedIDs []string) ([]*ProxyRecord, error)

	// TouchProxy stamps a proxy's last-used time.
	TouchProxy(ctx context.Context, id string, usedAt time.Time) error
}

// ProxyListSource fetches the canonical proxy list.
type ProxyListSource interface {
	FetchProxyList(ctx context.Context) ([]string, error)
}

type proxyContextKey struct{}

// NewProxyContext returns a context that routes fetches through proxy.
func NewProxyContext(ctx context.Context, proxy *ProxyRecord) context.Context {
	return context.WithValue(ctx, proxyContextKey{}, proxy)
}

// ProxyFromContext returns the proxy attached to ctx, if any.
func ProxyFromContext(ctx context.Context) (*ProxyRecord, bool) {
	p, ok := ctx.Value(proxyContextKey{}).(*ProxyRecord)
	return p, ok && p != nil
}
