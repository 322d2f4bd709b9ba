package crawl

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/docingest"
	"github.com/google/uuid"
)

// ProxyPool hands out proxies in least-recently-used order. Proxies never
// used come first; ties are broken by insertion order and then by use
// order, so equal timestamps still rotate round-robin.
//
// The pool is the in-memory authority; when Service is set every change is
// written through to it.
type ProxyPool struct {
	Service docingest.ProxyService
	Source  docingest.ProxyListSource

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time

	mu      sync.Mutex
	entries []*proxyEntry
	seq     uint64
}

type proxyEntry struct {
	record docingest.ProxyRecord
	seq    uint64 // order of last use
}

// RefreshResult reports what a Refresh changed.
type RefreshResult struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
	Total   int `json:"total"`
}

// NewProxyPool returns an empty pool.
func NewProxyPool(service docingest.ProxyService, source docingest.ProxyListSource) *ProxyPool {
	return &ProxyPool{Service: service, Source: source, Now: time.Now}
}

// Load replaces the pool contents with the stored proxies.
func (p *ProxyPool) Load(ctx context.Context) error {
	if p.Service == nil {
		return nil
	}
	records, err := p.Service.FindProxies(ctx)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.entries = p.entries[:0]
	for _, r := range records {
		p.entries = append(p.entries, &proxyEntry{record: *r, seq: uint64(r.Position)})
		if uint64(r.Position) >= p.seq {
			p.seq = uint64(r.Position) + 1
		}
	}
	return nil
}

// Next selects the least recently used proxy, stamps it with the current
// time and returns a copy. Returns ENOTFOUND when the pool is empty.
func (p *ProxyPool) Next(ctx context.Context) (*docingest.ProxyRecord, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.entries) == 0 {
		return nil, docingest.Errorf(docingest.ENOTFOUND, "proxy pool is empty")
	}

	best := p.entries[0]
	for _, e := range p.entries[1:] {
		if e.usedBefore(best) {
			best = e
		}
	}

	now := p.now()
	if p.Service != nil {
		if err := p.Service.TouchProxy(ctx, best.record.ID, now); err != nil {
			return nil, err
		}
	}

	best.record.LastUsedAt = &now
	best.seq = p.seq
	p.seq++

	r := best.record
	return &r, nil
}

// usedBefore reports whether e should be handed out before other.
func (e *proxyEntry) usedBefore(other *proxyEntry) bool {
	a, b := e.record.LastUsedAt, other.record.LastUsedAt
	switch {
	case a == nil && b == nil:
		return e.record.Position < other.record.Position
	case a == nil:
		return true
	case b == nil:
		return false
	case !a.Equal(*b):
		return a.Before(*b)
	}
	return e.seq < other.seq
}

// Refresh replaces the pool with the list published by Source. Proxies
// present in both keep their last-used time. When the list cannot be
// fetched the pool is left untouched and the error is returned.
func (p *ProxyPool) Refresh(ctx context.Context) (*RefreshResult, error) {
	if p.Source == nil {
		return nil, docingest.Errorf(docingest.EINVALID, "proxy list source not configured")
	}
	list, err := p.Source.FetchProxyList(ctx)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(list))
	var ordered []string
	for _, u := range list {
		u = strings.TrimSpace(u)
		if u == "" || wanted[u] {
			continue
		}
		wanted[u] = true
		ordered = append(ordered, u)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	current := make(map[string]bool, len(p.entries))
	var removedIDs []string
	for _, e := range p.entries {
		current[e.record.URL] = true
		if !wanted[e.record.URL] {
			removedIDs = append(removedIDs, e.record.ID)
		}
	}
	var added []string
	for _, u := range ordered {
		if !current[u] {
			added = append(added, u)
		}
	}

	inserted, err := p.persist(ctx, added, removedIDs)
	if err != nil {
		return nil, err
	}

	kept := p.entries[:0]
	for _, e := range p.entries {
		if wanted[e.record.URL] {
			kept = append(kept, e)
		}
	}
	for _, r := range inserted {
		kept = append(kept, &proxyEntry{record: *r, seq: p.seq})
		p.seq++
	}
	p.entries = kept

	return &RefreshResult{Added: len(inserted), Removed: len(removedIDs), Total: len(p.entries)}, nil
}

func (p *ProxyPool) persist(ctx context.Context, added, removedIDs []string) ([]*docingest.ProxyRecord, error) {
	if p.Service != nil {
		return p.Service.ReplaceProxies(ctx, added, removedIDs)
	}

	next := 0
	for _, e := range p.entries {
		if e.record.Position >= next {
			next = e.record.Position + 1
		}
	}
	inserted := make([]*docingest.ProxyRecord, 0, len(added))
	for _, u := range added {
		inserted = append(inserted, &docingest.ProxyRecord{ID: uuid.New().String(), URL: u, Position: next})
		next++
	}
	return inserted, nil
}

// Len returns the number of proxies in the pool.
func (p *ProxyPool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

// Proxies returns copies of the pooled records in insertion order.
func (p *ProxyPool) Proxies() []docingest.ProxyRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	records := make([]docingest.ProxyRecord, len(p.entries))
	for i, e := range p.entries {
		records[i] = e.record
	}
	return records
}

func (p *ProxyPool) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}
