// Package bloom provides a probabilistic set of URLs a frontier has seen.
package bloom

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
)

// Default sizing for session frontiers.
const (
	DefaultCapacity = 100_000
	DefaultFPRate   = 0.001
)

// Filter is a concurrency-safe Bloom filter over normalized URLs.
// A negative answer is definitive; a positive one must be confirmed
// against the backing store.
type Filter struct {
	mu       sync.RWMutex
	f        *bloom.BloomFilter
	capacity uint
}

// NewFilter creates a filter sized for n expected URLs at the given
// false positive rate. Zero values fall back to the defaults.
func NewFilter(n uint, fpRate float64) *Filter {
	if n == 0 {
		n = DefaultCapacity
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = DefaultFPRate
	}
	return &Filter{f: bloom.NewWithEstimates(n, fpRate), capacity: n}
}

// NewSessionFilter creates a filter holding known, sized so that the
// session can at least double before the false positive rate degrades.
func NewSessionFilter(known []string) *Filter {
	n := uint(2 * len(known))
	if n < DefaultCapacity {
		n = DefaultCapacity
	}
	f := NewFilter(n, DefaultFPRate)
	for _, u := range known {
		f.f.AddString(u)
	}
	return f
}

// Capacity returns the number of URLs the filter was sized for.
func (f *Filter) Capacity() uint {
	return f.capacity
}

// Add records a URL.
func (f *Filter) Add(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.f.AddString(url)
}

// Test returns true if the URL might have been added.
func (f *Filter) Test(url string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.f.TestString(url)
}
