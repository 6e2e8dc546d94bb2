package grouping

import (
	"sync/atomic"

	"github.com/alanyoungcy/marketgroups/internal/domain"
)

// FirstMarketCache remembers the first market an engine ever canonicalized.
// Callers use it as an arbitrary representative market, e.g. a default
// quick-bet target. It is safe for concurrent use.
type FirstMarketCache struct {
	market atomic.Pointer[domain.Market]
}

// NewFirstMarketCache returns an empty cache.
func NewFirstMarketCache() *FirstMarketCache {
	return &FirstMarketCache{}
}

// offer stores m unless a market is already cached.
func (c *FirstMarketCache) offer(m domain.Market) {
	if c.market.Load() != nil {
		return
	}
	c.market.CompareAndSwap(nil, &m)
}

// Get returns the cached market, if any.
func (c *FirstMarketCache) Get() (domain.Market, bool) {
	m := c.market.Load()
	if m == nil {
		return domain.Market{}, false
	}
	return *m, true
}

// Reset empties the cache so the next organized market is captured again.
func (c *FirstMarketCache) Reset() {
	c.market.Store(nil)
}
