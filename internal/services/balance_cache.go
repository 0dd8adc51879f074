package services

import (
	"sync"

	"casa/internal/cache"
	"casa/internal/metrics"
)

// BalanceCache keeps computed balance reports per house. A nil
// *BalanceCache is valid and caches nothing.
//
// Every invalidation bumps the house's generation. A report computed
// before an invalidation is dropped by Set, so a slow reader cannot put a
// stale view back into the cache.
type BalanceCache struct {
	c cache.Cache[BalanceReport]

	mu  sync.Mutex
	gen map[string]uint64
}

func NewBalanceCache(c cache.Cache[BalanceReport]) *BalanceCache {
	return &BalanceCache{c: c, gen: make(map[string]uint64)}
}

func (b *BalanceCache) Get(houseID string) (BalanceReport, bool) {
	if b == nil || b.c == nil {
		return BalanceReport{}, false
	}
	r, ok := b.c.Get(houseID)
	metrics.RecordBalanceCache(ok)
	return r, ok
}

// Generation returns the current generation of a house. Read it before
// loading the inputs of a report.
func (b *BalanceCache) Generation(houseID string) uint64 {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.gen[houseID]
}

// Set stores r unless the house was invalidated since generation gen.
func (b *BalanceCache) Set(houseID string, gen uint64, r BalanceReport) bool {
	if b == nil || b.c == nil {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.gen[houseID] != gen {
		return false
	}
	b.c.Set(houseID, r)
	return true
}

// Invalidate drops the report of a house whose expenses or members changed.
func (b *BalanceCache) Invalidate(houseID string) {
	if b == nil || b.c == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gen[houseID]++
	b.c.Delete(houseID)
}
