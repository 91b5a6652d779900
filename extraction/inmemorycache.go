package extraction

import (
	"sort"
	"sync"
	"time"
)

type cacheEntry struct {
	set      *CompiledRuleSet
	cachedAt time.Time
}

// InMemoryRuleSetCache is a RuleSetCache guarded by an RWMutex. Entries are
// immutable, so readers share them without copying.
type InMemoryRuleSetCache struct {
	entries map[string]cacheEntry
	config  CacheConfig
	now     func() time.Time
	mu      sync.RWMutex
}

func NewInMemoryRuleSetCache(config CacheConfig) *InMemoryRuleSetCache {
	return &InMemoryRuleSetCache{
		entries: make(map[string]cacheEntry),
		config:  config,
		now:     time.Now,
	}
}

func (c *InMemoryRuleSetCache) Get(jurisdiction string) (*CompiledRuleSet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[jurisdiction]
	if !ok || c.expired(e) {
		return nil, false
	}
	return e.set, true
}

func (c *InMemoryRuleSetCache) Set(jurisdiction string, set *CompiledRuleSet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[jurisdiction] = cacheEntry{set: set, cachedAt: c.now()}
}

func (c *InMemoryRuleSetCache) Invalidate(jurisdiction string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, jurisdiction)
}

func (c *InMemoryRuleSetCache) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]cacheEntry)
}

func (c *InMemoryRuleSetCache) Jurisdictions() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]string, 0, len(c.entries))
	for j, e := range c.entries {
		if !c.expired(e) {
			out = append(out, j)
		}
	}
	sort.Strings(out)
	return out
}

func (c *InMemoryRuleSetCache) expired(e cacheEntry) bool {
	return c.config.TTL > 0 && c.now().Sub(e.cachedAt) > c.config.TTL
}
