package extraction

import "time"

// RuleSetCache holds compiled rule sets by jurisdiction.
type RuleSetCache interface {
	// Get returns the cached set, or false on a miss or expiry.
	Get(jurisdiction string) (*CompiledRuleSet, bool)

	// Set stores a set, replacing any previous one for the jurisdiction.
	Set(jurisdiction string, set *CompiledRuleSet)

	// Invalidate drops one jurisdiction so the next Get misses.
	Invalidate(jurisdiction string)

	// InvalidateAll drops every entry.
	InvalidateAll()

	// Jurisdictions lists the currently valid entries.
	Jurisdictions() []string
}

// CacheConfig controls cache expiry.
type CacheConfig struct {
	// TTL of 0 keeps entries for the process lifetime; only Reload replaces them.
	TTL time.Duration
}

func DefaultCacheConfig() CacheConfig {
	return CacheConfig{TTL: 0}
}
