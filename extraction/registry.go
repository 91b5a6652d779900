package extraction

import (
	"context"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/liamcoop/courtextract/patterns"
)

// Registry loads, compiles and caches rule sets per jurisdiction. Concurrent
// misses for one jurisdiction share a single load.
type Registry struct {
	store      patterns.PatternStore
	cache      RuleSetCache
	conditions *ConditionCompiler
	loads      singleflight.Group
}

func NewRegistry(store patterns.PatternStore, cache RuleSetCache, conditions *ConditionCompiler) *Registry {
	if cache == nil {
		cache = NewInMemoryRuleSetCache(DefaultCacheConfig())
	}
	return &Registry{store: store, cache: cache, conditions: conditions}
}

// Get returns the compiled set for a jurisdiction, loading it on first use.
func (r *Registry) Get(ctx context.Context, jurisdiction string) (*CompiledRuleSet, error) {
	key := patterns.NormalizeJurisdiction(jurisdiction)
	if set, ok := r.cache.Get(key); ok {
		return set, nil
	}

	v, err, _ := r.loads.Do(key, func() (any, error) {
		if set, ok := r.cache.Get(key); ok {
			return set, nil
		}
		set, err := r.compile(ctx, key)
		if err != nil {
			return nil, err
		}
		r.cache.Set(key, set)
		return set, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*CompiledRuleSet), nil
}

// Reload recompiles a jurisdiction from the store and swaps it in. On
// failure the previously cached set stays in service.
func (r *Registry) Reload(ctx context.Context, jurisdiction string) (*CompiledRuleSet, error) {
	key := patterns.NormalizeJurisdiction(jurisdiction)
	set, err := r.compile(ctx, key)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, set)
	return set, nil
}

// Warm loads every jurisdiction the store knows about. It stops at the first
// broken rule set so misconfiguration surfaces at startup.
func (r *Registry) Warm(ctx context.Context) ([]string, error) {
	jurisdictions, err := r.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list jurisdictions: %w", err)
	}
	for _, j := range jurisdictions {
		if _, err := r.Get(ctx, j); err != nil {
			return nil, err
		}
	}
	return jurisdictions, nil
}

// Jurisdictions lists what the store offers.
func (r *Registry) Jurisdictions(ctx context.Context) ([]string, error) {
	return r.store.List(ctx)
}

// Loaded lists the jurisdictions currently compiled in the cache.
func (r *Registry) Loaded() []string {
	return r.cache.Jurisdictions()
}

func (r *Registry) compile(ctx context.Context, key string) (*CompiledRuleSet, error) {
	set, err := r.store.Load(ctx, key)
	if err != nil {
		return nil, err
	}
	return Compile(set, r.conditions)
}
