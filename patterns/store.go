package patterns

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/liamcoop/courtextract/internal/apperr"
)

// PatternStore loads validated, ordered rule sets by jurisdiction.
// There is no mutation API; a reload is another call to Load.
type PatternStore interface {
	// Load returns the rule set for a jurisdiction or a ConfigurationError
	// when none exists or it fails validation.
	Load(ctx context.Context, jurisdiction string) (*RuleSet, error)

	// List returns the jurisdictions the store has rule sets for.
	List(ctx context.Context) ([]string, error)
}

// InMemoryPatternStore serves rule sets fixed at construction.
type InMemoryPatternStore struct {
	sets map[string]*RuleSet
	mu   sync.RWMutex
}

// NewInMemoryPatternStore validates and stores the given rule sets.
func NewInMemoryPatternStore(sets ...*RuleSet) (*InMemoryPatternStore, error) {
	s := &InMemoryPatternStore{sets: make(map[string]*RuleSet, len(sets))}
	now := time.Now()
	for _, set := range sets {
		if err := Validate(set); err != nil {
			return nil, configError(set.Jurisdiction, "invalid rule set", err)
		}
		clone := set.Clone()
		clone.finalize(now)
		if _, exists := s.sets[clone.Jurisdiction]; exists {
			return nil, configError(clone.Jurisdiction, "duplicate rule set", nil)
		}
		s.sets[clone.Jurisdiction] = clone
	}
	return s, nil
}

// Load returns a copy of the stored rule set.
func (s *InMemoryPatternStore) Load(_ context.Context, jurisdiction string) (*RuleSet, error) {
	key := NormalizeJurisdiction(jurisdiction)

	s.mu.RLock()
	defer s.mu.RUnlock()

	set, ok := s.sets[key]
	if !ok {
		return nil, configError(key, "no rule set", nil)
	}
	return set.Clone(), nil
}

// List returns the stored jurisdictions in sorted order.
func (s *InMemoryPatternStore) List(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.sets))
	for j := range s.sets {
		out = append(out, j)
	}
	sort.Strings(out)
	return out, nil
}

func configError(jurisdiction, reason string, cause error) error {
	return &apperr.ConfigurationError{Jurisdiction: jurisdiction, Reason: reason, Cause: cause}
}

// prepare validates a freshly decoded rule set and orders it.
func prepare(set *RuleSet, jurisdiction string) (*RuleSet, error) {
	if set.Jurisdiction == "" {
		set.Jurisdiction = jurisdiction
	}
	if NormalizeJurisdiction(set.Jurisdiction) != jurisdiction {
		return nil, configError(jurisdiction, fmt.Sprintf("rule set declares jurisdiction %q", set.Jurisdiction), nil)
	}
	if err := Validate(set); err != nil {
		return nil, configError(jurisdiction, "invalid rule set", err)
	}
	set.finalize(time.Now())
	return set, nil
}
