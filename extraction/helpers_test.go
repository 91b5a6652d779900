package extraction

import (
	"context"
	"testing"
	"time"

	"github.com/liamcoop/courtextract/patterns"
)

var fixedNow = time.Date(2025, time.January, 15, 12, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func literalRule(id, field, expr string, priority float64) patterns.PatternRule {
	return patterns.PatternRule{
		ID: id, Field: field, Strategy: patterns.StrategyLiteral, Priority: priority,
		Pattern: patterns.Pattern{Expression: expr},
	}
}

func contextualRule(id, field string, anchors []string, window int, priority float64) patterns.PatternRule {
	return patterns.PatternRule{
		ID: id, Field: field, Strategy: patterns.StrategyContextual, Priority: priority,
		Pattern: patterns.Pattern{Anchors: anchors, Window: window},
	}
}

func fuzzyRule(id, field, expr string, priority float64) patterns.PatternRule {
	return patterns.PatternRule{
		ID: id, Field: field, Strategy: patterns.StrategyFuzzy, Priority: priority,
		Pattern: patterns.Pattern{Expression: expr},
	}
}

// compileSet loads a rule set through the in-memory store so it is
// validated and ordered exactly as in production, then compiles it.
func compileSet(t *testing.T, set *patterns.RuleSet) *CompiledRuleSet {
	t.Helper()

	store, err := patterns.NewInMemoryPatternStore(set)
	if err != nil {
		t.Fatalf("invalid test rule set: %v", err)
	}
	loaded, err := store.Load(context.Background(), set.Jurisdiction)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	cc, err := NewConditionCompiler()
	if err != nil {
		t.Fatalf("NewConditionCompiler() failed: %v", err)
	}
	compiled, err := Compile(loaded, cc)
	if err != nil {
		t.Fatalf("Compile() failed: %v", err)
	}
	return compiled
}

func ruleSet(rules ...patterns.PatternRule) *patterns.RuleSet {
	return &patterns.RuleSet{Jurisdiction: "orange", Rules: rules}
}

func date(t *testing.T, s string) Date {
	t.Helper()
	d, err := ParseISODate(s)
	if err != nil {
		t.Fatalf("bad test date %q: %v", s, err)
	}
	return d
}

func ruleIDs(ranked []ScoredCandidate) map[string]bool {
	out := make(map[string]bool)
	for _, c := range ranked {
		out[c.RuleID] = true
	}
	return out
}
