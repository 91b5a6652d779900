package patterns

import (
	"strings"
	"testing"
)

func validSet() *RuleSet {
	return &RuleSet{
		Jurisdiction: "orange",
		Rules: []PatternRule{
			{
				ID:       "orange-incident-literal",
				Field:    FieldIncidentDate,
				Strategy: StrategyLiteral,
				Pattern:  Pattern{Expression: `incident date:?\s*(\d{4}-\d{2}-\d{2})`},
				Priority: 1,
			},
			{
				ID:       "orange-incident-context",
				Field:    FieldIncidentDate,
				Strategy: StrategyContextual,
				Pattern:  Pattern{Anchors: []string{"on or about"}, Window: 120},
				Priority: 0.9,
			},
		},
	}
}

func TestValidate_ValidSet(t *testing.T) {
	if err := Validate(validSet()); err != nil {
		t.Fatalf("expected valid rule set, got: %v", err)
	}
}

func TestValidate_EmptyRules(t *testing.T) {
	set := validSet()
	set.Rules = nil

	err := Validate(set)
	if err == nil {
		t.Fatal("expected error for rule set without rules")
	}
	if !strings.Contains(err.Error(), "rules") {
		t.Errorf("expected error to mention rules, got: %v", err)
	}
}

func TestValidate_DuplicateRuleIDs(t *testing.T) {
	set := validSet()
	set.Rules[1].ID = set.Rules[0].ID

	err := Validate(set)
	if err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Fatalf("expected duplicate id error, got: %v", err)
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	set := validSet()
	set.Rules[0].Pattern.Expression = ""
	set.Rules[1].Pattern.Anchors = nil

	err := Validate(set)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"orange-incident-literal", "orange-incident-context"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("expected error to mention %s, got: %v", want, err)
		}
	}
}

func TestValidateRule_StrategyPayloads(t *testing.T) {
	tests := []struct {
		name    string
		rule    PatternRule
		wantErr string
	}{
		{
			name:    "literal without expression",
			rule:    PatternRule{ID: "r1", Field: "incident_date", Strategy: StrategyLiteral, Priority: 1},
			wantErr: "requires an expression",
		},
		{
			name:    "contextual without anchors",
			rule:    PatternRule{ID: "r1", Field: "incident_date", Strategy: StrategyContextual, Priority: 1},
			wantErr: "anchor",
		},
		{
			name:    "fuzzy without anything",
			rule:    PatternRule{ID: "r1", Field: "incident_date", Strategy: StrategyFuzzy, Priority: 1},
			wantErr: "expression or anchors",
		},
		{
			name:    "unknown strategy",
			rule:    PatternRule{ID: "r1", Field: "incident_date", Strategy: "semantic", Priority: 1, Pattern: Pattern{Expression: "x"}},
			wantErr: "unknown strategy",
		},
		{
			name:    "bad regex",
			rule:    PatternRule{ID: "r1", Field: "incident_date", Strategy: StrategyLiteral, Priority: 1, Pattern: Pattern{Expression: "(unclosed"}},
			wantErr: "does not compile",
		},
		{
			name:    "window too large",
			rule:    PatternRule{ID: "r1", Field: "incident_date", Strategy: StrategyContextual, Priority: 1, Pattern: Pattern{Anchors: []string{"incident"}, Window: MaxWindow + 1}},
			wantErr: "window",
		},
		{
			name:    "blank anchor",
			rule:    PatternRule{ID: "r1", Field: "incident_date", Strategy: StrategyContextual, Priority: 1, Pattern: Pattern{Anchors: []string{"  "}}},
			wantErr: "blank",
		},
		{
			name:    "zero priority",
			rule:    PatternRule{ID: "r1", Field: "incident_date", Strategy: StrategyLiteral, Pattern: Pattern{Expression: "x"}},
			wantErr: "priority",
		},
		{
			name: "fuzzy with anchors only",
			rule: PatternRule{ID: "r1", Field: "incident_date", Strategy: StrategyFuzzy, Priority: 0.5, Pattern: Pattern{Anchors: []string{"incident"}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRule(tt.rule)
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("expected no error, got: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got: %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateFieldName(t *testing.T) {
	valid := []string{"incident_date", "incident_end_date", "_x", "a1"}
	for _, name := range valid {
		if err := validateFieldName(name); err != nil {
			t.Errorf("expected %q to be valid, got: %v", name, err)
		}
	}

	invalid := []string{"", "Incident", "1date", "incident-date", "incident date", strings.Repeat("a", 101)}
	for _, name := range invalid {
		if err := validateFieldName(name); err == nil {
			t.Errorf("expected %q to be rejected", name)
		}
	}
}

func TestValidateRuleID(t *testing.T) {
	valid := []string{"orange-incident-literal", "r1", "orange.v2_rule"}
	for _, id := range valid {
		if err := validateRuleID(id); err != nil {
			t.Errorf("expected %q to be valid, got: %v", id, err)
		}
	}
	invalid := []string{"", "-leading", "has space", "slash/id"}
	for _, id := range invalid {
		if err := validateRuleID(id); err == nil {
			t.Errorf("expected %q to be rejected", id)
		}
	}
}

func TestNormalizeJurisdiction(t *testing.T) {
	tests := map[string]string{
		"Orange":            "orange",
		"  San Bernardino ": "san_bernardino",
		"los\tangeles":      "los_angeles",
		"":                  "",
	}
	for in, want := range tests {
		if got := NormalizeJurisdiction(in); got != want {
			t.Errorf("NormalizeJurisdiction(%q) = %q, want %q", in, got, want)
		}
	}
}
