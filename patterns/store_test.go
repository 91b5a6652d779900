package patterns

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/liamcoop/courtextract/internal/apperr"
)

func TestPatternStoreImplementations(t *testing.T) {
	var _ PatternStore = (*InMemoryPatternStore)(nil)
	var _ PatternStore = (*FileStore)(nil)
	var _ PatternStore = (*PostgresStore)(nil)
}

func TestInMemoryPatternStore_Load(t *testing.T) {
	store, err := NewInMemoryPatternStore(validSet())
	if err != nil {
		t.Fatalf("NewInMemoryPatternStore() failed: %v", err)
	}

	set, err := store.Load(context.Background(), "Orange")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if set.Jurisdiction != "orange" {
		t.Errorf("Jurisdiction = %q, want orange", set.Jurisdiction)
	}
	for _, r := range set.Rules {
		if r.Jurisdiction != "orange" {
			t.Errorf("rule %s jurisdiction = %q, want orange", r.ID, r.Jurisdiction)
		}
	}
}

func TestInMemoryPatternStore_UnknownJurisdiction(t *testing.T) {
	store, _ := NewInMemoryPatternStore(validSet())

	_, err := store.Load(context.Background(), "kern")
	if !apperr.IsConfiguration(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestInMemoryPatternStore_InvalidSetRejected(t *testing.T) {
	set := validSet()
	set.Rules[0].Strategy = "semantic"

	_, err := NewInMemoryPatternStore(set)
	if !apperr.IsConfiguration(err) {
		t.Fatalf("expected ConfigurationError, got %v", err)
	}
}

func TestInMemoryPatternStore_LoadReturnsCopy(t *testing.T) {
	store, _ := NewInMemoryPatternStore(validSet())
	ctx := context.Background()

	first, _ := store.Load(ctx, "orange")
	first.Rules[0].Priority = 99
	first.Rules[1].Pattern.Anchors[0] = "mutated"

	second, _ := store.Load(ctx, "orange")
	if second.Rules[0].Priority == 99 {
		t.Error("mutating a loaded set changed the stored priority")
	}
	for _, r := range second.Rules {
		for _, a := range r.Pattern.Anchors {
			if a == "mutated" {
				t.Error("mutating a loaded set changed stored anchors")
			}
		}
	}
}

func TestRuleSet_PriorityOrdering(t *testing.T) {
	set := validSet()
	set.Rules = append(set.Rules,
		PatternRule{ID: "low", Field: FieldIncidentDate, Strategy: StrategyLiteral, Priority: 0.2, Pattern: Pattern{Expression: "x"}},
		PatternRule{ID: "high", Field: FieldIncidentDate, Strategy: StrategyLiteral, Priority: 2, Pattern: Pattern{Expression: "y"}},
		PatternRule{ID: "tied", Field: FieldIncidentDate, Strategy: StrategyLiteral, Priority: 1, Pattern: Pattern{Expression: "z"}},
	)

	store, err := NewInMemoryPatternStore(set)
	if err != nil {
		t.Fatalf("NewInMemoryPatternStore() failed: %v", err)
	}
	loaded, _ := store.Load(context.Background(), "orange")

	var ids []string
	for _, r := range loaded.RulesFor(FieldIncidentDate) {
		ids = append(ids, r.ID)
	}
	want := "high,orange-incident-literal,tied,orange-incident-context,low"
	if got := strings.Join(ids, ","); got != want {
		t.Errorf("rule order = %s, want %s", got, want)
	}
}

func TestRuleSet_Defaults(t *testing.T) {
	set := validSet()
	if set.PolicyFor(FieldIncidentDate) != PolicyFirstOccurrence {
		t.Errorf("default policy = %s, want first_occurrence", set.PolicyFor(FieldIncidentDate))
	}
	if set.EffectiveMinYear() != DefaultMinYear {
		t.Errorf("EffectiveMinYear() = %d, want %d", set.EffectiveMinYear(), DefaultMinYear)
	}
	if len(set.EffectiveFilingAnchors()) == 0 || len(set.EffectiveIncidentAnchors()) == 0 {
		t.Error("expected default anchors")
	}

	set.Fields = map[string]FieldConfig{FieldIncidentEndDate: {Policy: PolicyStrict}}
	if set.PolicyFor(FieldIncidentEndDate) != PolicyStrict {
		t.Error("expected strict policy for incident_end_date")
	}
}

const orangeYAML = `
jurisdiction: orange
min_year: 1950
filing_anchors: ["filed", "date filed"]
fields:
  incident_date:
    policy: first_occurrence
rules:
  - id: orange-incident-literal
    field: incident_date
    strategy: literal
    priority: 1.0
    pattern:
      expression: 'incident date:?\s*(\d{4}-\d{2}-\d{2})'
  - id: orange-incident-context
    field: incident_date
    strategy: contextual
    priority: 0.8
    pattern:
      anchors: ["on or about"]
      window: 80
`

func writeRuleFile(t *testing.T, dir, name, body string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
}

func TestFileStore_Load(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "orange.yaml", orangeYAML)

	store := NewFileStore(dir)
	set, err := store.Load(context.Background(), "orange")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if set.MinYear != 1950 {
		t.Errorf("MinYear = %d, want 1950", set.MinYear)
	}
	if len(set.Rules) != 2 {
		t.Fatalf("len(Rules) = %d, want 2", len(set.Rules))
	}
	if set.Rules[1].WindowOrDefault() != 80 {
		t.Errorf("window = %d, want 80", set.Rules[1].WindowOrDefault())
	}
}

func TestFileStore_Errors(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "kern.yml", "jurisdiction: kern\nrules: []\n")
	writeRuleFile(t, dir, "tulare.yaml", "jurisdiction: tulare\nbogus_key: 1\nrules: []\n")
	writeRuleFile(t, dir, "fresno.yaml", strings.Replace(orangeYAML, "jurisdiction: orange", "jurisdiction: orange", 1))

	store := NewFileStore(dir)
	ctx := context.Background()

	tests := []struct {
		jurisdiction string
		wantReason   string
	}{
		{"riverside", "no rule set"},
		{"kern", "invalid rule set"},
		{"tulare", "cannot parse"},
		{"fresno", "declares jurisdiction"},
		{"../etc", "invalid jurisdiction"},
	}
	for _, tt := range tests {
		_, err := store.Load(ctx, tt.jurisdiction)
		if !apperr.IsConfiguration(err) {
			t.Errorf("Load(%s): expected ConfigurationError, got %v", tt.jurisdiction, err)
			continue
		}
		if !strings.Contains(err.Error(), tt.wantReason) {
			t.Errorf("Load(%s): expected %q in %v", tt.jurisdiction, tt.wantReason, err)
		}
	}
}

func TestFileStore_List(t *testing.T) {
	dir := t.TempDir()
	writeRuleFile(t, dir, "orange.yaml", orangeYAML)
	writeRuleFile(t, dir, "kern.yml", "jurisdiction: kern\n")
	writeRuleFile(t, dir, "README.md", "not a rule file")

	got, err := NewFileStore(dir).List(context.Background())
	if err != nil {
		t.Fatalf("List() failed: %v", err)
	}
	if strings.Join(got, ",") != "kern,orange" {
		t.Errorf("List() = %v, want [kern orange]", got)
	}
}
