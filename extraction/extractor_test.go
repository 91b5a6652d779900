package extraction

import (
	"reflect"
	"testing"

	"github.com/liamcoop/courtextract/patterns"
)

func TestExtract_LiteralUsesLongestGroup(t *testing.T) {
	set := compileSet(t, ruleSet(
		literalRule("lit", "incident_date", `(incident|accident) date:?\s*(\d{4}-\d{2}-\d{2})`, 1),
	))

	text := "Accident date: 2023-06-01. Incident date 2023-07-02."
	got := set.Extract(text, "incident_date")

	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}
	if got[0].Raw != "2023-06-01" || got[1].Raw != "2023-07-02" {
		t.Errorf("raw values = %q, %q", got[0].Raw, got[1].Raw)
	}
	if text[got[0].Start:got[0].End] != got[0].Raw {
		t.Errorf("span does not point at raw value")
	}
	if got[0].Strategy != patterns.StrategyLiteral {
		t.Errorf("strategy = %s, want literal", got[0].Strategy)
	}
}

func TestExtract_LiteralWithoutGroupsUsesWholeMatch(t *testing.T) {
	set := compileSet(t, ruleSet(
		literalRule("lit", "incident_date", `\d{2}/\d{2}/\d{4}`, 1),
	))

	got := set.Extract("on 03/04/2022 and 05/06/2022", "incident_date")
	if len(got) != 2 || got[0].Raw != "03/04/2022" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
}

func TestExtract_ContextualWindow(t *testing.T) {
	set := compileSet(t, ruleSet(
		contextualRule("ctx", "incident_date", []string{"on or about"}, 30, 1),
	))

	text := "Plaintiff alleges that on or about   March 3, 2022 she fell. " +
		"Much later, in a separate paragraph far away from the anchor, 04/05/2022 appears."
	got := set.Extract(text, "incident_date")

	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1: %+v", len(got), got)
	}
	c := got[0]
	if c.Raw != "March 3, 2022" {
		t.Errorf("raw = %q, want %q", c.Raw, "March 3, 2022")
	}
	if c.Anchor != "on or about" {
		t.Errorf("anchor = %q", c.Anchor)
	}
	if c.Proximity <= 0.5 || c.Proximity > 1 {
		t.Errorf("proximity = %v, want (0.5,1]", c.Proximity)
	}
}

func TestExtract_ContextualAnchorIsCaseAndSpaceInsensitive(t *testing.T) {
	set := compileSet(t, ruleSet(
		contextualRule("ctx", "incident_date", []string{"date of loss"}, 40, 1),
	))

	got := set.Extract("DATE   OF\nLOSS: 01/02/2021", "incident_date")
	if len(got) != 1 || got[0].Raw != "01/02/2021" {
		t.Fatalf("unexpected candidates: %+v", got)
	}
}

func TestExtract_ContextualNearestAnchorWins(t *testing.T) {
	set := compileSet(t, ruleSet(
		contextualRule("ctx", "incident_date", []string{"incident", "occurred"}, 60, 1),
	))

	got := set.Extract("The incident occurred 02/02/2022.", "incident_date")
	if len(got) != 1 {
		t.Fatalf("expected one deduplicated candidate, got %d", len(got))
	}
	if got[0].Anchor != "occurred" {
		t.Errorf("anchor = %q, want occurred", got[0].Anchor)
	}
}

func TestExtract_FuzzyRecoversOCRDamage(t *testing.T) {
	set := compileSet(t, ruleSet(
		literalRule("lit", "incident_date", `incident date: (\d{2}/\d{2}/\d{4})`, 1),
		fuzzyRule("fz", "incident_date", `incident date: (\d{2}/\d{2}/\d{4})`, 1),
	))

	text := "INCIDENT DATE O3/l5/2O23"
	got := set.Extract(text, "incident_date")

	if len(got) != 1 {
		t.Fatalf("got %d candidates, want only the fuzzy one: %+v", len(got), got)
	}
	c := got[0]
	if c.Strategy != patterns.StrategyFuzzy {
		t.Errorf("strategy = %s, want fuzzy", c.Strategy)
	}
	if c.Raw != "03/15/2023" {
		t.Errorf("raw = %q, want normalized 03/15/2023", c.Raw)
	}
	if c.Source != "O3/l5/2O23" {
		t.Errorf("source = %q, want original characters", c.Source)
	}
}

func TestExtract_SpansSurviveUnusualBytes(t *testing.T) {
	set := compileSet(t, ruleSet(
		literalRule("lit", "incident_date", `incident date: (\d{2}/\d{2}/\d{4})`, 1),
		contextualRule("ctx", "incident_date", []string{"incident date"}, 20, 0.9),
		fuzzyRule("fz", "incident_date", `incident date: (\d{2}/\d{2}/\d{4})`, 0.8),
	))

	tests := []struct {
		name string
		text string
	}{
		{"invalid bytes before", "Header \xff\xfe\xf8 incident date: 03/01/2024"},
		{"invalid bytes around", "\xff\xff\xffincident date: 03/01/2024\xf8\xfe"},
		{"accented letters", "Müller v. Peña, incident date: 03/01/2024é"},
		{"dotted capital I", "İİİ İstanbul incident date: 03/01/2024İ"},
		{"mixed", "Ré\xffsumé İ\xfe incident date: 03/01/2024"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := set.Extract(tt.text, "incident_date")

			strategies := map[patterns.Strategy]bool{}
			for _, c := range got {
				strategies[c.Strategy] = true
				if c.Start < 0 || c.End > len(tt.text) || c.Start > c.End {
					t.Fatalf("%s span [%d,%d) outside text of %d bytes", c.Strategy, c.Start, c.End, len(tt.text))
				}
				if src := tt.text[c.Start:c.End]; src != "03/01/2024" {
					t.Errorf("%s span = %q, want 03/01/2024", c.Strategy, src)
				}
				if c.Raw != "03/01/2024" {
					t.Errorf("%s raw = %q", c.Strategy, c.Raw)
				}
			}
			for _, s := range patterns.Strategies {
				if !strategies[s] {
					t.Errorf("strategy %s produced no candidate", s)
				}
			}
		})
	}
}

func TestExtract_AllStrategiesRun(t *testing.T) {
	set := compileSet(t, ruleSet(
		literalRule("lit", "incident_date", `incident date: (\d{4}-\d{2}-\d{2})`, 1),
		contextualRule("ctx", "incident_date", []string{"incident date"}, 20, 0.9),
		fuzzyRule("fz", "incident_date", `incident date: (\d{4}-\d{2}-\d{2})`, 0.8),
	))

	got := set.Extract("incident date: 2024-03-01", "incident_date")

	strategies := map[patterns.Strategy]bool{}
	for _, c := range got {
		strategies[c.Strategy] = true
	}
	for _, s := range patterns.Strategies {
		if !strategies[s] {
			t.Errorf("strategy %s produced no candidate", s)
		}
	}
}

func TestExtract_OtherFieldsIgnored(t *testing.T) {
	set := compileSet(t, ruleSet(
		literalRule("lit", "incident_date", `\d{4}-\d{2}-\d{2}`, 1),
	))
	if got := set.Extract("2024-01-01", "incident_end_date"); len(got) != 0 {
		t.Errorf("expected no candidates for a field without rules, got %d", len(got))
	}
}

func TestExtract_IsPure(t *testing.T) {
	set := compileSet(t, ruleSet(
		literalRule("lit", "incident_date", `\d{4}-\d{2}-\d{2}`, 1),
		contextualRule("ctx", "incident_date", []string{"occurred"}, 50, 1),
		fuzzyRule("fz", "incident_date", `\d{2}/\d{2}/\d{4}`, 1),
	))
	text := "It occurred 2023-01-02, filed 01/O5/2023."

	first := set.Extract(text, "incident_date")
	second := set.Extract(text, "incident_date")
	if !reflect.DeepEqual(first, second) {
		t.Error("Extract returned different candidates for the same input")
	}
}

func TestExtract_FilingAdjacency(t *testing.T) {
	set := compileSet(t, ruleSet(
		literalRule("lit", "incident_date", `\d{4}-\d{2}-\d{2}`, 1),
	))

	text := "incident date: 2024-03-01 ... filed: 2024-03-01"
	got := set.Extract(text, "incident_date")
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2", len(got))
	}

	if got[0].FilingDominated {
		t.Error("first date sits after an incident anchor and should not be filing dominated")
	}
	if !got[0].IncidentAdjacent {
		t.Error("first date should be incident adjacent")
	}
	if !got[1].FilingDominated {
		t.Error("second date sits right after 'filed' and should be filing dominated")
	}
}

func TestAnchorExpression(t *testing.T) {
	tests := []struct {
		phrase string
		fuzzy  bool
		want   string
	}{
		{"on or about", false, `(?i)\bon\s+or\s+about\b`},
		{"date filed:", false, `(?i)\bdate\s+filed:`},
		{"date of loss", true, `(?i)\bdate\s*of\s*loss\b`},
	}
	for _, tt := range tests {
		if got := anchorExpression(tt.phrase, tt.fuzzy); got != tt.want {
			t.Errorf("anchorExpression(%q) = %q, want %q", tt.phrase, got, tt.want)
		}
	}
}
