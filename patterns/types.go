package patterns

import (
	"sort"
	"strings"
	"time"
)

// Strategy names one of the fixed candidate-finding techniques.
type Strategy string

const (
	StrategyLiteral    Strategy = "literal"
	StrategyContextual Strategy = "contextual"
	StrategyFuzzy      Strategy = "fuzzy"
)

// Strategies lists every strategy in evaluation order.
var Strategies = []Strategy{StrategyLiteral, StrategyContextual, StrategyFuzzy}

// Policy decides how an exact scoring tie between disagreeing values is broken.
type Policy string

const (
	// PolicyFirstOccurrence picks the candidate found earliest in the text.
	PolicyFirstOccurrence Policy = "first_occurrence"
	// PolicyStrict reports the field as not found.
	PolicyStrict Policy = "strict"
)

// Well-known field names.
const (
	FieldIncidentDate    = "incident_date"
	FieldIncidentEndDate = "incident_end_date"
)

const (
	DefaultMinYear = 1900
	DefaultWindow  = 250
	MaxWindow      = 5000
)

// DefaultFilingAnchors are used when a rule set declares none.
var DefaultFilingAnchors = []string{"filed", "filing date", "date filed", "electronically filed"}

// DefaultIncidentAnchors are used when a rule set declares none.
var DefaultIncidentAnchors = []string{"on or about", "occurred", "happened", "incident", "accident", "collision"}

// Pattern is the strategy-specific payload of a rule.
type Pattern struct {
	// Expression is a regular expression. For contextual rules it is
	// optional and defaults to the built-in date grammar.
	Expression string   `yaml:"expression,omitempty" json:"expression,omitempty"`
	Anchors    []string `yaml:"anchors,omitempty" json:"anchors,omitempty" validate:"omitempty,dive,required"`
	// Window is the number of characters searched on each side of an anchor.
	Window int `yaml:"window,omitempty" json:"window,omitempty" validate:"gte=0,lte=5000"`
}

// PatternRule is one configured way of finding a field's value.
type PatternRule struct {
	ID           string   `yaml:"id" json:"id" validate:"required,max=100"`
	Jurisdiction string   `yaml:"-" json:"jurisdiction"`
	Field        string   `yaml:"field" json:"field" validate:"required"`
	Strategy     Strategy `yaml:"strategy" json:"strategy" validate:"required,oneof=literal contextual fuzzy"`
	Pattern      Pattern  `yaml:"pattern" json:"pattern"`
	Priority     float64  `yaml:"priority" json:"priority" validate:"gt=0,lte=10"`
	// Condition is an optional CEL guard evaluated against each candidate.
	Condition string `yaml:"condition,omitempty" json:"condition,omitempty"`
	// Position is the declaration order within the rule set.
	Position int `yaml:"-" json:"position"`
}

// WindowOrDefault returns the configured window or DefaultWindow.
func (r PatternRule) WindowOrDefault() int {
	if r.Pattern.Window > 0 {
		return r.Pattern.Window
	}
	return DefaultWindow
}

// FieldConfig holds per-field resolution settings.
type FieldConfig struct {
	Policy Policy `yaml:"policy" json:"policy" validate:"omitempty,oneof=first_occurrence strict"`
}

// RuleSet is the immutable set of rules for one jurisdiction.
type RuleSet struct {
	Jurisdiction    string                 `yaml:"jurisdiction" json:"jurisdiction" validate:"required"`
	MinYear         int                    `yaml:"min_year,omitempty" json:"min_year,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	FilingAnchors   []string               `yaml:"filing_anchors,omitempty" json:"filing_anchors,omitempty" validate:"omitempty,dive,required"`
	IncidentAnchors []string               `yaml:"incident_anchors,omitempty" json:"incident_anchors,omitempty" validate:"omitempty,dive,required"`
	Fields          map[string]FieldConfig `yaml:"fields,omitempty" json:"fields,omitempty" validate:"omitempty,dive"`
	Rules           []PatternRule          `yaml:"rules" json:"rules" validate:"required,min=1,dive"`
	LoadedAt        time.Time              `yaml:"-" json:"loaded_at"`
}

// RulesFor returns the rules of one field in priority order.
func (s *RuleSet) RulesFor(field string) []PatternRule {
	var out []PatternRule
	for _, r := range s.Rules {
		if r.Field == field {
			out = append(out, r)
		}
	}
	return out
}

// HasField reports whether any rule targets field.
func (s *RuleSet) HasField(field string) bool {
	for _, r := range s.Rules {
		if r.Field == field {
			return true
		}
	}
	return false
}

// PolicyFor returns the tie policy of a field, first_occurrence by default.
func (s *RuleSet) PolicyFor(field string) Policy {
	if cfg, ok := s.Fields[field]; ok && cfg.Policy != "" {
		return cfg.Policy
	}
	return PolicyFirstOccurrence
}

// EffectiveMinYear returns MinYear or DefaultMinYear.
func (s *RuleSet) EffectiveMinYear() int {
	if s.MinYear > 0 {
		return s.MinYear
	}
	return DefaultMinYear
}

// EffectiveFilingAnchors returns the configured filing anchors or the defaults.
func (s *RuleSet) EffectiveFilingAnchors() []string {
	if len(s.FilingAnchors) > 0 {
		return s.FilingAnchors
	}
	return DefaultFilingAnchors
}

// EffectiveIncidentAnchors returns the configured incident anchors or the defaults.
func (s *RuleSet) EffectiveIncidentAnchors() []string {
	if len(s.IncidentAnchors) > 0 {
		return s.IncidentAnchors
	}
	return DefaultIncidentAnchors
}

// Clone returns a deep copy so callers cannot mutate a stored set.
func (s *RuleSet) Clone() *RuleSet {
	out := *s
	out.FilingAnchors = append([]string(nil), s.FilingAnchors...)
	out.IncidentAnchors = append([]string(nil), s.IncidentAnchors...)
	if s.Fields != nil {
		out.Fields = make(map[string]FieldConfig, len(s.Fields))
		for k, v := range s.Fields {
			out.Fields[k] = v
		}
	}
	out.Rules = make([]PatternRule, len(s.Rules))
	for i, r := range s.Rules {
		r.Pattern.Anchors = append([]string(nil), r.Pattern.Anchors...)
		out.Rules[i] = r
	}
	return &out
}

// finalize stamps jurisdiction and position on every rule and orders the
// rules by priority, keeping declaration order among equal priorities.
func (s *RuleSet) finalize(loadedAt time.Time) {
	s.Jurisdiction = NormalizeJurisdiction(s.Jurisdiction)
	for i := range s.Rules {
		s.Rules[i].Jurisdiction = s.Jurisdiction
		s.Rules[i].Position = i
	}
	sort.SliceStable(s.Rules, func(i, j int) bool {
		return s.Rules[i].Priority > s.Rules[j].Priority
	})
	s.LoadedAt = loadedAt
}

// NormalizeJurisdiction lowercases and trims a jurisdiction name and joins
// its words with underscores, so "San Bernardino " becomes "san_bernardino".
func NormalizeJurisdiction(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), "_")
}
