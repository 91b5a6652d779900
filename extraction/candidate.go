package extraction

import "github.com/liamcoop/courtextract/patterns"

// StrategyDerived marks values computed from other resolutions rather than
// matched in the text.
const StrategyDerived patterns.Strategy = "derived"

// Candidate is one potential value for a field, found by one rule.
type Candidate struct {
	Field    string            `json:"field"`
	RuleID   string            `json:"rule_id"`
	Strategy patterns.Strategy `json:"strategy"`
	// Raw is the text the value is parsed from. For fuzzy matches it is the
	// normalized text, while Source keeps the original characters.
	Raw    string `json:"raw"`
	Source string `json:"source"`
	Start  int    `json:"start"`
	End    int    `json:"end"`
	// Anchor is the anchor phrase that opened the search window, if any.
	Anchor    string  `json:"anchor,omitempty"`
	Priority  float64 `json:"priority"`
	Proximity float64 `json:"proximity"`

	FilingAdjacent   bool `json:"filing_adjacent"`
	IncidentAdjacent bool `json:"incident_adjacent"`
	// FilingDominated is set when the nearest anchor is a filing anchor.
	FilingDominated bool `json:"filing_dominated"`

	position int // rule position, for stable ordering
}

// Confidence is the candidate's base strength before validity adjustments.
func (c Candidate) Confidence() float64 {
	return c.Priority * specificity(c.Strategy) * c.Proximity
}

// specificity ranks strategies: an exact literal match says more than a
// windowed search, which says more than a normalized one.
func specificity(s patterns.Strategy) float64 {
	switch s {
	case patterns.StrategyLiteral:
		return 1.0
	case patterns.StrategyContextual:
		return 0.85
	case patterns.StrategyFuzzy:
		return 0.7
	default:
		return 0.5
	}
}
