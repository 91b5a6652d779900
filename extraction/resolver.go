package extraction

import (
	"fmt"
	"math"
	"sort"

	"github.com/liamcoop/courtextract/patterns"
)

const (
	filingPenalty    = 0.5
	ambiguityPenalty = 0.25
	scoreEpsilon     = 1e-9
)

// Status is the outcome of resolving one field.
type Status string

const (
	StatusFound     Status = "found"
	StatusNotFound  Status = "not_found"
	StatusAmbiguous Status = "ambiguous"
)

// Metadata is what is known about a document apart from its text.
type Metadata struct {
	CaseID       string `json:"case_id,omitempty"`
	DocumentType string `json:"document_type,omitempty"`
	FilingDate   *Date  `json:"filing_date,omitempty"`
}

// ScoredCandidate is a candidate that passed validation, with its parsed
// value, final score and the adjustments that produced it.
type ScoredCandidate struct {
	Candidate
	Value       Date     `json:"value"`
	Score       float64  `json:"score"`
	Adjustments []string `json:"adjustments,omitempty"`
}

// Rejection is a candidate dropped by validation and why.
type Rejection struct {
	Candidate Candidate `json:"candidate"`
	Reason    string    `json:"reason"`
}

// Resolution is the decision for one field with its full provenance.
type Resolution struct {
	Field    string            `json:"field"`
	Status   Status            `json:"status"`
	Value    *Date             `json:"value"`
	Winner   *ScoredCandidate  `json:"winner,omitempty"`
	Ranked   []ScoredCandidate `json:"ranked"`
	Rejected []Rejection       `json:"rejected"`
	Reason   string            `json:"reason,omitempty"`
}

// Found reports whether the field has a value.
func (r Resolution) Found() bool {
	return r.Status == StatusFound && r.Value != nil
}

// Resolver validates, scores and ranks candidates under one rule set.
type Resolver struct {
	set   *CompiledRuleSet
	today Date
}

func NewResolver(set *CompiledRuleSet, today Date) *Resolver {
	return &Resolver{set: set, today: today}
}

// Resolve picks the best value for field. It never fails: a field without a
// usable candidate resolves to not_found, and every dropped candidate is
// reported with a reason.
func (r *Resolver) Resolve(field string, candidates []Candidate, meta Metadata) Resolution {
	res := Resolution{
		Field:    field,
		Status:   StatusNotFound,
		Ranked:   []ScoredCandidate{},
		Rejected: []Rejection{},
	}

	reference := r.today
	if meta.FilingDate != nil && meta.FilingDate.Before(reference) {
		reference = *meta.FilingDate
	}
	minYear := r.set.Set.EffectiveMinYear()

	for _, c := range candidates {
		sc, reason := r.score(c, reference, minYear, meta)
		if reason != "" {
			res.Rejected = append(res.Rejected, Rejection{Candidate: c, Reason: reason})
			continue
		}
		res.Ranked = append(res.Ranked, sc)
	}

	applyAmbiguityPenalty(res.Ranked)
	rank(res.Ranked)

	if len(res.Ranked) == 0 {
		if len(candidates) == 0 {
			res.Reason = "no candidates"
		} else {
			res.Reason = "no valid candidates"
		}
		return res
	}

	top := res.Ranked[0]
	for _, other := range res.Ranked[1:] {
		if math.Abs(other.Score-top.Score) > scoreEpsilon {
			break
		}
		if other.Value == top.Value {
			continue
		}
		if r.set.Set.PolicyFor(field) == patterns.PolicyStrict {
			res.Status = StatusAmbiguous
			res.Reason = fmt.Sprintf("tie between %s and %s", top.Value, other.Value)
			return res
		}
		res.Reason = "tie broken by first occurrence"
		break
	}

	winner := res.Ranked[0]
	value := winner.Value
	res.Status = StatusFound
	res.Value = &value
	res.Winner = &winner
	return res
}

// score parses and validates one candidate. A non-empty reason means the
// candidate is rejected.
func (r *Resolver) score(c Candidate, reference Date, minYear int, meta Metadata) (ScoredCandidate, string) {
	value, err := ParseDateText(c.Raw)
	if err != nil {
		return ScoredCandidate{}, fmt.Sprintf("unparsable: %v", err)
	}
	if value.After(reference) {
		return ScoredCandidate{}, fmt.Sprintf("after reference date %s", reference)
	}
	if value.Year < minYear {
		return ScoredCandidate{}, fmt.Sprintf("before minimum year %d", minYear)
	}

	if prog := r.set.conditionFor(c.RuleID); prog != nil {
		ok, err := evalCondition(prog, conditionFacts(c, value, reference))
		if err != nil {
			return ScoredCandidate{}, fmt.Sprintf("condition error: %v", err)
		}
		if !ok {
			return ScoredCandidate{}, "rejected by rule condition"
		}
	}

	sc := ScoredCandidate{Candidate: c, Value: value, Score: c.Confidence()}

	switch {
	case c.FilingDominated:
		sc.Score *= filingPenalty
		sc.Adjustments = append(sc.Adjustments, "nearest anchor is a filing anchor")
	case meta.FilingDate != nil && value == *meta.FilingDate && !c.IncidentAdjacent:
		sc.Score *= filingPenalty
		sc.Adjustments = append(sc.Adjustments, "equals filing date")
	}

	return sc, ""
}

// applyAmbiguityPenalty lowers candidates that an equally strong candidate
// from another strategy contradicts.
func applyAmbiguityPenalty(scored []ScoredCandidate) {
	base := make([]float64, len(scored))
	for i := range scored {
		base[i] = scored[i].Score
	}

	for i := range scored {
		for j := range scored {
			if i == j || scored[i].Value == scored[j].Value || scored[i].Strategy == scored[j].Strategy {
				continue
			}
			if math.Abs(base[i]-base[j]) <= scoreEpsilon {
				scored[i].Score -= ambiguityPenalty * base[i]
				scored[i].Adjustments = append(scored[i].Adjustments,
					fmt.Sprintf("contradicted by %s (%s)", scored[j].RuleID, scored[j].Value))
				break
			}
		}
	}
}

// rank orders by score, then earliest position, then rule declaration order.
func rank(scored []ScoredCandidate) {
	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if math.Abs(a.Score-b.Score) > scoreEpsilon {
			return a.Score > b.Score
		}
		if a.Start != b.Start {
			return a.Start < b.Start
		}
		return a.position < b.position
	})
}

// deriveEndDate finds the latest incident date strictly after the resolved
// start among candidates that are not dominated by filing anchors.
func deriveEndDate(start Resolution) Resolution {
	res := Resolution{
		Field:    patterns.FieldIncidentEndDate,
		Status:   StatusNotFound,
		Ranked:   []ScoredCandidate{},
		Rejected: []Rejection{},
	}
	if !start.Found() {
		res.Reason = "no incident date to derive from"
		return res
	}

	var latest *ScoredCandidate
	for i := range start.Ranked {
		c := start.Ranked[i]
		if c.FilingDominated || !c.Value.After(*start.Value) {
			continue
		}
		if latest == nil || c.Value.After(latest.Value) {
			latest = &start.Ranked[i]
		}
	}
	if latest == nil {
		res.Reason = "single incident date"
		return res
	}

	derived := *latest
	derived.Field = patterns.FieldIncidentEndDate
	derived.Strategy = StrategyDerived
	derived.Adjustments = append(append([]string(nil), latest.Adjustments...),
		fmt.Sprintf("latest incident date after %s", start.Value))

	value := derived.Value
	res.Status = StatusFound
	res.Value = &value
	res.Winner = &derived
	res.Ranked = []ScoredCandidate{derived}
	return res
}
