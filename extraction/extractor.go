package extraction

import (
	"regexp"
	"sort"

	"github.com/liamcoop/courtextract/patterns"
)

const (
	// How far from a candidate an anchor still counts as adjacent.
	adjacencyBefore = 80
	adjacencyAfter  = 40
	// Anchors after a value are weaker evidence than anchors before it.
	trailingAnchorWeight = 3
)

// Extract runs every rule of field against text and returns all candidates
// in rule order. Every strategy runs; finding nothing is not an error. The
// result depends only on text and the compiled rules.
func (c *CompiledRuleSet) Extract(text, field string) []Candidate {
	var (
		out  []Candidate
		norm *normalizedText
	)

	for _, cr := range c.rulesFor(field) {
		var found []Candidate
		switch cr.rule.Strategy {
		case patterns.StrategyLiteral:
			found = matchLiteral(text, cr)
		case patterns.StrategyContextual:
			found = matchContextual(text, cr)
		case patterns.StrategyFuzzy:
			if norm == nil {
				n := normalizeForFuzzy(text)
				norm = &n
			}
			found = matchFuzzy(text, *norm, cr)
		}
		out = append(out, found...)
	}

	for i := range out {
		c.annotateAdjacency(text, &out[i])
	}
	return out
}

func newCandidate(cr compiledRule, raw, source string, start, end int) Candidate {
	return Candidate{
		Field:     cr.rule.Field,
		RuleID:    cr.rule.ID,
		Strategy:  cr.rule.Strategy,
		Raw:       raw,
		Source:    source,
		Start:     start,
		End:       end,
		Priority:  cr.rule.Priority,
		Proximity: 1,
		position:  cr.rule.Position,
	}
}

// bestGroup returns the span of the longest non-empty capture group, or the
// whole match when no group captured anything.
func bestGroup(loc []int) (int, int) {
	start, end := loc[0], loc[1]
	best := -1
	for g := 2; g+1 < len(loc); g += 2 {
		if loc[g] < 0 || loc[g+1] <= loc[g] {
			continue
		}
		if n := loc[g+1] - loc[g]; n > best {
			best = n
			start, end = loc[g], loc[g+1]
		}
	}
	return start, end
}

func matchLiteral(text string, cr compiledRule) []Candidate {
	var out []Candidate
	for _, loc := range cr.expr.FindAllStringSubmatchIndex(text, -1) {
		s, e := bestGroup(loc)
		out = append(out, newCandidate(cr, text[s:e], text[s:e], s, e))
	}
	return out
}

type windowMatch struct {
	start, end int
	anchor     string
	distance   int
}

// searchWindows finds expr matches within window characters of every anchor
// occurrence. A span reached from several anchors keeps its nearest anchor.
func searchWindows(text string, anchors []compiledAnchor, expr *regexp.Regexp, window int) []windowMatch {
	best := make(map[[2]int]windowMatch)

	for _, a := range anchors {
		for _, aloc := range a.re.FindAllStringIndex(text, -1) {
			ws := max(0, aloc[0]-window)
			we := min(len(text), aloc[1]+window)
			segment := text[ws:we]

			for _, loc := range expr.FindAllStringSubmatchIndex(segment, -1) {
				s, e := bestGroup(loc)
				s, e = s+ws, e+ws

				var dist int
				switch {
				case s >= aloc[1]:
					dist = s - aloc[1]
				case e <= aloc[0]:
					dist = aloc[0] - e
				}

				key := [2]int{s, e}
				if prev, ok := best[key]; !ok || dist < prev.distance {
					best[key] = windowMatch{start: s, end: e, anchor: a.phrase, distance: dist}
				}
			}
		}
	}

	out := make([]windowMatch, 0, len(best))
	for _, m := range best {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].start != out[j].start {
			return out[i].start < out[j].start
		}
		return out[i].end < out[j].end
	})
	return out
}

func proximity(distance, window int) float64 {
	if window <= 0 {
		return 1
	}
	p := 1 - 0.5*float64(distance)/float64(window)
	return max(0.5, min(1, p))
}

func matchContextual(text string, cr compiledRule) []Candidate {
	window := cr.rule.WindowOrDefault()
	matches := searchWindows(text, cr.anchors, cr.expr, window)

	out := make([]Candidate, 0, len(matches))
	for _, m := range matches {
		c := newCandidate(cr, text[m.start:m.end], text[m.start:m.end], m.start, m.end)
		c.Anchor = m.anchor
		c.Proximity = proximity(m.distance, window)
		out = append(out, c)
	}
	return out
}

// matchFuzzy applies the relaxed rule to normalized text. With anchors it
// searches windows like the contextual strategy, otherwise the whole text.
func matchFuzzy(text string, norm normalizedText, cr compiledRule) []Candidate {
	var out []Candidate

	emit := func(ns, ne int, anchor string, prox float64) {
		s, e := norm.sourceSpan(ns, ne)
		c := newCandidate(cr, norm.text[ns:ne], text[s:e], s, e)
		c.Anchor = anchor
		c.Proximity = prox
		out = append(out, c)
	}

	if len(cr.anchors) == 0 {
		for _, loc := range cr.expr.FindAllStringSubmatchIndex(norm.text, -1) {
			s, e := bestGroup(loc)
			emit(s, e, "", 1)
		}
		return out
	}

	window := cr.rule.WindowOrDefault()
	for _, m := range searchWindows(norm.text, cr.anchors, cr.expr, window) {
		emit(m.start, m.end, m.anchor, proximity(m.distance, window))
	}
	return out
}

// annotateAdjacency records which kinds of anchor sit next to the candidate.
func (c *CompiledRuleSet) annotateAdjacency(text string, cand *Candidate) {
	filing := anchorDistance(text, cand.Start, cand.End, c.filingAnchors)
	incident := anchorDistance(text, cand.Start, cand.End, c.incidentAnchors)

	cand.FilingAdjacent = filing >= 0
	cand.IncidentAdjacent = incident >= 0
	cand.FilingDominated = filing >= 0 && (incident < 0 || filing < incident)
}

// anchorDistance returns the weighted distance to the nearest anchor around
// [start,end), or -1 when none is close enough.
func anchorDistance(text string, start, end int, anchors []compiledAnchor) int {
	nearest := -1
	consider := func(d int) {
		if nearest < 0 || d < nearest {
			nearest = d
		}
	}

	bs := max(0, start-adjacencyBefore)
	before := text[bs:start]
	ae := min(len(text), end+adjacencyAfter)
	after := text[end:ae]

	for _, a := range anchors {
		if locs := a.re.FindAllStringIndex(before, -1); len(locs) > 0 {
			consider(len(before) - locs[len(locs)-1][1])
		}
		if loc := a.re.FindStringIndex(after); loc != nil {
			consider(loc[0] * trailingAnchorWeight)
		}
	}
	return nearest
}
