package extraction

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/cel-go/cel"
	"github.com/liamcoop/courtextract/internal/apperr"
	"github.com/liamcoop/courtextract/patterns"
)

type compiledRule struct {
	rule      patterns.PatternRule
	expr      *regexp.Regexp
	anchors   []compiledAnchor
	condition cel.Program
}

type compiledAnchor struct {
	phrase string
	re     *regexp.Regexp
}

// CompiledRuleSet is a rule set with every expression, anchor and condition
// compiled. It is immutable and shared by concurrent extractions.
type CompiledRuleSet struct {
	Set        *patterns.RuleSet
	CompiledAt time.Time

	rules           []compiledRule
	filingAnchors   []compiledAnchor
	incidentAnchors []compiledAnchor
}

// Jurisdiction returns the jurisdiction of the underlying rule set.
func (c *CompiledRuleSet) Jurisdiction() string {
	return c.Set.Jurisdiction
}

func (c *CompiledRuleSet) rulesFor(field string) []compiledRule {
	var out []compiledRule
	for _, r := range c.rules {
		if r.rule.Field == field {
			out = append(out, r)
		}
	}
	return out
}

func (c *CompiledRuleSet) conditionFor(ruleID string) cel.Program {
	for _, r := range c.rules {
		if r.rule.ID == ruleID {
			return r.condition
		}
	}
	return nil
}

// Compile turns a validated rule set into its executable form. Any failure
// is a ConfigurationError naming the offending rule.
func Compile(set *patterns.RuleSet, conditions *ConditionCompiler) (*CompiledRuleSet, error) {
	out := &CompiledRuleSet{
		Set:        set,
		CompiledAt: time.Now(),
		rules:      make([]compiledRule, 0, len(set.Rules)),
	}

	fail := func(ruleID string, err error) error {
		return &apperr.ConfigurationError{
			Jurisdiction: set.Jurisdiction,
			Reason:       fmt.Sprintf("rule %s does not compile", ruleID),
			Cause:        err,
		}
	}

	for _, rule := range set.Rules {
		cr, err := compileRule(rule, conditions)
		if err != nil {
			return nil, fail(rule.ID, err)
		}
		out.rules = append(out.rules, cr)
	}

	var err error
	if out.filingAnchors, err = compileAnchors(set.EffectiveFilingAnchors(), false); err != nil {
		return nil, fail("filing_anchors", err)
	}
	if out.incidentAnchors, err = compileAnchors(set.EffectiveIncidentAnchors(), false); err != nil {
		return nil, fail("incident_anchors", err)
	}

	return out, nil
}

func compileRule(rule patterns.PatternRule, conditions *ConditionCompiler) (compiledRule, error) {
	cr := compiledRule{rule: rule}
	fuzzy := rule.Strategy == patterns.StrategyFuzzy

	expr := rule.Pattern.Expression
	if expr == "" {
		expr = DateGrammar
	}
	if fuzzy {
		expr = relaxExpression(expr)
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		return cr, fmt.Errorf("expression: %w", err)
	}
	cr.expr = re

	if cr.anchors, err = compileAnchors(rule.Pattern.Anchors, fuzzy); err != nil {
		return cr, err
	}

	if rule.Condition != "" {
		if conditions == nil {
			return cr, fmt.Errorf("condition given but no condition compiler configured")
		}
		prog, err := conditions.Compile(rule.Condition)
		if err != nil {
			return cr, fmt.Errorf("condition: %w", err)
		}
		cr.condition = prog
	}

	return cr, nil
}

func compileAnchors(phrases []string, fuzzy bool) ([]compiledAnchor, error) {
	out := make([]compiledAnchor, 0, len(phrases))
	for _, p := range phrases {
		re, err := regexp.Compile(anchorExpression(p, fuzzy))
		if err != nil {
			return nil, fmt.Errorf("anchor %q: %w", p, err)
		}
		out = append(out, compiledAnchor{phrase: p, re: re})
	}
	return out, nil
}

// anchorExpression matches an anchor phrase case-insensitively with any run
// of whitespace between its words. Fuzzy anchors also tolerate missing spaces.
func anchorExpression(phrase string, fuzzy bool) string {
	words := strings.Fields(phrase)
	for i, w := range words {
		words[i] = regexp.QuoteMeta(w)
	}
	sep := `\s+`
	if fuzzy {
		sep = `\s*`
	}
	body := strings.Join(words, sep)

	trimmed := strings.TrimSpace(phrase)
	if r := []rune(trimmed); len(r) > 0 {
		if isWordRune(r[0]) {
			body = `\b` + body
		}
		if isWordRune(r[len(r)-1]) {
			body += `\b`
		}
	}
	return "(?i)" + body
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
