package patterns

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	maxRulesPerSet    = 500
	maxAnchorsPerRule = 50
	maxIdentifierLen  = 100
)

var (
	fieldNamePattern    = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
	ruleIDPattern       = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.\-]*$`)
	jurisdictionPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report yaml names so errors point at the rule file keys.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks a rule set: struct constraints first, then the
// strategy-specific payload of every rule. All problems are reported together.
func Validate(set *RuleSet) error {
	if set == nil {
		return errors.New("rule set is nil")
	}

	var problems []string

	if err := validate.Struct(set); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				problems = append(problems, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
		} else {
			problems = append(problems, err.Error())
		}
	}

	if err := validateJurisdiction(NormalizeJurisdiction(set.Jurisdiction)); err != nil {
		problems = append(problems, fmt.Sprintf("invalid jurisdiction %q: %v", set.Jurisdiction, err))
	}

	if len(set.Rules) > maxRulesPerSet {
		problems = append(problems, fmt.Sprintf("rule set contains %d rules, maximum allowed is %d", len(set.Rules), maxRulesPerSet))
	}

	for field := range set.Fields {
		if err := validateFieldName(field); err != nil {
			problems = append(problems, fmt.Sprintf("invalid field name %q in fields: %v", field, err))
		}
	}

	seen := make(map[string]bool, len(set.Rules))
	for i, rule := range set.Rules {
		if seen[rule.ID] {
			problems = append(problems, fmt.Sprintf("duplicate rule id %q", rule.ID))
		}
		seen[rule.ID] = true

		if err := ValidateRule(rule); err != nil {
			problems = append(problems, fmt.Sprintf("rule %d (%s): %v", i, rule.ID, err))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid rule set: %s", strings.Join(problems, "; "))
	}
	return nil
}

// ValidateRule checks the identifiers and pattern payload of one rule.
// Struct tags are checked by Validate.
func ValidateRule(rule PatternRule) error {
	if err := validateRuleID(rule.ID); err != nil {
		return fmt.Errorf("invalid id: %w", err)
	}
	if err := validateFieldName(rule.Field); err != nil {
		return fmt.Errorf("invalid field %q: %w", rule.Field, err)
	}

	p := rule.Pattern
	switch rule.Strategy {
	case StrategyLiteral:
		if strings.TrimSpace(p.Expression) == "" {
			return fmt.Errorf("literal strategy requires an expression")
		}
	case StrategyContextual:
		if len(p.Anchors) == 0 {
			return fmt.Errorf("contextual strategy requires at least one anchor")
		}
	case StrategyFuzzy:
		if strings.TrimSpace(p.Expression) == "" && len(p.Anchors) == 0 {
			return fmt.Errorf("fuzzy strategy requires an expression or anchors")
		}
	default:
		return fmt.Errorf("unknown strategy %q (must be one of: literal, contextual, fuzzy)", rule.Strategy)
	}

	if len(p.Anchors) > maxAnchorsPerRule {
		return fmt.Errorf("rule has %d anchors, maximum allowed is %d", len(p.Anchors), maxAnchorsPerRule)
	}
	for _, anchor := range p.Anchors {
		if strings.TrimSpace(anchor) == "" {
			return fmt.Errorf("anchors cannot be blank")
		}
	}
	if p.Window < 0 || p.Window > MaxWindow {
		return fmt.Errorf("window %d out of range 0..%d", p.Window, MaxWindow)
	}
	if p.Expression != "" {
		if _, err := regexp.Compile(p.Expression); err != nil {
			return fmt.Errorf("expression does not compile: %w", err)
		}
	}
	if rule.Priority <= 0 {
		return fmt.Errorf("priority must be positive, got %v", rule.Priority)
	}

	return nil
}

func validateFieldName(name string) error {
	if err := checkLength(name); err != nil {
		return err
	}
	if !fieldNamePattern.MatchString(name) {
		return fmt.Errorf("must match pattern %s", fieldNamePattern)
	}
	return nil
}

func validateRuleID(id string) error {
	if err := checkLength(id); err != nil {
		return err
	}
	if !ruleIDPattern.MatchString(id) {
		return fmt.Errorf("must match pattern %s", ruleIDPattern)
	}
	return nil
}

func validateJurisdiction(name string) error {
	if err := checkLength(name); err != nil {
		return err
	}
	if !jurisdictionPattern.MatchString(name) {
		return fmt.Errorf("must match pattern %s", jurisdictionPattern)
	}
	return nil
}

func checkLength(s string) error {
	if len(s) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(s) > maxIdentifierLen {
		return fmt.Errorf("identifier length %d exceeds maximum of %d characters", len(s), maxIdentifierLen)
	}
	return nil
}
