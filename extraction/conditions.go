package extraction

import (
	"fmt"

	"github.com/google/cel-go/cel"
)

// costLimit bounds the work a single condition may do per candidate.
const costLimit = 1000000

// ConditionCompiler compiles the optional CEL guards attached to rules.
// Guards see one variable, candidate, with the keys year, month, day, raw,
// strategy, field, rule_id, days_before_reference, filing_adjacent and
// incident_adjacent. A guard must produce a bool.
type ConditionCompiler struct {
	env *cel.Env
}

func NewConditionCompiler() (*ConditionCompiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("candidate", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %w", err)
	}
	return &ConditionCompiler{env: env}, nil
}

// Compile type-checks expression and returns a cost-limited program.
func (cc *ConditionCompiler) Compile(expression string) (cel.Program, error) {
	ast, issues := cc.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", issues.Err())
	}
	if ot := ast.OutputType(); !ot.IsExactType(cel.BoolType) && !ot.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("condition must return bool, got %s", ot)
	}

	prog, err := cc.env.Program(ast,
		cel.EvalOptions(cel.OptTrackState),
		cel.CostLimit(costLimit),
	)
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prog, nil
}

// conditionFacts builds the activation for one parsed candidate.
func conditionFacts(c Candidate, value, reference Date) map[string]any {
	return map[string]any{
		"candidate": map[string]any{
			"year":                  int64(value.Year),
			"month":                 int64(value.Month),
			"day":                   int64(value.Day),
			"raw":                   c.Raw,
			"strategy":              string(c.Strategy),
			"field":                 c.Field,
			"rule_id":               c.RuleID,
			"days_before_reference": int64(value.DaysUntil(reference)),
			"filing_adjacent":       c.FilingAdjacent,
			"incident_adjacent":     c.IncidentAdjacent,
		},
	}
}

// evalCondition reports whether the guard accepts the candidate. Non-bool
// results count as a rejection.
func evalCondition(prog cel.Program, facts map[string]any) (bool, error) {
	out, _, err := prog.Eval(facts)
	if err != nil {
		return false, err
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("condition returned %T, not bool", out.Value())
	}
	return matched, nil
}
