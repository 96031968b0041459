package engine

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/becomeliminal/salesdesk/core"
)

// RuleConfig is one extension routing rule as it appears in configuration:
//
//	router:
//	  rules:
//	    - name: renewals
//	      expr: 'has(input.contract_id) && input.renewal == true'
//	      task: renewal_review
type RuleConfig struct {
	Name string `mapstructure:"name" json:"name"`
	Expr string `mapstructure:"expr" json:"expr"`
	Task string `mapstructure:"task" json:"task"`
}

// Rule is a compiled extension rule. Expressions see the payload as the
// variable input of type map(string, dyn) and must yield a bool.
type Rule struct {
	Name string
	Task core.TaskType
	Expr string

	prg cel.Program
}

// CompileRules compiles rules in order. Any invalid rule fails the whole set.
func CompileRules(cfgs []RuleConfig) ([]Rule, error) {
	if len(cfgs) == 0 {
		return nil, nil
	}

	env, err := cel.NewEnv(
		cel.Variable("input", cel.MapType(cel.StringType, cel.DynType)),
	)
	if err != nil {
		return nil, fmt.Errorf("create cel env: %w", err)
	}

	rules := make([]Rule, 0, len(cfgs))
	for i, c := range cfgs {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("rule[%d]", i)
		}
		if c.Task == "" {
			return nil, fmt.Errorf("%w: %s: task is required", ErrInvalidRule, name)
		}

		ast, iss := env.Compile(c.Expr)
		if iss.Err() != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRule, name, iss.Err())
		}
		if out := ast.OutputType(); !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
			return nil, fmt.Errorf("%w: %s: expression yields %s, want bool", ErrInvalidRule, name, out)
		}

		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidRule, name, err)
		}

		rules = append(rules, Rule{
			Name: name,
			Task: core.TaskType(c.Task),
			Expr: c.Expr,
			prg:  prg,
		})
	}
	return rules, nil
}

// Match evaluates the rule against in. Missing fields and non-bool results
// are reported as errors.
func (r Rule) Match(in core.Input) (bool, error) {
	out, _, err := r.prg.Eval(map[string]any{"input": map[string]any(in)})
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("rule %s yielded %T, want bool", r.Name, out.Value())
	}
	return b, nil
}
