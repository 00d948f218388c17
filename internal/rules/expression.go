package rules

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/diegoholiveira/jsonlogic/v3"
	"github.com/google/cel-go/cel"
)

// ExpressionCostLimit bounds the work a single CEL program may do.
const ExpressionCostLimit = 100000

var (
	celEnvOnce sync.Once
	celEnv     *cel.Env
	celEnvErr  error
)

// expressionEnv declares the facts every expression can see: the resolved
// target value, the order's fields and the fields of the asset the value
// was read from (empty for order and literal targets).
func expressionEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = cel.NewEnv(
			cel.Variable("value", cel.DynType),
			cel.Variable("order", cel.MapType(cel.StringType, cel.DynType)),
			cel.Variable("asset", cel.MapType(cel.StringType, cel.DynType)),
		)
	})
	return celEnv, celEnvErr
}

func compileExpression(expr string) (cel.Program, error) {
	env, err := expressionEnv()
	if err != nil {
		return nil, fmt.Errorf("expression environment: %w", err)
	}
	ast, iss := env.Compile(expr)
	if iss != nil && iss.Err() != nil {
		return nil, fmt.Errorf("compile error: %w", iss.Err())
	}
	out := ast.OutputType()
	if !out.IsExactType(cel.BoolType) && !out.IsExactType(cel.DynType) {
		return nil, fmt.Errorf("expression must evaluate to bool, got %s", out)
	}
	prg, err := env.Program(ast, cel.CostLimit(ExpressionCostLimit))
	if err != nil {
		return nil, fmt.Errorf("program creation error: %w", err)
	}
	return prg, nil
}

// EvalExpression runs the rule's CEL program against facts. A non-bool
// result is an error.
func (r Rule) EvalExpression(facts map[string]any) (bool, error) {
	if r.program == nil {
		return false, errors.New("rule has no compiled expression")
	}
	out, _, err := r.program.Eval(facts)
	if err != nil {
		return false, err
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression returned %T, want bool", out.Value())
	}
	return b, nil
}

func validateLogic(logic json.RawMessage) error {
	if !json.Valid(logic) {
		return errors.New("logic is not valid JSON")
	}
	if !jsonlogic.IsValid(bytes.NewReader(logic)) {
		return errors.New("logic is not a valid JSONLogic rule")
	}
	return nil
}

// EvalLogic applies the rule's JSONLogic rule to facts and reports whether
// the result is truthy.
func (r Rule) EvalLogic(facts map[string]any) (bool, error) {
	if len(r.Logic) == 0 {
		return false, errors.New("rule has no logic")
	}
	data, err := json.Marshal(facts)
	if err != nil {
		return false, fmt.Errorf("encode facts: %w", err)
	}

	var result bytes.Buffer
	if err := jsonlogic.Apply(bytes.NewReader(r.Logic), bytes.NewReader(data), &result); err != nil {
		return false, err
	}

	var out any
	if err := json.Unmarshal(bytes.TrimSpace(result.Bytes()), &out); err != nil {
		return false, fmt.Errorf("decode logic result: %w", err)
	}
	return truthy(out), nil
}

// truthy follows JSONLogic truthiness.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case float64:
		return val != 0
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	default:
		return true
	}
}
