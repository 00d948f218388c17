package evaluator

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/rules"
)

// input is what an operator sees: the actual value and, for operators that
// compare against another target, the expected one.
type input struct {
	rule     rules.Rule
	order    ir.Order
	actual   candidate
	expected *candidate
}

// verdict is an operator's decision. reason explains a failure.
type verdict struct {
	pass   bool
	reason string
}

type operator func(in input) (verdict, error)

// operators is the closed dispatch table of rule operators.
var operators = map[rules.Operator]operator{
	rules.OpEquals:               opEquals,
	rules.OpNotEquals:            opNotEquals,
	rules.OpPresent:              opPresent,
	rules.OpMatchesPattern:       opMatchesPattern,
	rules.OpOneOf:                opOneOf,
	rules.OpNumericRange:         opNumericRange,
	rules.OpHierarchyConsistency: opHierarchyConsistency,
	rules.OpExpression:           opExpression,
	rules.OpLogic:                opLogic,
}

// needsExpected reports whether op compares against a resolved ref.
func needsExpected(r rules.Rule) bool {
	return r.Ref != nil && (r.Operator == rules.OpEquals ||
		r.Operator == rules.OpNotEquals ||
		r.Operator == rules.OpHierarchyConsistency)
}

func opEquals(in input) (verdict, error) {
	want := in.want()
	if equal(in.rule, in.actual.value, want) {
		return verdict{pass: true}, nil
	}
	return verdict{reason: fmt.Sprintf("expected %s, got %s", quote(want), quote(in.actual.value))}, nil
}

func opNotEquals(in input) (verdict, error) {
	want := in.want()
	if !equal(in.rule, in.actual.value, want) {
		return verdict{pass: true}, nil
	}
	return verdict{reason: fmt.Sprintf("value must not equal %s", quote(want))}, nil
}

func opPresent(in input) (verdict, error) {
	if !ir.IsEmpty(in.actual.value) {
		return verdict{pass: true}, nil
	}
	return verdict{reason: "value is empty"}, nil
}

func opMatchesPattern(in input) (verdict, error) {
	s := normalize(in.rule, ir.Text(in.actual.value))
	if in.rule.Pattern.MatchString(s) {
		return verdict{pass: true}, nil
	}
	return verdict{reason: fmt.Sprintf("%s does not match pattern %s", quote(in.actual.value), in.rule.Pattern)}, nil
}

func opOneOf(in input) (verdict, error) {
	for _, allowed := range in.rule.Values {
		if equal(in.rule, in.actual.value, allowed) {
			return verdict{pass: true}, nil
		}
	}
	allowed := make([]string, len(in.rule.Values))
	for i, v := range in.rule.Values {
		allowed[i] = quote(v)
	}
	return verdict{reason: fmt.Sprintf("%s is not one of [%s]", quote(in.actual.value), strings.Join(allowed, ", "))}, nil
}

func opNumericRange(in input) (verdict, error) {
	f, ok := ir.Float(in.actual.value)
	if !ok {
		return verdict{reason: fmt.Sprintf("%s is not numeric", quote(in.actual.value))}, nil
	}
	if in.rule.Min != nil && f < *in.rule.Min {
		return verdict{reason: fmt.Sprintf("%s is below minimum %s", ir.Text(ir.Number(f)), ir.Text(ir.Number(*in.rule.Min)))}, nil
	}
	if in.rule.Max != nil && f > *in.rule.Max {
		return verdict{reason: fmt.Sprintf("%s is above maximum %s", ir.Text(ir.Number(f)), ir.Text(ir.Number(*in.rule.Max)))}, nil
	}
	return verdict{pass: true}, nil
}

func opHierarchyConsistency(in input) (verdict, error) {
	want := in.want()
	if equal(in.rule, in.actual.value, want) {
		return verdict{pass: true}, nil
	}
	src := ""
	if in.expected != nil && in.expected.asset != nil {
		src = " (" + in.expected.source() + ")"
	}
	return verdict{reason: fmt.Sprintf("order has %s but hierarchy has %s%s", quote(in.actual.value), quote(want), src)}, nil
}

func opExpression(in input) (verdict, error) {
	ok, err := in.rule.EvalExpression(in.facts())
	if err != nil {
		return verdict{}, fmt.Errorf("expression error: %w", err)
	}
	if ok {
		return verdict{pass: true}, nil
	}
	return verdict{reason: fmt.Sprintf("expression %q is false for %s", in.rule.Expression, quote(in.actual.value))}, nil
}

func opLogic(in input) (verdict, error) {
	ok, err := in.rule.EvalLogic(in.facts())
	if err != nil {
		return verdict{}, fmt.Errorf("logic error: %w", err)
	}
	if ok {
		return verdict{pass: true}, nil
	}
	return verdict{reason: fmt.Sprintf("logic rule is false for %s", quote(in.actual.value))}, nil
}

// want is the expected operand: the resolved ref or the literal value.
func (in input) want() ir.Value {
	if in.expected != nil {
		return in.expected.value
	}
	return in.rule.Value
}

// facts is the data CEL and JSONLogic programs see.
func (in input) facts() map[string]any {
	asset := map[string]any{}
	if in.actual.asset != nil {
		asset = in.actual.asset.Facts()
	}
	return map[string]any{
		"value": ir.Native(in.actual.value),
		"order": in.order.Facts(),
		"asset": asset,
	}
}

// equal compares two values of the same kind. Numbers compare exactly,
// strings compare after the rule's normalization and values of different
// kinds are never equal: "1" does not equal 1 and "true" does not equal true.
func equal(r rules.Rule, a, b ir.Value) bool {
	if isNull(a) || isNull(b) {
		return isNull(a) && isNull(b)
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case ir.String:
		return normalize(r, string(av)) == normalize(r, ir.Text(b))
	case ir.Bool:
		return a == b
	}
	c, ok := ir.CompareNumbers(a, b)
	return ok && c == 0
}

// normalize applies the rule's normalizations in declaration order.
func normalize(r rules.Rule, s string) string {
	for _, n := range r.Normalize {
		switch n {
		case rules.NormalizeTrim:
			s = strings.TrimSpace(s)
		case rules.NormalizeCaseFold:
			s = cases.Fold().String(s)
		}
	}
	return s
}

func quote(v ir.Value) string {
	switch val := v.(type) {
	case nil, ir.Null:
		return "null"
	case ir.String:
		return fmt.Sprintf("%q", string(val))
	default:
		return ir.Text(v)
	}
}
