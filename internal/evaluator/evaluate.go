package evaluator

import (
	"fmt"

	"github.com/esungul/UniveralValidator/internal/hierarchy"
	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/rules"
)

// ReasonMissingTarget is the failure reason for a target that resolved to
// no value.
const ReasonMissingTarget = "missing target"

// Evaluate applies one rule to an order and the subscriber's asset tree.
//
// Evaluation never fails: a missing target, an ambiguous role, a runtime
// error in an expression and a plain mismatch are all outcomes. An upward
// role that meets any dangling parent fails even when other anchors
// resolve, and an ambiguous target is reported before the ref is looked
// at. The same inputs always produce the same outcome.
func Evaluate(order ir.Order, tree *hierarchy.Tree, rule rules.Rule) ir.RuleOutcome {
	out := ir.RuleOutcome{
		RuleID:      rule.ID,
		Description: rule.Description,
		Target:      rule.Target.Raw,
		Operator:    string(rule.Operator),
		Severity:    rule.Severity,
	}

	op, ok := operators[rule.Operator]
	if !ok {
		return fail(out, nil, fmt.Sprintf("unsupported operator %q", rule.Operator))
	}

	res, err := resolve(order, tree, rule.Target)
	if err != nil {
		return fail(out, nil, err.Error())
	}
	if len(res.broken) > 0 {
		return fail(out, nil, res.missingParent())
	}
	if len(res.candidates) == 0 {
		return missing(out, rule, ReasonMissingTarget)
	}

	single := rule.Quantifier == rules.QuantifierOne || rule.Quantifier == ""
	if single {
		if len(res.candidates) > 1 {
			out.Result = ir.ResultAmbiguous
			out.Reason = fmt.Sprintf("%s resolved to %d assets: %s", rule.Target.Raw, len(res.candidates), assetIDs(res.candidates))
			return out
		}
		if c := res.candidates[0]; c.value == nil {
			return missing(out, rule, fmt.Sprintf("%s (%s has no %s)", ReasonMissingTarget, c.source(), rule.Target.Field))
		}
	}

	var expected *candidate
	if needsExpected(rule) {
		exp, early, done := resolveExpected(order, tree, rule, out)
		if done {
			return early
		}
		expected = exp
	}

	if single {
		return apply(out, op, input{rule: rule, order: order, actual: res.candidates[0], expected: expected})
	}

	return quantified(out, op, rule, order, res, expected)
}

// EvaluateAll applies rules in order.
func EvaluateAll(order ir.Order, tree *hierarchy.Tree, rs []rules.Rule) []ir.RuleOutcome {
	outcomes := make([]ir.RuleOutcome, len(rs))
	for i, r := range rs {
		outcomes[i] = Evaluate(order, tree, r)
	}
	return outcomes
}

// resolveExpected resolves the rule's ref to exactly one value. When it
// cannot, it returns the finished outcome and done.
func resolveExpected(order ir.Order, tree *hierarchy.Tree, rule rules.Rule, out ir.RuleOutcome) (*candidate, ir.RuleOutcome, bool) {
	res, err := resolve(order, tree, *rule.Ref)
	if err != nil {
		return nil, fail(out, nil, err.Error()), true
	}
	if len(res.broken) > 0 {
		return nil, fail(out, nil, res.missingParent()), true
	}
	switch len(res.candidates) {
	case 0:
		return nil, fail(out, nil, "missing reference "+rule.Ref.Raw), true
	case 1:
		c := res.candidates[0]
		if c.value == nil {
			return nil, fail(out, nil, fmt.Sprintf("missing reference %s (%s has no %s)", rule.Ref.Raw, c.source(), rule.Ref.Field)), true
		}
		return &c, out, false
	default:
		out.Result = ir.ResultAmbiguous
		out.Reason = fmt.Sprintf("%s resolved to %d assets: %s", rule.Ref.Raw, len(res.candidates), assetIDs(res.candidates))
		return nil, out, true
	}
}

// quantified evaluates every candidate for any/all rules.
func quantified(out ir.RuleOutcome, op operator, rule rules.Rule, order ir.Order, res resolution, expected *candidate) ir.RuleOutcome {
	if len(res.present()) == 0 {
		return missing(out, rule, ReasonMissingTarget)
	}

	var first *ir.RuleOutcome
	for _, c := range res.candidates {
		var o ir.RuleOutcome
		if c.value == nil {
			o = fail(out, nil, fmt.Sprintf("%s has no %s", c.source(), rule.Target.Field))
		} else {
			o = apply(out, op, input{rule: rule, order: order, actual: c, expected: expected})
		}
		if first == nil {
			first = &o
		}

		switch rule.Quantifier {
		case rules.QuantifierAny:
			if o.Result == ir.ResultPass {
				return o
			}
		case rules.QuantifierAll:
			if o.Result != ir.ResultPass {
				return o
			}
		}
	}

	if rule.Quantifier == rules.QuantifierAny {
		return fail(out, nil, fmt.Sprintf("no value of %s passes (%d checked)", rule.Target.Raw, len(res.candidates)))
	}
	return *first
}

func apply(out ir.RuleOutcome, op operator, in input) ir.RuleOutcome {
	v, err := op(in)
	if err != nil {
		return fail(out, in.actual.value, err.Error())
	}
	out.Actual = in.actual.value
	if v.pass {
		out.Result = ir.ResultPass
		return out
	}
	reason := v.reason
	if src := in.actual.source(); src != "" {
		reason += " (" + src + ")"
	}
	return fail(out, in.actual.value, reason)
}

func fail(out ir.RuleOutcome, actual ir.Value, reason string) ir.RuleOutcome {
	out.Result = ir.ResultFail
	out.Actual = actual
	out.Reason = reason
	return out
}

// missing is the outcome of an unresolved target: not-applicable for
// optional rules, a failure otherwise.
func missing(out ir.RuleOutcome, rule rules.Rule, reason string) ir.RuleOutcome {
	out.Actual = nil
	out.Reason = reason
	if rule.Optional {
		out.Result = ir.ResultNotApplicable
		return out
	}
	out.Result = ir.ResultFail
	return out
}
