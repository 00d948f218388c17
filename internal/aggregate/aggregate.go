package aggregate

import (
	"math"
	"slices"

	"github.com/esungul/UniveralValidator/internal/ir"
)

// Reduce derives the overall status from rule outcomes. Precedence, first
// match wins:
//
//  1. any blocking fail                 -> fail
//  2. any blocking ambiguous            -> fail
//  3. any advisory fail or ambiguous    -> pass-with-warnings
//  4. every outcome not-applicable      -> not-validated
//  5. otherwise                         -> pass
//
// No outcomes at all is not-validated. The status depends only on the
// multiset of outcomes, never on their order.
func Reduce(outcomes []ir.RuleOutcome) ir.Status {
	var blockingFail, blockingAmbiguous, advisory bool
	applicable := 0
	for _, o := range outcomes {
		switch o.Result {
		case ir.ResultFail:
			if o.Severity == ir.SeverityAdvisory {
				advisory = true
			} else {
				blockingFail = true
			}
		case ir.ResultAmbiguous:
			if o.Severity == ir.SeverityAdvisory {
				advisory = true
			} else {
				blockingAmbiguous = true
			}
		}
		if o.Result != ir.ResultNotApplicable {
			applicable++
		}
	}

	switch {
	case blockingFail, blockingAmbiguous:
		return ir.StatusFail
	case advisory:
		return ir.StatusPassWithWarnings
	case applicable == 0:
		return ir.StatusNotValidated
	default:
		return ir.StatusPass
	}
}

// Count tallies outcomes. Failed counts blocking fails and ambiguities,
// Warnings the advisory ones. SuccessRate is passed over applicable
// outcomes as a percentage, rounded to two decimals.
func Count(outcomes []ir.RuleOutcome) ir.Checks {
	c := ir.Checks{Total: len(outcomes)}
	for _, o := range outcomes {
		switch {
		case o.Result == ir.ResultPass:
			c.Passed++
		case o.Result == ir.ResultNotApplicable:
			c.NotApplicable++
		case o.Severity == ir.SeverityAdvisory:
			c.Warnings++
		default:
			c.Failed++
		}
	}
	c.SuccessRate = Percent(c.Passed, c.Total-c.NotApplicable)
	return c
}

// Aggregate builds the result for one validated order. Outcomes keep the
// order they were given in.
func Aggregate(order ir.Order, orderType string, outcomes []ir.RuleOutcome) ir.ValidationResult {
	outs := slices.Clone(outcomes)
	if outs == nil {
		outs = []ir.RuleOutcome{}
	}
	return ir.ValidationResult{
		Subscriber: order.Subscriber,
		OrderID:    order.ID,
		OrderType:  orderType,
		Status:     Reduce(outs),
		Outcomes:   outs,
		Checks:     Count(outs),
	}
}

// Percent returns part/whole as a percentage rounded to two decimals, or 0
// when whole is 0.
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return math.Round(float64(part)/float64(whole)*10000) / 100
}
