package harness

import (
	"slices"
	"strings"

	"github.com/esungul/UniveralValidator/internal/ir"
)

func checkExpectation(result *Result, exp Expectation) {
	idx := slices.IndexFunc(result.Run.Results, func(r ir.ValidationResult) bool {
		return r.Subscriber == exp.Subscriber
	})
	if idx < 0 {
		result.AddError("%s: no result", exp.Subscriber)
		return
	}
	got := result.Run.Results[idx]
	sub := exp.Subscriber

	if string(got.Status) != exp.Status {
		result.AddError("%s: status = %s, expected %s%s", sub, got.Status, exp.Status, errorSuffix(got))
	}
	if exp.OrderID != "" && got.OrderID != exp.OrderID {
		result.AddError("%s: order_id = %q, expected %q", sub, got.OrderID, exp.OrderID)
	}
	if exp.OrderType != "" && got.OrderType != exp.OrderType {
		result.AddError("%s: order_type = %q, expected %q", sub, got.OrderType, exp.OrderType)
	}
	if exp.ErrorCode != "" {
		code := ""
		if got.Error != nil {
			code = got.Error.Code
		}
		if code != exp.ErrorCode {
			result.AddError("%s: error code = %q, expected %q", sub, code, exp.ErrorCode)
		}
	}
	if exp.HasMultipleOrders != nil && got.HasMultipleOrders != *exp.HasMultipleOrders {
		result.AddError("%s: has_multiple_orders = %t, expected %t", sub, got.HasMultipleOrders, *exp.HasMultipleOrders)
	}
	if exp.OrderCount != nil && got.OrderCount != *exp.OrderCount {
		result.AddError("%s: order_count = %d, expected %d", sub, got.OrderCount, *exp.OrderCount)
	}

	for _, ruleID := range sortedKeys(exp.Outcomes) {
		o, ok := outcome(got, ruleID)
		if !ok {
			result.AddError("%s: rule %s did not run", sub, ruleID)
			continue
		}
		if want := exp.Outcomes[ruleID]; string(o.Result) != want {
			result.AddError("%s: rule %s = %s, expected %s (%s)", sub, ruleID, o.Result, want, o.Reason)
		}
	}
	for _, ruleID := range sortedKeys(exp.Reasons) {
		o, ok := outcome(got, ruleID)
		if !ok {
			result.AddError("%s: rule %s did not run", sub, ruleID)
			continue
		}
		if want := exp.Reasons[ruleID]; !strings.Contains(o.Reason, want) {
			result.AddError("%s: rule %s reason %q does not contain %q", sub, ruleID, o.Reason, want)
		}
	}
}

func checkSummary(result *Result, exp SummaryExpectation) {
	got := result.Run.Summary
	checkCount(result, "total", got.Total, exp.Total)
	checkCount(result, "passed", got.Passed, exp.Passed)
	checkCount(result, "passed_with_warnings", got.PassedWithWarnings, exp.PassedWithWarnings)
	checkCount(result, "failed", got.Failed, exp.Failed)
	checkCount(result, "not_validated", got.NotValidated, exp.NotValidated)
	checkCount(result, "errors", got.Errors, exp.Errors)
	if exp.SuccessRate != nil && got.SuccessRate != *exp.SuccessRate {
		result.AddError("summary: success_rate = %v, expected %v", got.SuccessRate, *exp.SuccessRate)
	}
}

func checkCount(result *Result, name string, got int, want *int) {
	if want != nil && got != *want {
		result.AddError("summary: %s = %d, expected %d", name, got, *want)
	}
}

func outcome(r ir.ValidationResult, ruleID string) (ir.RuleOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.RuleID == ruleID {
			return o, true
		}
	}
	return ir.RuleOutcome{}, false
}

func errorSuffix(r ir.ValidationResult) string {
	if r.Error != nil {
		return " [" + r.Error.Code + ": " + r.Error.Message + "]"
	}
	if failures := r.Failures(); len(failures) > 0 {
		return " [" + failures[0].RuleID + ": " + failures[0].Reason + "]"
	}
	return ""
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
