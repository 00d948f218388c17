package selector

import (
	"slices"
	"strings"

	"golang.org/x/text/cases"

	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/rules"
)

// Filter drops orders the rule set says should never be validated: orders
// whose reason is listed or contains a configured substring, and orders
// whose raw type is listed. Matching ignores case and surrounding spaces.
// Orders without a reason or type are kept. Both slices keep input order.
func Filter(orders []ir.Order, f rules.Filter) (kept, skipped []ir.Order) {
	ignoreReasons := normalizeAll(f.IgnoreReasons)
	ignoreTypes := normalizeAll(f.IgnoreTypes)
	contains := normalizeAll(f.SkipReasonsContaining)

	kept = make([]ir.Order, 0, len(orders))
	for _, o := range orders {
		if skip(o, f.ReasonField, ignoreReasons, ignoreTypes, contains) {
			skipped = append(skipped, o)
			continue
		}
		kept = append(kept, o)
	}
	return kept, skipped
}

func skip(o ir.Order, reasonField string, ignoreReasons, ignoreTypes, contains []string) bool {
	if t := normalize(o.Type); t != "" && slices.Contains(ignoreTypes, t) {
		return true
	}

	v, ok := o.Field(reasonField)
	if !ok {
		return false
	}
	reason := normalize(ir.Text(v))
	if reason == "" {
		return false
	}
	if slices.Contains(ignoreReasons, reason) {
		return true
	}
	for _, sub := range contains {
		if sub != "" && strings.Contains(reason, sub) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func normalizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = normalize(s)
	}
	return out
}
