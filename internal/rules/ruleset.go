package rules

import (
	"encoding/json"
	"regexp"
	"slices"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/esungul/UniveralValidator/internal/hierarchy"
	"github.com/esungul/UniveralValidator/internal/ir"
)

// AllOrderTypes in a rule's order_types applies the rule to every declared
// order type.
const AllOrderTypes = "*"

// Rule is one validated, immutable rule.
type Rule struct {
	ID          string
	Description string
	OrderTypes  []string
	Target      Target
	Operator    Operator
	Ref         *Target // expected operand read from another target
	Severity    ir.Severity
	Optional    bool
	Quantifier  Quantifier
	Normalize   []Normalization

	Value   ir.Value   // equals / not-equals literal operand
	Values  []ir.Value // one-of
	Pattern *regexp.Regexp
	Min     *float64
	Max     *float64

	Expression string
	Logic      json.RawMessage

	program cel.Program
}

// AppliesTo reports whether the rule is configured for orderType.
func (r Rule) AppliesTo(orderType string) bool {
	for _, t := range r.OrderTypes {
		if t == orderType || t == AllOrderTypes {
			return true
		}
	}
	return false
}

// OrderType is a declared category of business order.
type OrderType struct {
	Name        string
	Description string
	Aliases     []string
}

// Selection configures the latest-order tie-break.
type Selection struct {
	// Discriminator is an order field consulted when creation timestamps
	// tie. The greater value wins. Empty means ties are an error.
	Discriminator string
}

// Filter configures which fetched orders are dropped before selection.
type Filter struct {
	ReasonField           string
	IgnoreReasons         []string
	IgnoreTypes           []string
	SkipReasonsContaining []string
}

// RuleSet is the validated in-memory form of a rule document. It is never
// mutated after Load returns and is safe for concurrent readers.
type RuleSet struct {
	digest     string
	selection  Selection
	filter     Filter
	orderTypes map[string]OrderType
	classify   map[string]string // normalized raw type -> order type
	roles      map[string]hierarchy.Role
	rules      []Rule
}

// RulesFor returns the rules applicable to orderType in declaration order.
// The returned slice is a copy.
func (rs *RuleSet) RulesFor(orderType string) []Rule {
	out := make([]Rule, 0)
	for _, r := range rs.rules {
		if r.AppliesTo(orderType) {
			out = append(out, r)
		}
	}
	return out
}

// Rules returns every rule in declaration order.
func (rs *RuleSet) Rules() []Rule {
	return slices.Clone(rs.rules)
}

// Lookup maps a raw upstream type string to its declared order type.
// Matching ignores case and surrounding whitespace.
func (rs *RuleSet) Lookup(rawType string) (string, bool) {
	name, ok := rs.classify[classifyKey(rawType)]
	return name, ok
}

// OrderType returns a declared order type by name.
func (rs *RuleSet) OrderType(name string) (OrderType, bool) {
	ot, ok := rs.orderTypes[name]
	return ot, ok
}

// OrderTypes returns the declared order type names, sorted.
func (rs *RuleSet) OrderTypes() []string {
	names := make([]string, 0, len(rs.orderTypes))
	for name := range rs.orderTypes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Role returns a declared hierarchy role.
func (rs *RuleSet) Role(name string) (hierarchy.Role, bool) {
	role, ok := rs.roles[name]
	return role, ok
}

// Selection returns the latest-order selection settings.
func (rs *RuleSet) Selection() Selection {
	return rs.selection
}

// Filter returns the order filter settings.
func (rs *RuleSet) Filter() Filter {
	f := rs.filter
	f.IgnoreReasons = slices.Clone(f.IgnoreReasons)
	f.IgnoreTypes = slices.Clone(f.IgnoreTypes)
	f.SkipReasonsContaining = slices.Clone(f.SkipReasonsContaining)
	return f
}

// Len returns the number of rules.
func (rs *RuleSet) Len() int {
	return len(rs.rules)
}

// Digest identifies the rule document the set was loaded from.
func (rs *RuleSet) Digest() string {
	return rs.digest
}

func classifyKey(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}
