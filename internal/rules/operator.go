package rules

// Operator is the closed set of comparisons a rule can apply. Adding an
// operator means adding an entry here and in the evaluator's dispatch
// table; adding a rule is configuration only.
type Operator string

const (
	OpEquals               Operator = "equals"
	OpNotEquals            Operator = "not-equals"
	OpPresent              Operator = "present"
	OpMatchesPattern       Operator = "matches-pattern"
	OpOneOf                Operator = "one-of"
	OpNumericRange         Operator = "numeric-range"
	OpHierarchyConsistency Operator = "hierarchy-consistency"
	OpExpression           Operator = "expression" // CEL boolean program
	OpLogic                Operator = "logic"      // JSONLogic rule
)

// Operators returns every operator in table order.
func Operators() []Operator {
	return []Operator{
		OpEquals, OpNotEquals, OpPresent, OpMatchesPattern, OpOneOf,
		OpNumericRange, OpHierarchyConsistency, OpExpression, OpLogic,
	}
}

// Valid reports whether op is in the operator table.
func (op Operator) Valid() bool {
	for _, known := range Operators() {
		if op == known {
			return true
		}
	}
	return false
}

// Normalization is applied uniformly to both sides of a string comparison.
type Normalization string

const (
	NormalizeTrim     Normalization = "trim"
	NormalizeCaseFold Normalization = "casefold"
)

// Quantifier decides how several resolved values combine.
type Quantifier string

const (
	QuantifierOne Quantifier = "one" // several values are ambiguous
	QuantifierAny Quantifier = "any" // at least one value passes
	QuantifierAll Quantifier = "all" // every value passes
)
