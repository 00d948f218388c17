// Package rules is the rule configuration model.
//
// A rule document declares order types (with the raw upstream strings
// that map to them), hierarchy roles, order filtering, the latest-order
// tie-break and an ordered list of rules. Load turns an already-decoded
// document into an immutable RuleSet or a ConfigError listing every
// problem found. LoadFile adds YAML, JSON and CUE decoding on top.
//
// Target specifiers:
//
//	order.<field>                 a field of the selected order
//	hierarchy(<role>).<field>     a field of the assets a role resolves to
//	literal(<json scalar>)        a constant
//
// Operators are a closed table (see Operators). Expression rules are CEL
// programs compiled once at load time; logic rules are JSONLogic.
package rules
