// Package evaluator applies rules to an order and its asset tree.
//
// Targets and operators are resolved through two closed dispatch tables,
// one entry per rules.TargetKind and per rules.Operator. A rule whose
// target resolves to several assets is ambiguous unless its quantifier
// says how to combine them.
package evaluator
