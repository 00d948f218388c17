// Package engine validates subscribers.
//
// Validate is the single-subscriber entry point: a pure, synchronous
// function of the orders, the assets and the RuleSet. Engine.ValidateAll
// fans out over many subscribers with bounded concurrency and isolates
// failures per subscriber.
//
// Pipeline per subscriber:
//
//	orders -> selector.Filter -> selector.SelectLatest -> selector.Classify
//	assets -> hierarchy.Build
//	rules.RulesFor(type) -> evaluator.EvaluateAll -> aggregate.Aggregate
//
// Results are deterministic: the same inputs and RuleSet produce the same
// outcomes in the same order and the same digest. Only the run id differs
// between runs.
package engine
