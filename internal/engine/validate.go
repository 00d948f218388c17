package engine

import (
	"fmt"

	"github.com/esungul/UniveralValidator/internal/aggregate"
	"github.com/esungul/UniveralValidator/internal/evaluator"
	"github.com/esungul/UniveralValidator/internal/hierarchy"
	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/rules"
	"github.com/esungul/UniveralValidator/internal/selector"
)

// Validate runs one subscriber through the pipeline: filter and select the
// latest order, classify it, build the asset tree, evaluate the applicable
// rules and reduce the outcomes.
//
// Validate never returns an error. Selection and hierarchy failures come
// back as a result with StatusError and a populated Error. The result
// carries a digest but no run id.
func Validate(subscriberID string, orders []ir.Order, assets []ir.Asset, rs *rules.RuleSet) ir.ValidationResult {
	result, err := validate(subscriberID, orders, assets, rs)
	if err != nil {
		result = errorResult(subscriberID, result.OrderCount, err)
	}
	return seal(result)
}

func validate(subscriberID string, orders []ir.Order, assets []ir.Asset, rs *rules.RuleSet) (ir.ValidationResult, error) {
	kept, _ := selector.Filter(adopt(subscriberID, orders), rs.Filter())
	partial := ir.ValidationResult{
		Subscriber:        subscriberID,
		OrderCount:        len(kept),
		HasMultipleOrders: len(kept) > 1,
	}

	for _, o := range kept {
		if o.Subscriber != subscriberID {
			return partial, newRuntimeError(subscriberID, "",
				&selector.SubscriberMismatchError{Subscriber: subscriberID, Record: "order", ID: o.ID, Got: o.Subscriber})
		}
	}
	for _, a := range assets {
		if a.Subscriber != "" && a.Subscriber != subscriberID {
			return partial, newRuntimeError(subscriberID, "",
				&selector.SubscriberMismatchError{Subscriber: subscriberID, Record: "asset", ID: a.ID, Got: a.Subscriber})
		}
	}

	order, err := selector.SelectLatest(kept, rs.Selection().Discriminator)
	if err != nil {
		return partial, newRuntimeError(subscriberID, "", err)
	}
	orderType, err := selector.Classify(order, rs)
	if err != nil {
		return partial, newRuntimeError(subscriberID, order.ID, err)
	}
	tree, err := hierarchy.Build(assets)
	if err != nil {
		return partial, newRuntimeError(subscriberID, order.ID, err)
	}

	outcomes := evaluator.EvaluateAll(order, tree, rs.RulesFor(orderType))
	result := aggregate.Aggregate(order, orderType, outcomes)
	result.Subscriber = subscriberID
	result.OrderCount = partial.OrderCount
	result.HasMultipleOrders = partial.HasMultipleOrders
	return result, nil
}

// adopt assigns orders that carry no subscriber to subscriberID.
func adopt(subscriberID string, orders []ir.Order) []ir.Order {
	out := make([]ir.Order, len(orders))
	for i, o := range orders {
		if o.Subscriber == "" {
			o.Subscriber = subscriberID
		}
		out[i] = o
	}
	return out
}

// errorResult builds the error-tagged result for a subscriber that could
// not be validated.
func errorResult(subscriberID string, orderCount int, err error) ir.ValidationResult {
	re, ok := err.(*RuntimeError)
	if !ok {
		re = newRuntimeError(subscriberID, "", err)
	}
	return ir.ValidationResult{
		Subscriber:        subscriberID,
		OrderID:           re.OrderID,
		Status:            ir.StatusError,
		Outcomes:          []ir.RuleOutcome{},
		OrderCount:        orderCount,
		HasMultipleOrders: orderCount > 1,
		Error:             re.ResultError(),
	}
}

// seal stamps the digest. A result that cannot be digested becomes an
// INTERNAL error result.
func seal(r ir.ValidationResult) ir.ValidationResult {
	digest, err := ir.ResultDigest(r)
	if err != nil {
		r = errorResult(r.Subscriber, r.OrderCount, &RuntimeError{
			Code:       ErrCodeInternal,
			Subscriber: r.Subscriber,
			Err:        fmt.Errorf("digest result: %w", err),
		})
		digest, _ = ir.ResultDigest(r)
	}
	r.Digest = digest
	return r
}
