package selector

import (
	"cmp"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/rules"
)

// SelectLatest picks the order with the latest creation timestamp.
//
// All orders must belong to the same subscriber. When several orders share
// the latest timestamp, the discriminator field breaks the tie: the greater
// value wins and a missing value ranks lowest. Numbers compare by value and
// text compares lexically, but a tie between numeric and non-numeric values
// is left unbroken. An unbroken tie is an *AmbiguousOrderError; the result
// never depends on input order.
func SelectLatest(orders []ir.Order, discriminator string) (ir.Order, error) {
	if len(orders) == 0 {
		return ir.Order{}, ErrNoOrders
	}

	subscriber := orders[0].Subscriber
	for _, o := range orders[1:] {
		if o.Subscriber != subscriber {
			return ir.Order{}, &SubscriberMismatchError{Subscriber: subscriber, Record: "order", ID: o.ID, Got: o.Subscriber}
		}
	}

	latest := orders[0].CreatedAt
	for _, o := range orders[1:] {
		if o.CreatedAt.After(latest) {
			latest = o.CreatedAt
		}
	}

	var tied []ir.Order
	for _, o := range orders {
		if o.CreatedAt.Equal(latest) {
			tied = append(tied, o)
		}
	}
	if len(tied) == 1 {
		return tied[0], nil
	}

	if discriminator != "" {
		tied = maxByDiscriminator(tied, discriminator)
		if len(tied) == 1 {
			return tied[0], nil
		}
	}

	ids := make([]string, len(tied))
	for i, o := range tied {
		ids[i] = o.ID
	}
	slices.Sort(ids)
	return ir.Order{}, &AmbiguousOrderError{
		Subscriber:    subscriber,
		OrderIDs:      ids,
		CreatedAt:     latest,
		Discriminator: discriminator,
	}
}

// maxByDiscriminator keeps the orders holding the greatest value of field.
// Orders without a value only win when no order has one. Numeric values
// compare by exact value and text compares lexically; when the tied values
// mix numbers and text there is no single ordering, so every order holding
// a value is kept and the tie stays unbroken.
func maxByDiscriminator(orders []ir.Order, field string) []ir.Order {
	type candidate struct {
		order   ir.Order
		value   ir.Value
		numeric bool
	}

	var present []candidate
	numbers, texts := 0, 0
	for _, o := range orders {
		v, ok := o.Field(field)
		if !ok || ir.IsEmpty(v) {
			continue
		}
		if n, ok := asNumber(v); ok {
			present = append(present, candidate{order: o, value: n, numeric: true})
			numbers++
			continue
		}
		present = append(present, candidate{order: o, value: v})
		texts++
	}

	switch {
	case len(present) == 0:
		return orders
	case numbers > 0 && texts > 0:
		out := make([]ir.Order, len(present))
		for i, c := range present {
			out[i] = c.order
		}
		return out
	}

	compare := func(a, b candidate) int {
		if a.numeric {
			c, _ := ir.CompareNumbers(a.value, b.value)
			return c
		}
		return cmp.Compare(ir.Text(a.value), ir.Text(b.value))
	}
	top := slices.MaxFunc(present, compare)

	var best []ir.Order
	for _, c := range present {
		if compare(c, top) == 0 {
			best = append(best, c.order)
		}
	}
	return best
}

// asNumber reads v as a number. Numeric strings such as "0042" count, and
// integers keep their exact value.
func asNumber(v ir.Value) (ir.Value, bool) {
	switch val := v.(type) {
	case ir.Int, ir.Number:
		return v, true
	case ir.String:
		s := strings.TrimSpace(string(val))
		if i, err := strconv.ParseInt(s, 10, 64); err == nil {
			return ir.Int(i), true
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, false
		}
		return ir.Number(f), true
	default:
		return nil, false
	}
}

// Classify maps the order's raw type string to a declared order type.
// Unmapped types are an *UnknownOrderTypeError, never a default type.
func Classify(order ir.Order, rs *rules.RuleSet) (string, error) {
	name, ok := rs.Lookup(order.Type)
	if !ok {
		return "", &UnknownOrderTypeError{OrderID: order.ID, RawType: order.Type}
	}
	return name, nil
}
