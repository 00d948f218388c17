package selector

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNoOrders is returned when a subscriber has no orders left to select.
var ErrNoOrders = errors.New("no orders to select from")

// AmbiguousOrderError reports a tie on the latest creation timestamp that
// the configured discriminator (if any) could not break.
type AmbiguousOrderError struct {
	Subscriber    string
	OrderIDs      []string // tied orders, sorted
	CreatedAt     time.Time
	Discriminator string // empty when none is configured
}

// Error implements the error interface.
func (e *AmbiguousOrderError) Error() string {
	ids := strings.Join(e.OrderIDs, ", ")
	if e.Discriminator == "" {
		return fmt.Sprintf("orders %s for subscriber %s share the latest timestamp %s and no discriminator is configured",
			ids, e.Subscriber, e.CreatedAt.UTC().Format(time.RFC3339Nano))
	}
	return fmt.Sprintf("orders %s for subscriber %s share the latest timestamp %s and tie on %q",
		ids, e.Subscriber, e.CreatedAt.UTC().Format(time.RFC3339Nano), e.Discriminator)
}

// SubscriberMismatchError reports an order or asset handed over under the
// wrong subscriber.
type SubscriberMismatchError struct {
	Subscriber string
	Record     string // "order" or "asset"
	ID         string
	Got        string
}

// Error implements the error interface.
func (e *SubscriberMismatchError) Error() string {
	record := e.Record
	if record == "" {
		record = "order"
	}
	return fmt.Sprintf("%s %s belongs to subscriber %q, not %q", record, e.ID, e.Got, e.Subscriber)
}

// UnknownOrderTypeError reports a raw order type with no mapping in the
// rule set.
type UnknownOrderTypeError struct {
	OrderID string
	RawType string
}

// Error implements the error interface.
func (e *UnknownOrderTypeError) Error() string {
	return fmt.Sprintf("order %s has unknown order type %q", e.OrderID, e.RawType)
}

// IsAmbiguousOrder returns true if err is (or wraps) an AmbiguousOrderError.
func IsAmbiguousOrder(err error) bool {
	var target *AmbiguousOrderError
	return errors.As(err, &target)
}

// IsUnknownOrderType returns true if err is (or wraps) an UnknownOrderTypeError.
func IsUnknownOrderType(err error) bool {
	var target *UnknownOrderTypeError
	return errors.As(err, &target)
}

// IsSubscriberMismatch returns true if err is (or wraps) a SubscriberMismatchError.
func IsSubscriberMismatch(err error) bool {
	var target *SubscriberMismatchError
	return errors.As(err, &target)
}
