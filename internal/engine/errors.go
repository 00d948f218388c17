package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/esungul/UniveralValidator/internal/hierarchy"
	"github.com/esungul/UniveralValidator/internal/ir"
	"github.com/esungul/UniveralValidator/internal/selector"
)

// RuntimeError is a per-subscriber failure. It never aborts a batch: the
// engine turns it into an error-tagged ValidationResult for that
// subscriber only.
type RuntimeError struct {
	// Code identifies the error category.
	Code RuntimeErrorCode

	// Subscriber is the subscriber whose data caused the error.
	Subscriber string

	// OrderID is the selected order, when selection got that far.
	OrderID string

	Err error
}

// RuntimeErrorCode categorizes runtime errors.
type RuntimeErrorCode string

const (
	ErrCodeNoOrders           RuntimeErrorCode = "NO_ORDERS"
	ErrCodeSubscriberMismatch RuntimeErrorCode = "SUBSCRIBER_MISMATCH"
	ErrCodeAmbiguousOrder     RuntimeErrorCode = "AMBIGUOUS_ORDER"
	ErrCodeUnknownOrderType   RuntimeErrorCode = "UNKNOWN_ORDER_TYPE"
	ErrCodeInvalidAsset       RuntimeErrorCode = "INVALID_ASSET"
	ErrCodeHierarchyCycle     RuntimeErrorCode = "HIERARCHY_CYCLE"
	ErrCodeCancelled          RuntimeErrorCode = "CANCELLED"
	ErrCodeInternal           RuntimeErrorCode = "INTERNAL" // recovered panic or digest failure
)

// Error implements the error interface.
func (e *RuntimeError) Error() string {
	if e.Subscriber != "" {
		return fmt.Sprintf("%s: %v (subscriber=%s)", e.Code, e.Err, e.Subscriber)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

// Unwrap returns the underlying error.
func (e *RuntimeError) Unwrap() error {
	return e.Err
}

// codeFor maps a selector, hierarchy or context error to its code.
func codeFor(err error) RuntimeErrorCode {
	var invalid *hierarchy.InvalidAssetError
	switch {
	case errors.Is(err, selector.ErrNoOrders):
		return ErrCodeNoOrders
	case selector.IsSubscriberMismatch(err):
		return ErrCodeSubscriberMismatch
	case selector.IsAmbiguousOrder(err):
		return ErrCodeAmbiguousOrder
	case selector.IsUnknownOrderType(err):
		return ErrCodeUnknownOrderType
	case errors.As(err, &invalid):
		return ErrCodeInvalidAsset
	case hierarchy.IsHierarchyCycle(err):
		return ErrCodeHierarchyCycle
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeCancelled
	default:
		return ErrCodeInternal
	}
}

func newRuntimeError(subscriber, orderID string, err error) *RuntimeError {
	return &RuntimeError{Code: codeFor(err), Subscriber: subscriber, OrderID: orderID, Err: err}
}

// ResultError converts err into the error carried by a ValidationResult.
func (e *RuntimeError) ResultError() *ir.ResultError {
	return &ir.ResultError{Code: string(e.Code), Message: e.Err.Error()}
}

// IsCode reports whether err is (or wraps) a RuntimeError with code.
func IsCode(err error, code RuntimeErrorCode) bool {
	var re *RuntimeError
	if errors.As(err, &re) {
		return re.Code == code
	}
	return false
}
