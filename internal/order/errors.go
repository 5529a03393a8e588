package order

import (
	"errors"
	"fmt"
)

// ValidationError reports a submission rejected before any state changed:
// a missing customer field or an empty cart.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid submission (%s): %s", e.Field, e.Reason)
}

// NotFoundError reports an order id absent from the persisted log.
type NotFoundError struct {
	OrderID string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("order %q not found", e.OrderID)
}

// DispatchError reports that the external handoff channel could not be
// invoked. The order is persisted as dispatchFailed and the cart is left
// intact; the caller may retry the same order id.
type DispatchError struct {
	OrderID string
	Err     error
}

// Error implements the error interface.
func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch of order %s failed: %v", e.OrderID, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *DispatchError) Unwrap() error {
	return e.Err
}

// AlreadyDispatchedError reports a dispatch retry on an order that already
// succeeded. The handoff channel is not re-invoked.
type AlreadyDispatchedError struct {
	OrderID string
}

// Error implements the error interface.
func (e *AlreadyDispatchedError) Error() string {
	return fmt.Sprintf("order %s already dispatched", e.OrderID)
}

// IsValidation returns true if the error is a submission validation error.
// Uses errors.As to handle wrapped errors.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsNotFound returns true if the error is an unknown-order error.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}

// IsDispatch returns true if the error is a failed-handoff error.
func IsDispatch(err error) bool {
	var de *DispatchError
	return errors.As(err, &de)
}

// IsAlreadyDispatched returns true if the error is a retry on a successful
// dispatch.
func IsAlreadyDispatched(err error) bool {
	var ae *AlreadyDispatchedError
	return errors.As(err, &ae)
}
