package cart

import (
	"errors"
	"fmt"
)

// CapacityScope identifies which limit a CapacityError violated.
type CapacityScope string

const (
	// ScopeLineQuantity is the per-line quantity limit.
	ScopeLineQuantity CapacityScope = "line_quantity"

	// ScopeLineCount is the distinct-lines limit.
	ScopeLineCount CapacityScope = "line_count"
)

// CapacityError reports an operation that would exceed a cart limit.
// The operation is rejected whole; the cart is left untouched.
type CapacityError struct {
	Scope     CapacityScope
	Limit     int
	Requested int
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	switch e.Scope {
	case ScopeLineCount:
		return fmt.Sprintf("cart full: %d lines requested, limit %d", e.Requested, e.Limit)
	default:
		return fmt.Sprintf("quantity %d exceeds per-line limit %d", e.Requested, e.Limit)
	}
}

// NotFoundError reports a product id that does not resolve in the converged
// catalog (or, for quantity updates, a line key absent from the cart).
type NotFoundError struct {
	ProductID string
	Variant   string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	if e.Variant != "" {
		return fmt.Sprintf("product %q (variant %q) not found", e.ProductID, e.Variant)
	}
	return fmt.Sprintf("product %q not found", e.ProductID)
}

// IsCapacity returns true if the error is a cart capacity error.
// Uses errors.As to handle wrapped errors.
func IsCapacity(err error) bool {
	var ce *CapacityError
	return errors.As(err, &ce)
}

// IsNotFound returns true if the error is a product/line not-found error.
// Uses errors.As to handle wrapped errors.
func IsNotFound(err error) bool {
	var ne *NotFoundError
	return errors.As(err, &ne)
}
