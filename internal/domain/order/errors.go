// internal/domain/order/errors.go
package order

import "errors"

var (
	// ErrOrderNotFound is returned when an order lookup matches no row
	ErrOrderNotFound = errors.New("order not found")

	// ErrEmptyCart is returned when checkout is attempted with no items;
	// the whole order creation transaction rolls back
	ErrEmptyCart = errors.New("cart is empty")

	// ErrAlreadyReserved signals that reserve() was called on an order
	// whose stock has already been decremented. A soft no-op, not a hard
	// failure.
	ErrAlreadyReserved = errors.New("products already reserved")

	// ErrNotReserved signals that return_products() was called on an order
	// whose stock was never decremented. A soft no-op.
	ErrNotReserved = errors.New("products not reserved")

	// ErrInvalidTransition is returned for a disallowed status change
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrValidation is returned when order form data fails validation
	ErrValidation = errors.New("validation failed")
)
