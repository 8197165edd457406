// internal/domain/cart/errors.go
package cart

import "errors"

var (
	// ErrInvalidQuantity is returned when a requested quantity is not a
	// positive integer
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrInsufficientStock is returned when the requested quantity would
	// exceed the product's on-hand stock
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrItemNotFound is returned when an operation targets a line that is
	// not in the cart
	ErrItemNotFound = errors.New("item not found in cart")

	// ErrProductNotFound is returned when the referenced product does not
	// exist or is inactive
	ErrProductNotFound = errors.New("product not found or inactive")
)
