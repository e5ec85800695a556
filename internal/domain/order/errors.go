package order

import (
	"fmt"
	"strings"

	"github.com/go-faster/errors"
)

// Sentinel errors for order placement. They are client input failures and
// are always returned before anything is written.
var (
	ErrInvalidCustomer   = errors.New("invalid customer")
	ErrInvalidProducts   = errors.New("invalid products")
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Sentinel errors for request shape validation.
var (
	ErrMissingCustomer = errors.New("customer_id required")
	ErrEmptyItems      = errors.New("products required")
	ErrInvalidQuantity = errors.New("invalid quantity")
)

// CustomerNotFoundError indicates the order's customer does not exist.
type CustomerNotFoundError struct {
	CustomerID string
}

func (e *CustomerNotFoundError) Error() string {
	return fmt.Sprintf("invalid customer %s", e.CustomerID)
}

// Is reports ErrInvalidCustomer as equivalent.
func (e *CustomerNotFoundError) Is(target error) bool {
	return target == ErrInvalidCustomer
}

// UnknownProductsError indicates the product lookup did not line up with the
// requested ids. Missing lists requested ids that were not found; Unexpected
// lists ids returned by the store that were never requested.
type UnknownProductsError struct {
	Missing    []string
	Unexpected []string
}

func (e *UnknownProductsError) Error() string {
	var b strings.Builder
	b.WriteString("invalid products")
	if len(e.Missing) > 0 {
		b.WriteString(": not found ")
		b.WriteString(strings.Join(e.Missing, ", "))
	}
	if len(e.Unexpected) > 0 {
		b.WriteString(": unexpected ")
		b.WriteString(strings.Join(e.Unexpected, ", "))
	}
	return b.String()
}

// Is reports ErrInvalidProducts as equivalent.
func (e *UnknownProductsError) Is(target error) bool {
	return target == ErrInvalidProducts
}

// InsufficientStockError indicates a requested quantity exceeds stock.
type InsufficientStockError struct {
	ProductID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
		e.ProductID, e.Requested, e.Available)
}

// Is reports ErrInsufficientStock as equivalent.
func (e *InsufficientStockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// InvalidQuantityError indicates a line item quantity is not positive, or
// that the total quantity requested for a product exceeds MaxQuantity.
type InvalidQuantityError struct {
	ProductID string
	TooLarge  bool
}

func (e *InvalidQuantityError) Error() string {
	if e.TooLarge {
		return fmt.Sprintf("quantity exceeds %d for product %s", MaxQuantity, e.ProductID)
	}
	return fmt.Sprintf("quantity must be greater than 0 for product %s", e.ProductID)
}

func (e *InvalidQuantityError) Is(target error) bool {
	return target == ErrInvalidQuantity
}
