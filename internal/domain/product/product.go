package product

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Product represents a catalog item with its current stock.
type Product struct {
	ID    string
	Name  string
	Price decimal.Decimal
	// Quantity is the stock currently available for ordering.
	Quantity  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// QuantityUpdate sets the stock of a product to an absolute value.
type QuantityUpdate struct {
	ProductID string
	Quantity  int
}

// Reader defines read operations for the product catalog.
type Reader interface {
	List(ctx context.Context) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
}

// Repository defines the catalog operations used by order placement.
type Repository interface {
	Reader

	// FindAllByID returns the products matching any of ids. Unknown ids are
	// skipped, and the result order is unspecified.
	FindAllByID(ctx context.Context, ids []string) ([]Product, error)

	// UpdateQuantities applies all updates or none of them.
	UpdateQuantities(ctx context.Context, updates []QuantityUpdate) error
}
