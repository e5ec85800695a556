package order

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/xenking/kart-orders/internal/domain/customer"
	"github.com/xenking/kart-orders/internal/domain/product"
)

// ErrNotFound is returned when a requested order does not exist.
var ErrNotFound = errors.New("order not found")

// Order is a placed customer order. It is immutable once created.
type Order struct {
	ID         string
	CustomerID string
	Items      []OrderItem
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// OrderItem is a line item with the unit price captured at placement time.
type OrderItem struct {
	ProductID string
	Price     decimal.Decimal
	Quantity  int
}

// Subtotal returns price × quantity for the line.
func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Total returns the sum of all line subtotals.
func (o *Order) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	return total
}

// Repository defines persistence operations for orders.
type Repository interface {
	// Create persists an order for c with the given items and returns it with
	// the store-assigned id and timestamps.
	Create(ctx context.Context, c customer.Customer, items []OrderItem) (*Order, error)
	// GetByID returns ErrNotFound when no order has the given id.
	GetByID(ctx context.Context, id string) (*Order, error)
}

// Stores groups the repositories order placement works against.
type Stores struct {
	Customers customer.Repository
	Products  product.Repository
	Orders    Repository
}

// UnitOfWork runs fn against a consistent view of the stores. Implementations
// backed by a database commit everything fn wrote when it returns nil and
// discard it otherwise.
type UnitOfWork interface {
	Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}

// Plain is a UnitOfWork that calls fn directly with fixed stores. Writes made
// before a failure are not undone.
type Plain Stores

// Do implements UnitOfWork.
func (p Plain) Do(ctx context.Context, fn func(ctx context.Context, s Stores) error) error {
	return fn(ctx, Stores(p))
}

// Publisher announces placed orders to other systems.
type Publisher interface {
	OrderPlaced(ctx context.Context, o *Order) error
}

type nopPublisher struct{}

func (nopPublisher) OrderPlaced(context.Context, *Order) error { return nil }
