package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/kart-orders/internal/domain/customer"
	"github.com/xenking/kart-orders/internal/domain/order"
)

const (
	insertOrderSQL = `INSERT INTO orders (id, customer_id) VALUES ($1, $2)
		RETURNING created_at, updated_at`

	getOrderSQL = `SELECT id::text, customer_id, created_at, updated_at FROM orders WHERE id = $1`

	getOrderItemsSQL = `SELECT product_id, price, quantity FROM order_items
		WHERE order_id = $1 ORDER BY position`
)

var orderItemColumns = []string{"order_id", "position", "product_id", "price", "quantity"}

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	db DBTX
}

// NewOrderRepository returns an OrderRepository that uses the given pool or
// transaction.
func NewOrderRepository(db DBTX) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create inserts the order row and copies its items in. Item positions
// preserve the given order.
func (r *OrderRepository) Create(ctx context.Context, c customer.Customer, items []order.OrderItem) (*order.Order, error) {
	if len(items) == 0 {
		return nil, errors.New("no items in order")
	}

	id := uuid.New()
	return withTx(ctx, r.db, func(tx pgx.Tx) (*order.Order, error) {
		o := &order.Order{
			ID:         id.String(),
			CustomerID: c.ID,
			Items:      items,
		}
		if err := tx.QueryRow(ctx, insertOrderSQL, id, c.ID).Scan(&o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("inserting order %q: %w", o.ID, err)
		}

		n, err := tx.CopyFrom(ctx, pgx.Identifier{"order_items"}, orderItemColumns,
			pgx.CopyFromSlice(len(items), func(i int) ([]any, error) {
				return []any{id, i, items[i].ProductID, items[i].Price, items[i].Quantity}, nil
			}),
		)
		if err != nil {
			return nil, fmt.Errorf("inserting items of order %q: %w", o.ID, err)
		}
		if int(n) != len(items) {
			return nil, fmt.Errorf("inserting items of order %q: copied %d of %d", o.ID, n, len(items))
		}
		return o, nil
	})
}

// GetByID returns an order with its items in placement order.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*order.Order, error) {
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, order.ErrNotFound
	}

	return withTx(ctx, r.db, func(tx pgx.Tx) (*order.Order, error) {
		var o order.Order
		err := tx.QueryRow(ctx, getOrderSQL, orderID).Scan(&o.ID, &o.CustomerID, &o.CreatedAt, &o.UpdatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, order.ErrNotFound
			}
			return nil, fmt.Errorf("getting order %q: %w", id, err)
		}

		rows, err := tx.Query(ctx, getOrderItemsSQL, orderID)
		if err != nil {
			return nil, fmt.Errorf("getting items of order %q: %w", id, err)
		}
		o.Items, err = pgx.CollectRows(rows, scanOrderItem)
		if err != nil {
			return nil, fmt.Errorf("getting items of order %q: %w", id, err)
		}
		return &o, nil
	})
}

func scanOrderItem(row pgx.CollectableRow) (order.OrderItem, error) {
	var item order.OrderItem
	err := row.Scan(&item.ProductID, &item.Price, &item.Quantity)
	return item, err
}
