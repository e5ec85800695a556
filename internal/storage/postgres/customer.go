package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/kart-orders/internal/domain/customer"
)

const (
	getCustomerByIDSQL = `SELECT id, name, email, created_at FROM customers WHERE id = $1`

	upsertCustomerSQL = `INSERT INTO customers (id, name, email) VALUES ($1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, email = EXCLUDED.email`
)

var _ customer.Repository = (*CustomerRepository)(nil)

// CustomerRepository implements customer.Repository backed by PostgreSQL.
type CustomerRepository struct {
	db DBTX
}

// NewCustomerRepository returns a CustomerRepository that uses the given
// pool or transaction.
func NewCustomerRepository(db DBTX) *CustomerRepository {
	return &CustomerRepository{db: db}
}

// FindByID returns customer.ErrNotFound when no customer has the given id.
func (r *CustomerRepository) FindByID(ctx context.Context, id string) (*customer.Customer, error) {
	rows, err := r.db.Query(ctx, getCustomerByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}

	c, err := pgx.CollectExactlyOneRow(rows, scanCustomer)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, customer.ErrNotFound
		}
		return nil, fmt.Errorf("getting customer %q: %w", id, err)
	}
	return &c, nil
}

// Upsert inserts customers or updates them in place by id.
func (r *CustomerRepository) Upsert(ctx context.Context, customers []customer.Customer) error {
	if len(customers) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, c := range customers {
		b.Queue(upsertCustomerSQL, c.ID, c.Name, c.Email)
	}
	if err := r.db.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("upserting %d customers: %w", len(customers), err)
	}
	return nil
}

func scanCustomer(row pgx.CollectableRow) (customer.Customer, error) {
	var c customer.Customer
	err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt)
	return c, err
}
