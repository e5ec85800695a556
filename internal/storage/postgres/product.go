package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"

	"github.com/xenking/kart-orders/internal/domain/product"
)

const (
	listProductsSQL = `SELECT id, name, price, quantity, created_at, updated_at
		FROM products ORDER BY id`

	getProductByIDSQL = `SELECT id, name, price, quantity, created_at, updated_at
		FROM products WHERE id = $1`

	findProductsByIDsSQL = `SELECT id, name, price, quantity, created_at, updated_at
		FROM products WHERE id = ANY($1) ORDER BY id`

	// Rows are locked in id order so that two placements sharing products
	// cannot deadlock.
	lockProductsByIDsSQL = findProductsByIDsSQL + ` FOR UPDATE`

	updateProductQuantitySQL = `UPDATE products SET quantity = $2, updated_at = now() WHERE id = $1`

	upsertProductSQL = `INSERT INTO products (id, name, price, quantity) VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, price = EXCLUDED.price,
			quantity = EXCLUDED.quantity, updated_at = now()`
)

var _ product.Repository = (*ProductRepository)(nil)

// ProductRepository implements product.Repository backed by PostgreSQL.
type ProductRepository struct {
	db   DBTX
	lock bool
}

// NewProductRepository returns a ProductRepository that uses the given pool
// or transaction.
func NewProductRepository(db DBTX) *ProductRepository {
	return &ProductRepository{db: db}
}

// NewLockingProductRepository returns a ProductRepository whose FindAllByID
// takes row locks held until tx ends.
func NewLockingProductRepository(tx pgx.Tx) *ProductRepository {
	return &ProductRepository{db: tx, lock: true}
}

// List returns all products from the catalog ordered by ID.
func (r *ProductRepository) List(ctx context.Context) ([]product.Product, error) {
	rows, err := r.db.Query(ctx, listProductsSQL)
	if err != nil {
		return nil, fmt.Errorf("listing products: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// GetByID returns a single product by its identifier.
func (r *ProductRepository) GetByID(ctx context.Context, id string) (*product.Product, error) {
	rows, err := r.db.Query(ctx, getProductByIDSQL, id)
	if err != nil {
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}

	p, err := pgx.CollectExactlyOneRow(rows, scanProduct)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, product.ErrNotFound
		}
		return nil, fmt.Errorf("getting product %q: %w", id, err)
	}
	return &p, nil
}

// FindAllByID returns products matching any of the given IDs.
func (r *ProductRepository) FindAllByID(ctx context.Context, ids []string) ([]product.Product, error) {
	query := findProductsByIDsSQL
	if r.lock {
		query = lockProductsByIDsSQL
	}

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("getting products by ids: %w", err)
	}
	return pgx.CollectRows(rows, scanProduct)
}

// UpdateQuantities sets the stock of every listed product in one batch.
func (r *ProductRepository) UpdateQuantities(ctx context.Context, updates []product.QuantityUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	_, err := withTx(ctx, r.db, func(tx pgx.Tx) (struct{}, error) {
		b := &pgx.Batch{}
		for _, u := range updates {
			b.Queue(updateProductQuantitySQL, u.ProductID, u.Quantity)
		}

		br := tx.SendBatch(ctx, b)
		for _, u := range updates {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return struct{}{}, fmt.Errorf("updating quantity of %q: %w", u.ProductID, err)
			}
			if tag.RowsAffected() != 1 {
				_ = br.Close()
				return struct{}{}, fmt.Errorf("updating quantity of %q: %w", u.ProductID, product.ErrNotFound)
			}
		}
		return struct{}{}, br.Close()
	})
	return err
}

// Upsert inserts products or overwrites them in place by id.
func (r *ProductRepository) Upsert(ctx context.Context, products []product.Product) error {
	if len(products) == 0 {
		return nil
	}

	b := &pgx.Batch{}
	for _, p := range products {
		b.Queue(upsertProductSQL, p.ID, p.Name, p.Price, p.Quantity)
	}
	if err := r.db.SendBatch(ctx, b).Close(); err != nil {
		return fmt.Errorf("upserting %d products: %w", len(products), err)
	}
	return nil
}

func scanProduct(row pgx.CollectableRow) (product.Product, error) {
	var p product.Product
	err := row.Scan(&p.ID, &p.Name, &p.Price, &p.Quantity, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}
