package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/xenking/kart-orders/internal/domain/order"
)

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// withTx runs fn inside a transaction. When conn already is a transaction fn
// joins it and the caller owns commit and rollback.
func withTx[T any](ctx context.Context, conn DBTX, fn func(tx pgx.Tx) (T, error)) (_ T, txErr error) {
	var zero T

	if tx, ok := conn.(pgx.Tx); ok {
		return fn(tx)
	}

	b, ok := conn.(beginner)
	if !ok {
		return zero, fmt.Errorf("conn cannot begin a transaction: %T", conn)
	}

	tx, err := b.Begin(ctx)
	if err != nil {
		return zero, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if txErr == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			txErr = errors.Join(txErr, fmt.Errorf("rollback: %w", rbErr))
		}
	}()

	result, err := fn(tx)
	if err != nil {
		return zero, err
	}
	if err := tx.Commit(ctx); err != nil {
		return zero, fmt.Errorf("commit: %w", err)
	}
	return result, nil
}

var _ order.UnitOfWork = (*UnitOfWork)(nil)

// UnitOfWork runs order placement in a single transaction. Products read
// through it are locked until commit, so concurrent placements for the same
// product serialize on the row lock.
type UnitOfWork struct {
	conn DBTX
}

// NewUnitOfWork returns a UnitOfWork that begins transactions on conn.
func NewUnitOfWork(conn DBTX) *UnitOfWork {
	return &UnitOfWork{conn: conn}
}

// Do implements order.UnitOfWork. The error returned by fn is passed through
// unchanged, joined with a rollback failure if there was one.
func (u *UnitOfWork) Do(ctx context.Context, fn func(ctx context.Context, s order.Stores) error) error {
	_, err := withTx(ctx, u.conn, func(tx pgx.Tx) (struct{}, error) {
		return struct{}{}, fn(ctx, order.Stores{
			Customers: NewCustomerRepository(tx),
			Products:  NewLockingProductRepository(tx),
			Orders:    NewOrderRepository(tx),
		})
	})
	return err
}
