package customer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
)

// ErrNotFound is returned when a requested customer does not exist.
var ErrNotFound = errors.New("customer not found")

// Customer is a buyer that orders are placed for.
type Customer struct {
	ID        string
	Name      string
	Email     string
	CreatedAt time.Time
}

// Repository defines read operations for customers.
type Repository interface {
	// FindByID returns ErrNotFound when no customer has the given id.
	FindByID(ctx context.Context, id string) (*Customer, error)
}
