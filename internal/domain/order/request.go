package order

import (
	"math"

	"github.com/go-faster/errors"
)

// MaxQuantity is the largest quantity a single product can be ordered in,
// summed over all lines naming it. It matches the INTEGER stock column.
const MaxQuantity = math.MaxInt32

// PlaceOrderRequest holds the input for placing an order.
type PlaceOrderRequest struct {
	CustomerID string
	Items      []RequestedItem
}

// RequestedItem is a product and the quantity the customer wants of it.
type RequestedItem struct {
	ProductID string
	Quantity  int
}

// Validate checks the request shape. It is meant for the boundary layer;
// Service.PlaceOrder does not call it but applies the same quantity rules.
func (r PlaceOrderRequest) Validate() error {
	if r.CustomerID == "" {
		return ErrMissingCustomer
	}
	if len(r.Items) == 0 {
		return ErrEmptyItems
	}
	for _, item := range r.Items {
		if item.ProductID == "" {
			return errors.New("product id required")
		}
	}
	_, err := merge(r.Items)
	return err
}

// merge collapses repeated product ids into one entry with the summed
// quantity, keeping the position of the first occurrence. Every quantity
// must be positive and no sum may exceed MaxQuantity.
func merge(items []RequestedItem) ([]RequestedItem, error) {
	pos := make(map[string]int, len(items))
	out := make([]RequestedItem, 0, len(items))
	for _, item := range items {
		switch {
		case item.Quantity <= 0:
			return nil, &InvalidQuantityError{ProductID: item.ProductID}
		case item.Quantity > MaxQuantity:
			return nil, &InvalidQuantityError{ProductID: item.ProductID, TooLarge: true}
		}
		if i, ok := pos[item.ProductID]; ok {
			if out[i].Quantity > MaxQuantity-item.Quantity {
				return nil, &InvalidQuantityError{ProductID: item.ProductID, TooLarge: true}
			}
			out[i].Quantity += item.Quantity
			continue
		}
		pos[item.ProductID] = len(out)
		out = append(out, item)
	}
	return out, nil
}
