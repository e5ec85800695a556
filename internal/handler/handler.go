// Package handler exposes the catalog and order placement over HTTP.
package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/xenking/kart-orders/internal/domain/order"
	"github.com/xenking/kart-orders/internal/domain/product"
)

// maxBodySize caps request bodies read by the handlers.
const maxBodySize = 1 << 20

// OrderPlacer places orders. *order.Service implements it.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, req order.PlaceOrderRequest) (*order.Order, error)
}

var _ OrderPlacer = (*order.Service)(nil)

// Handler serves the /api routes, delegating business logic to the order
// service and reading the catalog and past orders directly.
type Handler struct {
	products product.Reader
	orders   order.Repository
	placer   OrderPlacer
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	products product.Reader,
	orders order.Repository,
	placer OrderPlacer,
) *Handler {
	return &Handler{
		products: products,
		orders:   orders,
		placer:   placer,
	}
}

// Register mounts the API routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{productID}", h.GetProduct)
		r.Post("/orders", h.PlaceOrder)
		r.Get("/orders/{orderID}", h.GetOrder)
	})
}

// Routes returns a router serving only the API routes.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}
