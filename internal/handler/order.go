package handler

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/kart-orders/internal/domain/order"
)

// PlaceOrder decodes and validates the request, delegates to the order
// service and responds with the created order.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "read body: "+err.Error())
		return
	}

	req, err := decodePlaceOrder(body)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "malformed request: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	o, err := h.placer.PlaceOrder(r.Context(), req)
	if err != nil {
		status, msg := mapOrderError(err)
		if status == http.StatusInternalServerError {
			zctx.From(r.Context()).Error("Place order", zap.Error(err))
		}
		writeError(w, r, status, msg)
		return
	}

	writeJSON(w, r, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// GetOrder responds with a previously placed order.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.GetByID(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		if errors.Is(err, order.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "order not found")
			return
		}
		zctx.From(r.Context()).Error("Get order", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, r, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// mapOrderError converts placement errors to a status code and client
// message. Unknown errors are not exposed.
func mapOrderError(err error) (int, string) {
	switch {
	case errors.Is(err, order.ErrInvalidQuantity):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, order.ErrInvalidCustomer),
		errors.Is(err, order.ErrInvalidProducts),
		errors.Is(err, order.ErrInsufficientStock):
		return http.StatusUnprocessableEntity, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
