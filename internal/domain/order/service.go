package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-orders/internal/domain/customer"
	"github.com/xenking/kart-orders/internal/domain/product"
)

const instrumentationName = "github.com/xenking/kart-orders/internal/domain/order"

// Option configures a Service.
type Option func(*options)

type options struct {
	publisher Publisher
	tracers   trace.TracerProvider
	meters    metric.MeterProvider
}

// WithPublisher sets where placed orders are announced. By default nothing
// is published.
func WithPublisher(p Publisher) Option {
	return func(o *options) { o.publisher = p }
}

// WithTracerProvider overrides the global tracer provider.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(o *options) { o.tracers = tp }
}

// WithMeterProvider overrides the global meter provider.
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) { o.meters = mp }
}

// Service encapsulates order placement business logic.
type Service struct {
	uow       UnitOfWork
	publisher Publisher
	tracer    trace.Tracer
	placed    metric.Int64Counter
}

// NewService creates an order Service that reads and writes through uow.
func NewService(uow UnitOfWork, opts ...Option) (*Service, error) {
	o := options{
		publisher: nopPublisher{},
		tracers:   otel.GetTracerProvider(),
		meters:    otel.GetMeterProvider(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	placed, err := o.meters.Meter(instrumentationName).Int64Counter("orders.placed",
		metric.WithDescription("Order placement attempts by outcome"),
	)
	if err != nil {
		return nil, errors.Wrap(err, "create orders.placed counter")
	}

	return &Service{
		uow:       uow,
		publisher: o.publisher,
		tracer:    o.tracers.Tracer(instrumentationName),
		placed:    placed,
	}, nil
}

// PlaceOrder checks the customer and requested products, reserves stock,
// persists the order and returns it. Repeated product ids are merged into a
// single line. Validation failures, including non-positive or oversized
// quantities, are returned before any write.
func (s *Service) PlaceOrder(ctx context.Context, req PlaceOrderRequest) (_ *Order, rerr error) {
	items, mergeErr := merge(req.Items)

	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder", trace.WithAttributes(
		attribute.String("customer.id", req.CustomerID),
		attribute.Int("order.lines", len(items)),
	))
	defer func() {
		if rerr != nil {
			span.RecordError(rerr)
			span.SetStatus(codes.Error, rerr.Error())
		}
		s.placed.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome(rerr))))
		span.End()
	}()
	if mergeErr != nil {
		return nil, mergeErr
	}

	var placed *Order
	if err := s.uow.Do(ctx, func(ctx context.Context, st Stores) error {
		o, err := place(ctx, st, req.CustomerID, items)
		if err != nil {
			return err
		}
		placed = o
		return nil
	}); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", placed.ID))

	lg := zctx.From(ctx)
	lg.Info("Order placed",
		zap.String("order_id", placed.ID),
		zap.String("customer_id", placed.CustomerID),
		zap.Int("lines", len(placed.Items)),
	)

	// The order is committed at this point; a lost event is not a failed order.
	if err := s.publisher.OrderPlaced(ctx, placed); err != nil {
		lg.Warn("Publish order placed", zap.String("order_id", placed.ID), zap.Error(err))
	}

	return placed, nil
}

// place runs the lookups, validation and writes of a single placement.
func place(ctx context.Context, st Stores, customerID string, items []RequestedItem) (*Order, error) {
	c, err := st.Customers.FindByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, customer.ErrNotFound) {
			return nil, &CustomerNotFoundError{CustomerID: customerID}
		}
		return nil, errors.Wrap(err, "find customer")
	}

	ids := lo.Map(items, func(item RequestedItem, _ int) string { return item.ProductID })
	found, err := st.Products.FindAllByID(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "find products")
	}

	lines, updates, err := reserve(items, found)
	if err != nil {
		return nil, err
	}

	o, err := st.Orders.Create(ctx, *c, lines)
	if err != nil {
		return nil, errors.Wrap(err, "create order")
	}
	if err := st.Products.UpdateQuantities(ctx, updates); err != nil {
		return nil, errors.Wrap(err, "update stock")
	}
	return o, nil
}

// reserve matches found products against the requested items and computes
// the order lines and the remaining stock of every product. Items must
// already be merged. It never writes.
func reserve(items []RequestedItem, found []product.Product) ([]OrderItem, []product.QuantityUpdate, error) {
	requested := make(map[string]int, len(items))
	for _, item := range items {
		requested[item.ProductID] = item.Quantity
	}

	byID := make(map[string]product.Product, len(found))
	var unexpected []string
	for _, p := range found {
		if _, ok := requested[p.ID]; !ok {
			unexpected = append(unexpected, p.ID)
			continue
		}
		byID[p.ID] = p
	}

	var missing []string
	for _, item := range items {
		if _, ok := byID[item.ProductID]; !ok {
			missing = append(missing, item.ProductID)
		}
	}
	if len(found) != len(items) || len(unexpected) > 0 || len(missing) > 0 {
		return nil, nil, &UnknownProductsError{Missing: missing, Unexpected: unexpected}
	}

	lines := make([]OrderItem, 0, len(items))
	updates := make([]product.QuantityUpdate, 0, len(items))
	for _, item := range items {
		p := byID[item.ProductID]
		if item.Quantity > p.Quantity {
			return nil, nil, &InsufficientStockError{
				ProductID: p.ID,
				Requested: item.Quantity,
				Available: p.Quantity,
			}
		}
		lines = append(lines, OrderItem{
			ProductID: p.ID,
			Price:     p.Price,
			Quantity:  item.Quantity,
		})
		updates = append(updates, product.QuantityUpdate{
			ProductID: p.ID,
			Quantity:  p.Quantity - item.Quantity,
		})
	}
	return lines, updates, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "placed"
	case errors.Is(err, ErrInvalidCustomer):
		return "invalid_customer"
	case errors.Is(err, ErrInvalidProducts):
		return "invalid_products"
	case errors.Is(err, ErrInsufficientStock):
		return "insufficient_stock"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	default:
		return "error"
	}
}
