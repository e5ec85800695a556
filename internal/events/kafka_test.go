package events

import (
	"context"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/xenking/kart-orders/internal/domain/order"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func testOrder() *order.Order {
	return &order.Order{
		ID:         "0b5f4c1e-6f2a-4d8e-9a57-3f1c2d4e5a6b",
		CustomerID: "C1",
		Items: []order.OrderItem{
			{ProductID: "P1", Price: decimal.NewFromInt(10), Quantity: 3},
			{ProductID: "P2", Price: decimal.RequireFromString("19.5"), Quantity: 2},
		},
		CreatedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublisher_OrderPlaced(t *testing.T) {
	w := &mockWriter{}
	p := newPublisher(w)
	p.propagator = propagation.TraceContext{}

	spanCtx := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    trace.TraceID{1},
		SpanID:     trace.SpanID{2},
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), spanCtx)

	o := testOrder()
	require.NoError(t, p.OrderPlaced(ctx, o))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, o.ID, string(msg.Key))
	assert.Equal(t, "traceparent", msg.Headers[0].Key)

	got := map[string]string{}
	var quantities []int
	d := jx.DecodeBytes(msg.Value)
	require.NoError(t, d.ObjBytes(func(d *jx.Decoder, key []byte) error {
		if string(key) == "items" {
			return d.Arr(func(d *jx.Decoder) error {
				return d.ObjBytes(func(d *jx.Decoder, key []byte) error {
					if string(key) != "quantity" {
						return d.Skip()
					}
					n, err := d.Int()
					quantities = append(quantities, n)
					return err
				})
			})
		}
		s, err := d.Str()
		got[string(key)] = s
		return err
	}))

	assert.Equal(t, map[string]string{
		"type":        "order.placed",
		"order_id":    o.ID,
		"customer_id": "C1",
		"total":       "69.00",
		"created_at":  "2026-03-01T12:00:00Z",
	}, got)
	assert.Equal(t, []int{3, 2}, quantities)
}

func TestPublisher_WriteError(t *testing.T) {
	w := &mockWriter{err: errors.New("no brokers")}
	p := newPublisher(w)

	err := p.OrderPlaced(context.Background(), testOrder())
	require.ErrorIs(t, err, w.err)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
