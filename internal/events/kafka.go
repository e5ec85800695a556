// Package events announces order lifecycle events on Kafka.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/xenking/kart-orders/internal/domain/order"
)

// DefaultTopic is used when no topic is configured.
const DefaultTopic = "orders.placed"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

var _ order.Publisher = (*Publisher)(nil)

// Publisher writes an event per placed order, keyed by order id so all
// events of an order land on the same partition.
type Publisher struct {
	w          messageWriter
	propagator propagation.TextMapPropagator
}

// NewPublisher returns a Publisher writing to topic on the given brokers.
func NewPublisher(brokers []string, topic string) *Publisher {
	if topic == "" {
		topic = DefaultTopic
	}
	return newPublisher(&kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	})
}

func newPublisher(w messageWriter) *Publisher {
	return &Publisher{w: w, propagator: otel.GetTextMapPropagator()}
}

// OrderPlaced implements order.Publisher.
func (p *Publisher) OrderPlaced(ctx context.Context, o *order.Order) error {
	msg := kafka.Message{
		Key:   []byte(o.ID),
		Value: encodeOrderPlaced(o),
		Time:  o.CreatedAt,
	}
	p.propagator.Inject(ctx, headerCarrier{msg: &msg})

	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrapf(err, "write order %s", o.ID)
	}
	return nil
}

// Close flushes pending messages.
func (p *Publisher) Close() error {
	return p.w.Close()
}

func encodeOrderPlaced(o *order.Order) []byte {
	e := jx.GetEncoder()
	defer jx.PutEncoder(e)

	e.ObjStart()
	e.FieldStart("type")
	e.Str("order.placed")
	e.FieldStart("order_id")
	e.Str(o.ID)
	e.FieldStart("customer_id")
	e.Str(o.CustomerID)
	e.FieldStart("total")
	e.Str(o.Total().StringFixed(2))
	e.FieldStart("items")
	e.ArrStart()
	for _, item := range o.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(item.ProductID)
		e.FieldStart("price")
		e.Str(item.Price.StringFixed(2))
		e.FieldStart("quantity")
		e.Int(item.Quantity)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("created_at")
	e.Str(o.CreatedAt.UTC().Format(time.RFC3339Nano))
	e.ObjEnd()

	return append([]byte(nil), e.Bytes()...)
}

// headerCarrier adapts Kafka message headers to propagation.TextMapCarrier.
type headerCarrier struct {
	msg *kafka.Message
}

func (c headerCarrier) Get(key string) string {
	for _, h := range c.msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c headerCarrier) Set(key, value string) {
	for i, h := range c.msg.Headers {
		if h.Key == key {
			c.msg.Headers[i].Value = []byte(value)
			return
		}
	}
	c.msg.Headers = append(c.msg.Headers, kafka.Header{Key: key, Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c.msg.Headers))
	for _, h := range c.msg.Headers {
		keys = append(keys, h.Key)
	}
	return keys
}
