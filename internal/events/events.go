// Package events publishes domain events for downstream consumers
// (fulfilment, notifications, analytics).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"

	"github.com/jfs-fashion/storefront/internal/domain/order"
)

var (
	_ order.Publisher = (*KafkaPublisher)(nil)
	_ order.Publisher = Noop{}
)

// OrderPlaced is the payload of the order-placed event.
type OrderPlaced struct {
	OrderID       string       `json:"orderId"`
	OrderNumber   string       `json:"orderNumber"`
	Email         string       `json:"email"`
	PaymentMethod string       `json:"paymentMethod"`
	Total         string       `json:"total"`
	Items         []order.Item `json:"items"`
	PlacedAt      time.Time    `json:"placedAt"`
}

// NewOrderPlaced builds the event payload for o.
func NewOrderPlaced(o *order.Order) OrderPlaced {
	return OrderPlaced{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Email:         o.Customer.Email,
		PaymentMethod: string(o.PaymentMethod),
		Total:         o.Total.StringFixed(2),
		Items:         o.Items,
		PlacedAt:      o.CreatedAt,
	}
}

// Writer is the subset of *kafka.Writer used by KafkaPublisher.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaConfig configures the Kafka publisher.
type KafkaConfig struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
	WriteTimeout time.Duration
}

// KafkaPublisher writes order events to a Kafka topic keyed by order id.
type KafkaPublisher struct {
	w Writer
}

// NewKafkaPublisher creates a publisher backed by a kafka-go writer.
func NewKafkaPublisher(cfg KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{w: &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		BatchTimeout:           cfg.BatchTimeout,
		WriteTimeout:           cfg.WriteTimeout,
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}}
}

// OrderPlaced publishes the order-placed event for o.
func (p *KafkaPublisher) OrderPlaced(ctx context.Context, o *order.Order) error {
	value, err := json.Marshal(NewOrderPlaced(o))
	if err != nil {
		return errors.Wrap(err, "marshal order event")
	}
	msg := kafka.Message{
		Key:   []byte(o.ID),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("order.placed")},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "write order event")
	}
	return nil
}

// Close flushes pending messages and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// Noop discards events. It is used when no brokers are configured.
type Noop struct{}

// OrderPlaced implements order.Publisher.
func (Noop) OrderPlaced(context.Context, *order.Order) error { return nil }
