package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfs-fashion/storefront/internal/domain/order"
)

type mockWriter struct {
	msgs []kafka.Message
	err  error
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	m.msgs = append(m.msgs, msgs...)
	return m.err
}

func (m *mockWriter) Close() error { return nil }

func testOrder() *order.Order {
	return &order.Order{
		ID:            "o-1",
		OrderNumber:   "JFS-20260301-ABCDEF",
		Customer:      order.CustomerInfo{Email: "ada@example.com"},
		PaymentMethod: order.PaymentCard,
		Total:         decimal.RequireFromString("12500"),
		Items: []order.Item{
			{VariantID: "v1", ProductID: "p1", Quantity: 2},
		},
		CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestKafkaPublisher_OrderPlaced(t *testing.T) {
	w := &mockWriter{}
	p := &KafkaPublisher{w: w}

	require.NoError(t, p.OrderPlaced(context.Background(), testOrder()))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "o-1", string(msg.Key))
	require.Len(t, msg.Headers, 1)
	assert.Equal(t, "order.placed", string(msg.Headers[0].Value))

	var ev OrderPlaced
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "JFS-20260301-ABCDEF", ev.OrderNumber)
	assert.Equal(t, "12500.00", ev.Total)
	assert.Equal(t, "ada@example.com", ev.Email)
	require.Len(t, ev.Items, 1)
	assert.Equal(t, 2, ev.Items[0].Quantity)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	p := &KafkaPublisher{w: &mockWriter{err: errors.New("no brokers")}}

	err := p.OrderPlaced(context.Background(), testOrder())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "write order event")
}

func TestNoop(t *testing.T) {
	assert.NoError(t, Noop{}.OrderPlaced(context.Background(), testOrder()))
}
