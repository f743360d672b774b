package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentMethod is how the shopper intends to pay.
type PaymentMethod string

const (
	PaymentCard         PaymentMethod = "card"
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentOnDelivery   PaymentMethod = "pay_on_delivery"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCard, PaymentBankTransfer, PaymentOnDelivery:
		return true
	}
	return false
}

// Electronic reports whether m requires a payment provider redirect.
func (m PaymentMethod) Electronic() bool {
	return m == PaymentCard || m == PaymentBankTransfer
}

// Status is the lifecycle state of an order.
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
)

// Address is a shipping destination.
type Address struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode,omitempty"`
	Country    string `json:"country"`
}

// CustomerInfo identifies the shopper placing the order.
type CustomerInfo struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

// LineRequest is a requested variant and quantity.
type LineRequest struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// Item is a priced order line.
type Item struct {
	VariantID string          `json:"variantId"`
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Size      string          `json:"size"`
	Color     string          `json:"color"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

// Order is a placed customer order with its pricing breakdown.
type Order struct {
	ID              string
	OrderNumber     string
	Items           []Item
	ShippingZoneID  string
	ShippingAddress Address
	Customer        CustomerInfo
	PaymentMethod   PaymentMethod
	PromoCode       string
	Subtotal        decimal.Decimal
	BulkSavings     decimal.Decimal
	ShippingFee     decimal.Decimal
	PromoDiscount   decimal.Decimal
	Total           decimal.Decimal
	Status          Status
	CreatedAt       time.Time
}

// Repository defines persistence operations for orders.
type Repository interface {
	Create(ctx context.Context, order *Order) error
	GetByID(ctx context.Context, id string) (*Order, error)
}

// Publisher announces placed orders to downstream consumers.
type Publisher interface {
	OrderPlaced(ctx context.Context, o *Order) error
}
