package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jfs-fashion/storefront/internal/domain/cart"
	"github.com/jfs-fashion/storefront/internal/domain/catalog"
	"github.com/jfs-fashion/storefront/internal/domain/promotion"
	"github.com/jfs-fashion/storefront/internal/domain/shipping"
)

// Sentinel errors for order validation.
var (
	ErrEmptyItems           = errors.New("items required")
	ErrNotFound             = errors.New("order not found")
	ErrInvalidPaymentMethod = errors.New("invalid payment method")
	ErrShippingZoneNotFound = errors.New("shipping zone not found")
	ErrMissingCustomerEmail = errors.New("customer email required")
)

// VariantNotFoundError indicates a requested variant does not exist.
type VariantNotFoundError struct {
	VariantID string
}

func (e *VariantNotFoundError) Error() string {
	return fmt.Sprintf("variant %s not found", e.VariantID)
}

// InvalidQuantityError indicates a line has a non-positive quantity.
type InvalidQuantityError struct {
	VariantID string
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("quantity must be greater than 0 for variant %s", e.VariantID)
}

// CreateRequest holds the input for placing an order.
type CreateRequest struct {
	Items           []LineRequest
	ShippingZoneID  string
	ShippingAddress Address
	Customer        CustomerInfo
	PromoCode       string
	PaymentMethod   PaymentMethod
}

// Result is the outcome of a successfully placed order.
type Result struct {
	ID          string
	OrderNumber string
	Total       decimal.Decimal
	Order       *Order
	// Discount is the promotion applied to the order, priced against the
	// catalog. Nil without a promo code.
	Discount *promotion.Discount
}

// Service encapsulates order placement.
type Service struct {
	catalog   catalog.Repository
	zones     shipping.Repository
	promos    promotion.Validator
	redeemer  promotion.Redeemer
	orders    Repository
	publisher Publisher
	now       func() time.Time
}

// NewService creates an order Service. publisher may be nil.
func NewService(
	products catalog.Repository,
	zones shipping.Repository,
	promos promotion.Validator,
	redeemer promotion.Redeemer,
	orders Repository,
	publisher Publisher,
) *Service {
	return &Service{
		catalog:   products,
		zones:     zones,
		promos:    promos,
		redeemer:  redeemer,
		orders:    orders,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create validates the request, re-prices every line from the catalog with
// the cart pricing engine, adds the shipping fee, applies the promo code,
// persists the order and returns its identifiers.
//
// Promo redemption and event publication happen after the order is stored;
// their failures are logged and do not undo the order.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Result, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	if !req.PaymentMethod.Valid() {
		return nil, ErrInvalidPaymentMethod
	}
	if strings.TrimSpace(req.Customer.Email) == "" {
		return nil, ErrMissingCustomerEmail
	}

	ids := make([]string, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, &InvalidQuantityError{VariantID: item.VariantID}
		}
		ids[i] = item.VariantID
	}

	fetched, err := s.catalog.GetVariants(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get variants")
	}
	byID := make(map[string]*catalog.VariantDetail, len(fetched))
	for i := range fetched {
		byID[fetched[i].ID] = &fetched[i]
	}

	c := cart.New(nil)
	for _, item := range req.Items {
		v, ok := byID[item.VariantID]
		if !ok {
			return nil, &VariantNotFoundError{VariantID: item.VariantID}
		}
		c.AddItem(cart.ItemFromVariant(v, item.Quantity))
	}
	items := c.Items()
	quote := cart.Price(items)

	zones, err := s.zones.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list shipping zones")
	}
	zone, ok := shipping.Find(zones, req.ShippingZoneID)
	if !ok {
		return nil, ErrShippingZoneNotFound
	}

	var discount *promotion.Discount
	promoDiscount := decimal.Zero
	promoCode := strings.TrimSpace(req.PromoCode)
	if promoCode != "" {
		discount, err = s.promos.Validate(ctx, promoCode, quote.Total)
		if err != nil {
			return nil, errors.Wrap(err, "validate promo code")
		}
		promoDiscount = discount.Amount
	}

	// Total = discounted items + shipping - promo, floored at zero.
	total := quote.Total.Add(zone.Fee).Sub(promoDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	now := s.now().UTC()
	o := &Order{
		ID:              uuid.New().String(),
		OrderNumber:     newOrderNumber(now),
		Items:           orderItems(items, quote),
		ShippingZoneID:  zone.ID,
		ShippingAddress: req.ShippingAddress,
		Customer:        req.Customer,
		PaymentMethod:   req.PaymentMethod,
		PromoCode:       promoCode,
		Subtotal:        quote.Subtotal,
		BulkSavings:     quote.Savings,
		ShippingFee:     zone.Fee.Round(2),
		PromoDiscount:   promoDiscount.Round(2),
		Total:           total.Round(2),
		Status:          StatusPending,
		CreatedAt:       now,
	}
	if err := s.orders.Create(ctx, o); err != nil {
		return nil, errors.Wrap(err, "create order")
	}

	lg := zctx.From(ctx).With(zap.String("order_id", o.ID), zap.String("order_number", o.OrderNumber))
	if promoCode != "" && s.redeemer != nil {
		if err := s.redeemer.Redeem(ctx, promoCode); err != nil {
			lg.Warn("Promo redemption failed", zap.String("promo_code", promoCode), zap.Error(err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.OrderPlaced(ctx, o); err != nil {
			lg.Warn("Order event publish failed", zap.Error(err))
		}
	}
	lg.Info("Order placed", zap.String("total", o.Total.StringFixed(2)))

	return &Result{
		ID:          o.ID,
		OrderNumber: o.OrderNumber,
		Total:       o.Total,
		Order:       o,
		Discount:    discount,
	}, nil
}

// Get returns a placed order by id.
func (s *Service) Get(ctx context.Context, id string) (*Order, error) {
	return s.orders.GetByID(ctx, id)
}

func orderItems(items []cart.Item, quote cart.Quote) []Item {
	out := make([]Item, len(items))
	for i, it := range items {
		line := quote.Lines[i]
		out[i] = Item{
			VariantID: it.VariantID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Color:     it.Color,
			UnitPrice: line.EffectiveUnitPrice.Round(2),
			Quantity:  it.Quantity,
			LineTotal: line.LineTotal.Round(2),
		}
	}
	return out
}

// newOrderNumber returns a human-facing order number, e.g. JFS-20260301-4F2A9C.
func newOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", "")[:6])
	return "JFS-" + now.Format("20060102") + "-" + suffix
}
