package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jfs-fashion/storefront/internal/domain/order"
)

type addressRequest struct {
	Line1      string `json:"line1" validate:"required"`
	Line2      string `json:"line2"`
	City       string `json:"city" validate:"required"`
	State      string `json:"state" validate:"required"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a addressRequest) domain() order.Address {
	country := a.Country
	if country == "" {
		country = "NG"
	}
	return order.Address{
		Line1:      a.Line1,
		Line2:      a.Line2,
		City:       a.City,
		State:      a.State,
		PostalCode: a.PostalCode,
		Country:    country,
	}
}

type customerRequest struct {
	FirstName string `json:"firstName" validate:"required"`
	LastName  string `json:"lastName"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone"`
}

func (c customerRequest) domain() order.CustomerInfo {
	return order.CustomerInfo{
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Email:     c.Email,
		Phone:     c.Phone,
	}
}

type orderLineRequest struct {
	VariantID string `json:"variantId" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	Items           []orderLineRequest `json:"items" validate:"required,min=1,dive"`
	ShippingZoneID  string             `json:"shippingZoneId" validate:"required"`
	ShippingAddress addressRequest     `json:"shippingAddress"`
	CustomerInfo    customerRequest    `json:"customerInfo"`
	PromoCode       string             `json:"promoCode"`
	PaymentMethod   string             `json:"paymentMethod" validate:"required,oneof=card bank_transfer pay_on_delivery"`
}

type createOrderResponse struct {
	ID          string  `json:"id"`
	OrderNumber string  `json:"orderNumber"`
	Total       float64 `json:"total"`
}

type orderItemResponse struct {
	VariantID string  `json:"variantId"`
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Size      string  `json:"size"`
	Color     string  `json:"color"`
	UnitPrice float64 `json:"unitPrice"`
	Quantity  int     `json:"quantity"`
	LineTotal float64 `json:"lineTotal"`
}

type orderResponse struct {
	ID              string              `json:"id"`
	OrderNumber     string              `json:"orderNumber"`
	Status          string              `json:"status"`
	Items           []orderItemResponse `json:"items"`
	ShippingZoneID  string              `json:"shippingZoneId"`
	ShippingAddress order.Address       `json:"shippingAddress"`
	CustomerInfo    order.CustomerInfo  `json:"customerInfo"`
	PaymentMethod   string              `json:"paymentMethod"`
	PromoCode       string              `json:"promoCode,omitempty"`
	Subtotal        float64             `json:"subtotal"`
	BulkSavings     float64             `json:"bulkSavings"`
	ShippingFee     float64             `json:"shippingFee"`
	PromoDiscount   float64             `json:"promoDiscount"`
	Total           float64             `json:"total"`
	CreatedAt       time.Time           `json:"createdAt"`
}

// CreateOrder prices and places an order from explicit lines.
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	lines := make([]order.LineRequest, len(req.Items))
	for i, it := range req.Items {
		lines[i] = order.LineRequest{VariantID: it.VariantID, Quantity: it.Quantity}
	}
	res, err := h.orders.Create(r.Context(), order.CreateRequest{
		Items:           lines,
		ShippingZoneID:  req.ShippingZoneID,
		ShippingAddress: req.ShippingAddress.domain(),
		Customer:        req.CustomerInfo.domain(),
		PromoCode:       req.PromoCode,
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createOrderResponse{
		ID:          res.ID,
		OrderNumber: res.OrderNumber,
		Total:       money(res.Total),
	})
}

// GetOrder returns an order by id or order number.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderId"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	items := make([]orderItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemResponse{
			VariantID: it.VariantID,
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Color:     it.Color,
			UnitPrice: money(it.UnitPrice),
			Quantity:  it.Quantity,
			LineTotal: money(it.LineTotal),
		}
	}
	writeJSON(w, http.StatusOK, orderResponse{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		Status:          string(o.Status),
		Items:           items,
		ShippingZoneID:  o.ShippingZoneID,
		ShippingAddress: o.ShippingAddress,
		CustomerInfo:    o.Customer,
		PaymentMethod:   string(o.PaymentMethod),
		PromoCode:       o.PromoCode,
		Subtotal:        money(o.Subtotal),
		BulkSavings:     money(o.BulkSavings),
		ShippingFee:     money(o.ShippingFee),
		PromoDiscount:   money(o.PromoDiscount),
		Total:           money(o.Total),
		CreatedAt:       o.CreatedAt,
	})
}
