package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"

	"github.com/jfs-fashion/storefront/internal/checkout"
	"github.com/jfs-fashion/storefront/internal/domain/order"
	"github.com/jfs-fashion/storefront/internal/domain/payment"
)

type checkoutRequest struct {
	ShippingZoneID  string          `json:"shippingZoneId"`
	ShippingAddress addressRequest  `json:"shippingAddress"`
	CustomerInfo    customerRequest `json:"customerInfo"`
	PromoCode       string          `json:"promoCode"`
	PaymentMethod   string          `json:"paymentMethod" validate:"required,oneof=card bank_transfer pay_on_delivery"`
	Provider        string          `json:"provider" validate:"omitempty,oneof=paystack flutterwave"`
}

type checkoutResponse struct {
	Order        createOrderResponse `json:"order"`
	ShippingZone zoneResponse        `json:"shippingZone"`
	Discount     *promotionResponse  `json:"discount,omitempty"`
	Payment      *paymentResponse    `json:"payment,omitempty"`
	RedirectURL  string              `json:"redirectUrl,omitempty"`
	// PaymentError is set when the order was placed but payment could not be
	// started. The client may retry via /payments/initialize.
	PaymentError string `json:"paymentError,omitempty"`
}

// CheckoutCart places an order for the stored cart and starts payment for
// electronic payment methods.
func (h *Handler) CheckoutCart(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	res, err := h.checkout.Checkout(r.Context(), checkout.Request{
		CartID:          chi.URLParam(r, "cartId"),
		ShippingZoneID:  req.ShippingZoneID,
		ShippingAddress: req.ShippingAddress.domain(),
		Customer:        req.CustomerInfo.domain(),
		PromoCode:       req.PromoCode,
		PaymentMethod:   order.PaymentMethod(req.PaymentMethod),
		Provider:        payment.Provider(req.Provider),
	})
	var payErr *checkout.PaymentError
	if err != nil && !errors.As(err, &payErr) {
		writeError(w, r, err)
		return
	}

	resp := checkoutResponse{
		Order: createOrderResponse{
			ID:          res.Order.ID,
			OrderNumber: res.Order.OrderNumber,
			Total:       money(res.Order.Total),
		},
		ShippingZone: zoneResponse{
			ID:     res.Zone.ID,
			Name:   res.Zone.Name,
			States: res.Zone.States,
			Fee:    money(res.Zone.Fee),
		},
		Payment:     newPaymentResponse(res.Payment),
		RedirectURL: res.RedirectURL(),
	}
	if res.Discount != nil {
		resp.Discount = &promotionResponse{
			Code:     res.Discount.Code,
			Discount: money(res.Discount.Amount),
			Message:  res.Discount.Message,
		}
	}
	if payErr != nil {
		resp.PaymentError = mapError(payErr.Err).Message
	}
	writeJSON(w, http.StatusCreated, resp)
}
