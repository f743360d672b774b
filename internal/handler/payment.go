package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/jfs-fashion/storefront/internal/domain/payment"
)

type initializePaymentRequest struct {
	OrderID  string `json:"orderId" validate:"required"`
	Email    string `json:"email" validate:"omitempty,email"`
	Provider string `json:"provider" validate:"required,oneof=paystack flutterwave"`
}

type paymentResponse struct {
	AuthorizationURL string `json:"authorizationUrl,omitempty"`
	PaymentURL       string `json:"paymentUrl,omitempty"`
	Reference        string `json:"reference"`
}

func newPaymentResponse(p *payment.Result) *paymentResponse {
	if p == nil {
		return nil
	}
	return &paymentResponse{
		AuthorizationURL: p.AuthorizationURL,
		PaymentURL:       p.PaymentURL,
		Reference:        p.Reference,
	}
}

// InitializePayment starts a payment for a placed order. The amount is taken
// from the stored order, never from the request.
func (h *Handler) InitializePayment(w http.ResponseWriter, r *http.Request) {
	var req initializePaymentRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	o, err := h.orders.Get(r.Context(), req.OrderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if !o.PaymentMethod.Electronic() {
		writeError(w, r, &Error{Code: http.StatusConflict, Message: "order is paid on delivery"})
		return
	}
	email := req.Email
	if email == "" {
		email = o.Customer.Email
	}

	res, err := h.payments.Initialize(r.Context(), payment.Request{
		OrderID:  o.ID,
		Amount:   o.Total,
		Email:    email,
		Provider: payment.Provider(req.Provider),
	})
	if err != nil {
		writeError(w, r, errors.Wrap(err, "initialize payment"))
		return
	}
	writeJSON(w, http.StatusOK, newPaymentResponse(res))
}
