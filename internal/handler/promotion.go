package handler

import (
	"net/http"

	"github.com/shopspring/decimal"
)

type validatePromotionRequest struct {
	Code        string          `json:"code" validate:"required"`
	OrderAmount decimal.Decimal `json:"orderAmount"`
}

type promotionResponse struct {
	Code     string  `json:"code"`
	Discount float64 `json:"discount"`
	Message  string  `json:"message"`
}

// ValidatePromotion checks a promo code against an order amount without
// redeeming it.
func (h *Handler) ValidatePromotion(w http.ResponseWriter, r *http.Request) {
	var req validatePromotionRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if req.OrderAmount.IsNegative() {
		writeError(w, r, &Error{Code: http.StatusBadRequest, Message: "orderAmount must not be negative"})
		return
	}

	d, err := h.promos.Validate(r.Context(), req.Code, req.OrderAmount)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, promotionResponse{
		Code:     d.Code,
		Discount: money(d.Amount),
		Message:  d.Message,
	})
}
