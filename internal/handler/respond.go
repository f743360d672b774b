package handler

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/jfs-fashion/storefront/internal/checkout"
	"github.com/jfs-fashion/storefront/internal/domain/cart"
	"github.com/jfs-fashion/storefront/internal/domain/catalog"
	"github.com/jfs-fashion/storefront/internal/domain/order"
	"github.com/jfs-fashion/storefront/internal/domain/payment"
	"github.com/jfs-fashion/storefront/internal/domain/promotion"
	"github.com/jfs-fashion/storefront/internal/domain/shipping"
)

const maxBodyBytes = 1 << 20

// Error is the JSON body of every non-2xx response.
type Error struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (e *Error) Error() string { return e.Message }

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	return v
}

// decodeBody decodes a JSON request body into dst and validates it.
// Failures are returned as *Error with status 400.
func decodeBody(r *http.Request, dst any) error {
	defer func() { _, _ = io.Copy(io.Discard, r.Body) }()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return &Error{Code: http.StatusBadRequest, Message: "invalid request body: " + err.Error()}
	}
	if err := validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return &Error{Code: http.StatusBadRequest, Message: err.Error()}
		}
		fields := make(map[string]string, len(verrs))
		for _, fe := range verrs {
			fields[fieldPath(fe)] = validationMessage(fe)
		}
		return &Error{Code: http.StatusBadRequest, Message: "validation failed", Fields: fields}
	}
	return nil
}

// fieldPath strips the root struct name from the namespace,
// e.g. "orderRequest.items[0].variantId" becomes "items[0].variantId".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	}
	return "is invalid"
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to an HTTP status and writes it as an Error body.
// Unexpected errors are logged and hidden behind a generic message.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	e := mapError(err)
	if e.Code >= http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("path", r.URL.Path),
			zap.Int("status", e.Code),
			zap.Error(err),
		)
	}
	writeJSON(w, e.Code, e)
}

func mapError(err error) *Error {
	var httpErr *Error
	if errors.As(err, &httpErr) {
		return httpErr
	}

	var (
		variantErr  *order.VariantNotFoundError
		quantityErr *order.InvalidQuantityError
		zoneErr     *shipping.ZoneNotFoundError
		gatewayErr  *payment.GatewayError
	)
	switch {
	case errors.Is(err, catalog.ErrNotFound),
		errors.Is(err, order.ErrNotFound):
		return &Error{Code: http.StatusNotFound, Message: rootMessage(err)}
	case errors.Is(err, order.ErrEmptyItems),
		errors.Is(err, order.ErrInvalidPaymentMethod),
		errors.Is(err, order.ErrMissingCustomerEmail),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, payment.ErrUnsupportedProvider):
		return &Error{Code: http.StatusBadRequest, Message: rootMessage(err)}
	case errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, catalog.ErrVariantNotFound),
		errors.Is(err, order.ErrShippingZoneNotFound),
		errors.Is(err, promotion.ErrInvalidCode),
		errors.Is(err, promotion.ErrExpired),
		errors.Is(err, promotion.ErrUsageLimitReached),
		errors.Is(err, promotion.ErrMinimumNotMet):
		return &Error{Code: http.StatusUnprocessableEntity, Message: rootMessage(err)}
	case errors.As(err, &variantErr):
		return &Error{Code: http.StatusUnprocessableEntity, Message: variantErr.Error()}
	case errors.As(err, &quantityErr):
		return &Error{Code: http.StatusUnprocessableEntity, Message: quantityErr.Error()}
	case errors.As(err, &zoneErr):
		return &Error{Code: http.StatusUnprocessableEntity, Message: zoneErr.Error()}
	case errors.As(err, &gatewayErr):
		return &Error{Code: http.StatusBadGateway, Message: "payment provider unavailable"}
	}
	return &Error{Code: http.StatusInternalServerError, Message: "internal error"}
}

// rootMessage returns the message of the innermost error, dropping the wrap
// context added on the way up.
func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
