package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/webshop/internal/platform/httpx"
	"finitefield.org/webshop/internal/platform/requestctx"
)

// PaymentService resolves where the shopper lands after paying.
type PaymentService interface {
	CompletionTarget(ctx context.Context, reference, status string) (string, error)
}

// PaymentHandlers serves the payment gateway return URL.
type PaymentHandlers struct {
	payments PaymentService
}

// NewPaymentHandlers constructs the handlers.
func NewPaymentHandlers(payments PaymentService) *PaymentHandlers {
	return &PaymentHandlers{payments: payments}
}

// Routes wires the payment endpoints.
func (h *PaymentHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/payment/complete", h.complete)
}

// complete redirects even when the settings lookup fails; the target then falls back to the
// order page.
func (h *PaymentHandlers) complete(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	target, err := h.payments.CompletionTarget(r.Context(), query.Get("reference"), query.Get("status"))
	if err != nil {
		requestctx.Logger(r.Context()).Warn("payment success url lookup failed", zap.Error(err))
	}
	httpx.Redirect(w, r, target)
}
