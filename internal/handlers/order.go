package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"finitefield.org/webshop/internal/middleware"
	"finitefield.org/webshop/internal/rpc"
	"finitefield.org/webshop/internal/shop"
	"finitefield.org/webshop/internal/view"
)

// LoyaltyService is the order page behaviour the handlers depend on.
type LoyaltyService interface {
	Order(ctx context.Context, name string) (shop.OrderSummary, error)
	PaymentLink(ctx context.Context, order shop.OrderSummary) string
	Redeem(ctx context.Context, orderName, rawPoints string) (shop.Redemption, bool, error)
}

// OrderHandlers serves the order page and its loyalty redemption widget.
type OrderHandlers struct {
	loyalty LoyaltyService
	view    *view.Renderer
}

// NewOrderHandlers constructs the handlers.
func NewOrderHandlers(loyalty LoyaltyService, renderer *view.Renderer) *OrderHandlers {
	return &OrderHandlers{loyalty: loyalty, view: renderer}
}

type loyaltyResult struct {
	Message    string
	Accepted   bool
	PaymentURL string
}

type orderPageData struct {
	Order      shop.OrderSummary
	PaymentURL string
	LoyaltyURL string
	Loyalty    loyaltyResult
}

// Routes wires the order endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/orders/{name}", h.page)
	r.Post("/orders/{name}/loyalty", h.redeem)
}

func (h *OrderHandlers) page(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	lang := middleware.Lang(r)
	name := pathParam(r, "name")

	order, err := h.loyalty.Order(ctx, name)
	if err != nil {
		status := http.StatusBadGateway
		if rpc.IsNotFound(err) {
			status = http.StatusNotFound
		}
		v := pageView(r, h.view.T(lang, "order.title"), messageBox{
			Title:   h.view.T(lang, "error.title"),
			Message: userMessage(r, "order load failed", err),
		})
		if err := h.view.Page(w, status, "message", v); err != nil {
			renderFailed(w, r, err)
		}
		return
	}

	data := orderPageData{
		Order:      order,
		PaymentURL: h.loyalty.PaymentLink(ctx, order),
		LoyaltyURL: shop.OrderURL(order.Name) + "/loyalty",
	}
	if err := h.view.Page(w, http.StatusOK, "order", pageView(r, h.view.T(lang, "order.title")+" "+order.Name, data)); err != nil {
		renderFailed(w, r, err)
	}
}

// redeem evaluates the points typed into the widget. Ignored input answers 204 so the page
// stays unchanged.
func (h *OrderHandlers) redeem(w http.ResponseWriter, r *http.Request) {
	res, ok, err := h.loyalty.Redeem(r.Context(), pathParam(r, "name"), r.PostFormValue("loyalty_points"))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var result loyaltyResult
	switch {
	case errors.Is(err, shop.ErrNoRedemptionFactor):
		result.Message = h.view.T(middleware.Lang(r), "order.no_loyalty_program")
	case err != nil:
		result.Message = userMessage(r, "loyalty redemption failed", err)
	default:
		result = loyaltyResult{Message: res.Message, Accepted: res.Accepted, PaymentURL: res.PaymentURL}
	}
	if err := h.view.Fragment(w, http.StatusOK, "loyalty_result", pageView(r, "", result)); err != nil {
		renderFailed(w, r, err)
	}
}
