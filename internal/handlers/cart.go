package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/webshop/internal/middleware"
	"finitefield.org/webshop/internal/platform/httpx"
	"finitefield.org/webshop/internal/platform/observability"
	"finitefield.org/webshop/internal/platform/requestctx"
	"finitefield.org/webshop/internal/shop"
	"finitefield.org/webshop/internal/view"
)

const (
	cartPath         = "/cart"
	cartUpdatedEvent = "cart:updated"
)

// CartService is the cart behaviour the handlers depend on.
type CartService interface {
	Cart(ctx context.Context) (shop.CartState, error)
	Update(ctx context.Context, upd shop.CartUpdate) (shop.CartState, error)
	Remove(ctx context.Context, itemCode string) (shop.CartState, error)
	ApplyShippingRule(ctx context.Context, rule string) (shop.CartState, error)
	ApplyCoupon(ctx context.Context, req shop.CouponRequest) (bool, error)
	Place(ctx context.Context, kind shop.PlacementKind, sessionKey string) (string, error)
}

// CartHandlers serves the cart page and its htmx interactions.
type CartHandlers struct {
	cart          CartService
	view          *view.Renderer
	couponLimiter *middleware.KeyedLimiter
}

// NewCartHandlers constructs the handlers. A nil couponLimiter disables coupon throttling.
func NewCartHandlers(cart CartService, renderer *view.Renderer, couponLimiter *middleware.KeyedLimiter) *CartHandlers {
	return &CartHandlers{cart: cart, view: renderer, couponLimiter: couponLimiter}
}

type cartPageData struct {
	Cart        shop.CartState
	Error       template.HTML
	Terms       template.HTML
	ShowActions bool
	Checkout    bool
}

func newCartPageData(state shop.CartState) cartPageData {
	return cartPageData{
		Cart:        state,
		ShowActions: !state.IsEmpty(),
		Checkout:    state.CheckoutEnabled,
	}
}

// Routes wires the cart endpoints.
func (h *CartHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/cart", h.page)
	r.Get("/cart/terms", h.terms)
	r.Post("/cart/items", h.updateItem)
	r.Post("/cart/items/step", h.stepItem)
	r.Post("/cart/items/remove", h.removeItem)
	r.Post("/cart/add", h.addItem)
	r.Post("/cart/shipping-rule", h.shippingRule)
	r.Post("/cart/place-order", h.place(shop.PlaceOrder))
	r.Post("/cart/request-quotation", h.place(shop.RequestQuotation))
	r.With(middleware.RateLimit(h.couponLimiter, middleware.SessionKey)).Post("/cart/coupon", h.coupon)
}

func (h *CartHandlers) page(w http.ResponseWriter, r *http.Request) {
	lang := middleware.Lang(r)
	state, err := h.cart.Cart(r.Context())
	if err != nil {
		msg := userMessage(r, "cart load failed", err)
		v := pageView(r, h.view.T(lang, "cart.title"), messageBox{
			Title:   h.view.T(lang, "cart.load_error_title"),
			Message: msg,
		})
		v.HideCartIcon = true
		if err := h.view.Page(w, http.StatusBadGateway, "message", v); err != nil {
			renderFailed(w, r, err)
		}
		return
	}
	h.renderPage(w, r, http.StatusOK, newCartPageData(state))
}

func (h *CartHandlers) renderPage(w http.ResponseWriter, r *http.Request, status int, data cartPageData) {
	v := pageView(r, h.view.T(middleware.Lang(r), "cart.title"), data)
	v.HideCartIcon = true
	v.CartCount = data.Cart.ItemCount()
	if err := h.view.Page(w, status, "cart", v); err != nil {
		renderFailed(w, r, err)
	}
}

func (h *CartHandlers) terms(w http.ResponseWriter, r *http.Request) {
	state, err := h.cart.Cart(r.Context())
	if err != nil {
		writeBackendError(w, r, "cart terms load failed", err)
		return
	}
	data := newCartPageData(state)
	data.Terms = h.view.Markdown(state.Terms)
	if err := h.view.Fragment(w, http.StatusOK, "cart_terms", pageView(r, "", data)); err != nil {
		renderFailed(w, r, err)
	}
}

// notesField returns the submitted notes, or nil when the form has no notes field.
func notesField(r *http.Request) *string {
	values, ok := r.PostForm["additional_notes"]
	if !ok {
		return nil
	}
	notes := ""
	if len(values) > 0 {
		notes = values[0]
	}
	return &notes
}

func (h *CartHandlers) updateItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderFailure(w, r, http.StatusBadRequest, h.view.T(middleware.Lang(r), "cart.invalid_qty"))
		return
	}
	qty, err := shop.ParseQty(r.PostFormValue("qty"))
	if err != nil {
		h.renderFailure(w, r, http.StatusBadRequest, h.view.T(middleware.Lang(r), "cart.invalid_qty"))
		return
	}
	h.applyUpdate(w, r, shop.CartUpdate{
		ItemCode:        r.PostFormValue("item_code"),
		Qty:             qty,
		AdditionalNotes: notesField(r),
	})
}

func (h *CartHandlers) stepItem(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderFailure(w, r, http.StatusBadRequest, shop.GenericFailureMessage)
		return
	}
	current, err := shop.ParseQty(r.PostFormValue("qty"))
	if err != nil {
		h.renderFailure(w, r, http.StatusBadRequest, h.view.T(middleware.Lang(r), "cart.invalid_qty"))
		return
	}
	dir, err := shop.ParseStepDirection(r.PostFormValue("dir"))
	if err != nil {
		h.renderFailure(w, r, http.StatusBadRequest, shop.GenericFailureMessage)
		return
	}
	h.applyUpdate(w, r, shop.CartUpdate{
		ItemCode:        r.PostFormValue("item_code"),
		Qty:             shop.Step(current, dir),
		AdditionalNotes: notesField(r),
	})
}

func (h *CartHandlers) removeItem(w http.ResponseWriter, r *http.Request) {
	state, err := h.cart.Remove(r.Context(), r.PostFormValue("item_code"))
	h.respondCart(w, r, state, err)
}

func (h *CartHandlers) applyUpdate(w http.ResponseWriter, r *http.Request, upd shop.CartUpdate) {
	state, err := h.cart.Update(r.Context(), upd)
	h.respondCart(w, r, state, err)
}

// respondCart re-renders the items table, totals and actions from the backend's cart.
func (h *CartHandlers) respondCart(w http.ResponseWriter, r *http.Request, state shop.CartState, err error) {
	if err != nil {
		h.writeFailure(w, r, "cart update failed", err)
		return
	}
	httpx.Trigger(w, cartUpdatedEvent, map[string]int{"count": state.ItemCount()})
	if !httpx.IsHTMX(r) {
		http.Redirect(w, r, cartPath, http.StatusSeeOther)
		return
	}
	if err := h.view.Fragment(w, http.StatusOK, "cart_updated", pageView(r, "", newCartPageData(state))); err != nil {
		renderFailed(w, r, err)
	}
}

func (h *CartHandlers) addItem(w http.ResponseWriter, r *http.Request) {
	state, err := h.cart.Update(r.Context(), shop.CartUpdate{ItemCode: r.PostFormValue("item_code"), Qty: 1})
	if err != nil {
		writeBackendError(w, r, "add to cart failed", err)
		return
	}
	httpx.Trigger(w, cartUpdatedEvent, map[string]int{"count": state.ItemCount()})
	if httpx.IsHTMX(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, cartPath, http.StatusSeeOther)
}

func (h *CartHandlers) shippingRule(w http.ResponseWriter, r *http.Request) {
	state, err := h.cart.ApplyShippingRule(r.Context(), r.PostFormValue("shipping_rule"))
	if err != nil {
		h.writeFailure(w, r, "shipping rule failed", err)
		return
	}
	if !httpx.IsHTMX(r) {
		http.Redirect(w, r, cartPath, http.StatusSeeOther)
		return
	}
	if err := h.view.Fragment(w, http.StatusOK, "cart_totals", pageView(r, "", newCartPageData(state))); err != nil {
		renderFailed(w, r, err)
	}
}

func (h *CartHandlers) place(kind shop.PlacementKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name, err := h.cart.Place(r.Context(), kind, middleware.SessionKey(r))
		if err != nil {
			msg := userMessage(r, "cart placement failed", err)
			data := cartPageData{
				Error:       h.view.Message(msg),
				ShowActions: true,
				Checkout:    kind == shop.PlaceOrder,
			}
			if !httpx.IsHTMX(r) {
				h.renderPageWithError(w, r, http.StatusOK, data.Error)
				return
			}
			retargetError(w)
			if err := h.view.Fragment(w, http.StatusOK, "place_failed", pageView(r, "", data)); err != nil {
				renderFailed(w, r, err)
			}
			return
		}

		target := kind.URL(name)
		requestctx.Logger(r.Context()).Info("cart placed", zap.String("kind", string(kind)), zap.String("name", observability.SanitizeIdentifier(name)))
		if !httpx.IsHTMX(r) {
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		w.Header().Set("HX-Redirect", target)
		if err := h.view.Fragment(w, http.StatusOK, "cart_actions_hidden", pageView(r, "", cartPageData{})); err != nil {
			renderFailed(w, r, err)
		}
	}
}

func (h *CartHandlers) coupon(w http.ResponseWriter, r *http.Request) {
	reload, err := h.cart.ApplyCoupon(r.Context(), shop.CouponRequest{
		Code:                 r.PostFormValue("coupon_code"),
		ReferralSalesPartner: r.PostFormValue("referral_sales_partner"),
	})
	if err != nil {
		h.writeFailure(w, r, "coupon failed", err)
		return
	}
	if reload {
		httpx.Refresh(w, r, cartPath)
		return
	}
	if httpx.IsHTMX(r) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	http.Redirect(w, r, cartPath, http.StatusSeeOther)
}

func (h *CartHandlers) writeFailure(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := http.StatusOK
	if errors.Is(err, shop.ErrInvalidInput) || errors.Is(err, shop.ErrInvalidQuantity) {
		status = http.StatusBadRequest
	}
	h.renderFailure(w, r, status, userMessage(r, msg, err))
}

// renderFailure fills the cart error region. htmx requests are retargeted at #cart-error; other
// requests get the full page with the message.
func (h *CartHandlers) renderFailure(w http.ResponseWriter, r *http.Request, status int, message string) {
	sanitized := h.view.Message(message)
	if !httpx.IsHTMX(r) {
		h.renderPageWithError(w, r, status, sanitized)
		return
	}
	retargetError(w)
	if err := h.view.Fragment(w, status, "cart_error", pageView(r, "", cartPageData{Error: sanitized})); err != nil {
		renderFailed(w, r, err)
	}
}

func (h *CartHandlers) renderPageWithError(w http.ResponseWriter, r *http.Request, status int, message template.HTML) {
	state, err := h.cart.Cart(r.Context())
	if err != nil {
		requestctx.Logger(r.Context()).Warn("cart reload failed", zap.Error(err))
	}
	data := newCartPageData(state)
	data.Error = message
	h.renderPage(w, r, status, data)
}

func retargetError(w http.ResponseWriter) {
	w.Header().Set("HX-Retarget", "#cart-error")
	w.Header().Set("HX-Reswap", "outerHTML")
}
