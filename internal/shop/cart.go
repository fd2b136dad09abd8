package shop

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	"finitefield.org/webshop/internal/rpc"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// CartItem is one quotation row.
type CartItem struct {
	ItemCode        string
	ItemName        string
	Qty             int
	UOM             string
	Rate            decimal.Decimal
	Amount          decimal.Decimal
	AdditionalNotes string
	Image           string
	Route           string
}

// TaxRow is a tax or shipping charge line.
type TaxRow struct {
	Description string
	TaxAmount   decimal.Decimal
}

// ShippingRule is an applicable shipping rule offered as a selector option.
type ShippingRule struct {
	Name  string
	Label string
}

// CartState is the shopper's cart as last reported by the backend.
type CartState struct {
	Name                 string
	Currency             string
	Items                []CartItem
	Taxes                []TaxRow
	TotalQty             int
	NetTotal             decimal.Decimal
	DiscountAmount       decimal.Decimal
	GrandTotal           decimal.Decimal
	CouponCode           string
	ReferralSalesPartner string
	ShippingRule         string
	Terms                string
	ShippingRules        []ShippingRule
	CheckoutEnabled      bool
	ShowPrice            bool
}

// IsEmpty reports whether the cart has no rows.
func (c CartState) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount is the badge count shown in the header.
func (c CartState) ItemCount() int {
	if c.TotalQty > 0 {
		return c.TotalQty
	}
	total := 0
	for _, item := range c.Items {
		total += item.Qty
	}
	return total
}

// HasShippingRules reports whether tax rows render as a shipping rule selector.
func (c CartState) HasShippingRules() bool {
	return len(c.ShippingRules) > 0
}

// SelectedRule reports whether rule is the option pre-selected on a tax row: its label equals
// the row description.
func (t TaxRow) SelectedRule(rule ShippingRule) bool {
	return rule.Label == t.Description
}

type cartItemPayload struct {
	ItemCode        string          `json:"item_code"`
	ItemName        string          `json:"item_name"`
	Qty             flexInt         `json:"qty"`
	UOM             string          `json:"uom"`
	Rate            decimal.Decimal `json:"rate"`
	Amount          decimal.Decimal `json:"amount"`
	AdditionalNotes string          `json:"additional_notes"`
	Image           string          `json:"website_image"`
	Route           string          `json:"route"`
}

type taxRowPayload struct {
	Description string          `json:"description"`
	TaxAmount   decimal.Decimal `json:"tax_amount"`
}

type cartPayload struct {
	Doc struct {
		Name                 string            `json:"name"`
		Currency             string            `json:"currency"`
		Items                []cartItemPayload `json:"items"`
		Taxes                []taxRowPayload   `json:"taxes"`
		TotalQty             flexInt           `json:"total_qty"`
		NetTotal             decimal.Decimal   `json:"net_total"`
		DiscountAmount       decimal.Decimal   `json:"discount_amount"`
		GrandTotal           decimal.Decimal   `json:"grand_total"`
		CouponCode           string            `json:"coupon_code"`
		ReferralSalesPartner string            `json:"referral_sales_partner"`
		ShippingRule         string            `json:"shipping_rule"`
		Terms                string            `json:"terms"`
	} `json:"doc"`
	ShippingRules [][]string `json:"shipping_rules"`
	CartSettings  struct {
		EnableCheckout flexBool `json:"enable_checkout"`
		ShowPrice      flexBool `json:"show_price"`
	} `json:"cart_settings"`
}

func (p cartPayload) toState() CartState {
	state := CartState{
		Name:                 p.Doc.Name,
		Currency:             p.Doc.Currency,
		TotalQty:             int(p.Doc.TotalQty),
		NetTotal:             p.Doc.NetTotal,
		DiscountAmount:       p.Doc.DiscountAmount,
		GrandTotal:           p.Doc.GrandTotal,
		CouponCode:           p.Doc.CouponCode,
		ReferralSalesPartner: p.Doc.ReferralSalesPartner,
		ShippingRule:         p.Doc.ShippingRule,
		Terms:                p.Doc.Terms,
		CheckoutEnabled:      bool(p.CartSettings.EnableCheckout),
		ShowPrice:            bool(p.CartSettings.ShowPrice),
	}
	for _, item := range p.Doc.Items {
		state.Items = append(state.Items, CartItem{
			ItemCode:        item.ItemCode,
			ItemName:        item.ItemName,
			Qty:             int(item.Qty),
			UOM:             item.UOM,
			Rate:            item.Rate,
			Amount:          item.Amount,
			AdditionalNotes: item.AdditionalNotes,
			Image:           item.Image,
			Route:           item.Route,
		})
	}
	for _, tax := range p.Doc.Taxes {
		state.Taxes = append(state.Taxes, TaxRow{Description: tax.Description, TaxAmount: tax.TaxAmount})
	}
	for _, rule := range p.ShippingRules {
		switch len(rule) {
		case 0:
		case 1:
			state.ShippingRules = append(state.ShippingRules, ShippingRule{Name: rule[0], Label: rule[0]})
		default:
			state.ShippingRules = append(state.ShippingRules, ShippingRule{Name: rule[0], Label: rule[1]})
		}
	}
	return state
}

// CartUpdate is one edited cart row. Qty 0 removes the row. AdditionalNotes is nil when the row
// has no notes field, which leaves stored notes untouched.
type CartUpdate struct {
	ItemCode        string `validate:"required,max=140"`
	Qty             int
	AdditionalNotes *string
}

// CouponRequest carries a coupon code and an optional referral partner.
type CouponRequest struct {
	Code                 string `validate:"max=140"`
	ReferralSalesPartner string `validate:"max=140"`
}

// PlacementKind distinguishes the two checkout actions.
type PlacementKind string

const (
	PlaceOrder       PlacementKind = "place_order"
	RequestQuotation PlacementKind = "request_quotation"
)

// URL is the navigation target for a record created by the placement.
func (k PlacementKind) URL(name string) string {
	if k == RequestQuotation {
		return QuotationURL(name)
	}
	return OrderURL(name)
}

func (k PlacementKind) method() string {
	if k == RequestQuotation {
		return rpc.MethodRequestForQuotation
	}
	return rpc.MethodPlaceOrder
}

// CartService drives cart mutations against the backend.
type CartService struct {
	backend Caller
	flight  singleflight.Group
}

// NewCartService constructs a cart service.
func NewCartService(backend Caller) *CartService {
	return &CartService{backend: backend}
}

// Cart loads the current cart.
func (s *CartService) Cart(ctx context.Context) (CartState, error) {
	var payload cartPayload
	if err := s.backend.Call(ctx, rpc.MethodGetCartQuotation, nil, &payload); err != nil {
		return CartState{}, err
	}
	return payload.toState(), nil
}

// Update sends an edited row and returns the re-rendered cart.
func (s *CartService) Update(ctx context.Context, upd CartUpdate) (CartState, error) {
	upd.ItemCode = strings.TrimSpace(upd.ItemCode)
	if err := validate.Struct(upd); err != nil {
		return CartState{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	args := map[string]any{
		"item_code":  upd.ItemCode,
		"qty":        upd.Qty,
		"with_items": 1,
	}
	if upd.AdditionalNotes != nil {
		args["additional_notes"] = *upd.AdditionalNotes
	}

	var payload cartPayload
	if err := s.backend.Call(ctx, rpc.MethodUpdateCart, args, &payload); err != nil {
		return CartState{}, err
	}
	return payload.toState(), nil
}

// Remove deletes a row by sending quantity 0.
func (s *CartService) Remove(ctx context.Context, itemCode string) (CartState, error) {
	return s.Update(ctx, CartUpdate{ItemCode: itemCode, Qty: 0})
}

// ApplyShippingRule selects a shipping rule and returns the recomputed cart.
func (s *CartService) ApplyShippingRule(ctx context.Context, rule string) (CartState, error) {
	rule = strings.TrimSpace(rule)
	if rule == "" {
		return CartState{}, fmt.Errorf("%w: missing shipping rule", ErrInvalidInput)
	}
	var payload cartPayload
	if err := s.backend.Call(ctx, rpc.MethodApplyShippingRule, map[string]any{"shipping_rule": rule}, &payload); err != nil {
		return CartState{}, err
	}
	return payload.toState(), nil
}

// ApplyCoupon submits a coupon. It reports whether the backend answered with a truthy payload,
// which means the page must reload.
func (s *CartService) ApplyCoupon(ctx context.Context, req CouponRequest) (bool, error) {
	req.Code = strings.TrimSpace(req.Code)
	req.ReferralSalesPartner = strings.TrimSpace(req.ReferralSalesPartner)
	if err := validate.Struct(req); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var payload json.RawMessage
	err := s.backend.Call(ctx, rpc.MethodApplyCouponCode, map[string]any{
		"applied_code":                   req.Code,
		"applied_referral_sales_partner": req.ReferralSalesPartner,
	}, &payload)
	if err != nil {
		return false, err
	}
	return Truthy(payload), nil
}

// Place submits the cart as an order or quotation request and returns the created record name.
// Concurrent submissions sharing sessionKey join the call already in flight, which keeps running
// when the submission that started it goes away; failures are never retried.
func (s *CartService) Place(ctx context.Context, kind PlacementKind, sessionKey string) (string, error) {
	if kind != PlaceOrder && kind != RequestQuotation {
		return "", fmt.Errorf("%w: unknown placement %q", ErrInvalidInput, kind)
	}

	key := string(kind) + ":" + sessionKey
	v, err := sharedCall(ctx, &s.flight, key, func(flightCtx context.Context) (any, error) {
		callCtx := rpc.WithIdempotencyKey(flightCtx, rpc.NewIdempotencyKey())
		var name string
		if err := s.backend.Call(callCtx, kind.method(), nil, &name); err != nil {
			return "", err
		}
		name = strings.TrimSpace(name)
		if name == "" {
			return "", ErrEmptyRecordName
		}
		return name, nil
	})
	if err != nil {
		return "", err
	}
	name, ok := v.(string)
	if !ok {
		return "", errors.New("shop: unexpected placement result")
	}
	return name, nil
}
