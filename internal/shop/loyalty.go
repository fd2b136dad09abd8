package shop

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"finitefield.org/webshop/internal/rpc"
)

// OrderSummary is the sales order shown on the order page.
type OrderSummary struct {
	DocType         string
	Name            string
	Customer        string
	Currency        string
	Status          string
	TransactionDate string
	Items           []CartItem
	Taxes           []TaxRow
	NetTotal        decimal.Decimal
	GrandTotal      decimal.Decimal
	LoyaltyPoints   int
}

type orderPayload struct {
	DocType         string            `json:"doctype"`
	Name            string            `json:"name"`
	Customer        string            `json:"customer"`
	Currency        string            `json:"currency"`
	Status          string            `json:"status"`
	TransactionDate string            `json:"transaction_date"`
	Items           []cartItemPayload `json:"items"`
	Taxes           []taxRowPayload   `json:"taxes"`
	NetTotal        decimal.Decimal   `json:"net_total"`
	GrandTotal      decimal.Decimal   `json:"grand_total"`
	LoyaltyPoints   flexInt           `json:"loyalty_points"`
}

func (p orderPayload) toSummary() OrderSummary {
	summary := OrderSummary{
		DocType:         p.DocType,
		Name:            p.Name,
		Customer:        p.Customer,
		Currency:        p.Currency,
		Status:          p.Status,
		TransactionDate: p.TransactionDate,
		NetTotal:        p.NetTotal,
		GrandTotal:      p.GrandTotal,
		LoyaltyPoints:   int(p.LoyaltyPoints),
	}
	if summary.DocType == "" {
		summary.DocType = DocTypeSalesOrder
	}
	for _, item := range p.Items {
		summary.Items = append(summary.Items, CartItem{
			ItemCode: item.ItemCode,
			ItemName: item.ItemName,
			Qty:      int(item.Qty),
			UOM:      item.UOM,
			Rate:     item.Rate,
			Amount:   item.Amount,
		})
	}
	for _, tax := range p.Taxes {
		summary.Taxes = append(summary.Taxes, TaxRow{Description: tax.Description, TaxAmount: tax.TaxAmount})
	}
	return summary
}

// Redemption is the outcome of a loyalty point redemption attempt.
type Redemption struct {
	Points     int
	Amount     decimal.Decimal
	Accepted   bool
	MaxPoints  int64
	Message    string
	PaymentURL string
}

// ParsePoints reads the leading integer of the entered point count, so "12.5" and "12 pts" both
// give 12. ok is false for anything that should be ignored: input without leading digits and
// non-positive values.
func ParsePoints(raw string) (points int, ok bool) {
	text := strings.TrimLeftFunc(raw, unicode.IsSpace)
	end := 0
	if end < len(text) && (text[end] == '+' || text[end] == '-') {
		end++
	}
	digits := end
	for end < len(text) && text[end] >= '0' && text[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	points, err := strconv.Atoi(text[:end])
	if err != nil || points <= 0 {
		return 0, false
	}
	return points, true
}

// EvaluateRedemption checks points against the order total. amount = factor * points; the
// redemption is rejected iff amount exceeds grandTotal, in which case MaxPoints reports
// floor(grandTotal / factor).
func EvaluateRedemption(points int, factor, grandTotal decimal.Decimal) (Redemption, error) {
	if !factor.IsPositive() {
		return Redemption{}, ErrNoRedemptionFactor
	}

	amount := factor.Mul(decimal.NewFromInt(int64(points)))
	r := Redemption{Points: points, Amount: amount}
	if amount.GreaterThan(grandTotal) {
		r.MaxPoints = grandTotal.Div(factor).Floor().IntPart()
		r.Message = fmt.Sprintf("You can only redeem max %d points in this order.", r.MaxPoints)
		return r, nil
	}

	r.Accepted = true
	r.Message = fmt.Sprintf("%d Loyalty Points of amount %s is applied.", points, amount.String())
	return r, nil
}

// PaymentRequestURL builds the "Pay Remaining" link. Parameters keep their fixed order;
// loyalty_points is omitted for a non-positive points value and payment_gateway_account is only
// added when gatewayAccount is set.
func PaymentRequestURL(endpoint, orderName, docType string, points int, gatewayAccount string) string {
	params := [][2]string{
		{"dn", orderName},
		{"dt", docType},
		{"submit_doc", "1"},
		{"order_type", "Shopping Cart"},
	}
	if points > 0 {
		params = append(params, [2]string{"loyalty_points", strconv.Itoa(points)})
	}
	if gatewayAccount = strings.TrimSpace(gatewayAccount); gatewayAccount != "" {
		params = append(params, [2]string{"payment_gateway_account", gatewayAccount})
	}

	var b strings.Builder
	b.WriteString(endpoint)
	for i, p := range params {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		b.WriteString(p[0])
		b.WriteByte('=')
		b.WriteString(EscapeComponent(p[1]))
	}
	return b.String()
}

// LoyaltyService evaluates loyalty point redemption on the order page.
type LoyaltyService struct {
	backend     Caller
	settings    *Settings
	paymentPath string
}

// NewLoyaltyService constructs the service. paymentPath is the payment request endpoint that
// the "Pay Remaining" link targets.
func NewLoyaltyService(backend Caller, settings *Settings, paymentPath string) *LoyaltyService {
	return &LoyaltyService{backend: backend, settings: settings, paymentPath: paymentPath}
}

// Order loads a sales order.
func (s *LoyaltyService) Order(ctx context.Context, name string) (OrderSummary, error) {
	var payload orderPayload
	if err := s.backend.Call(ctx, rpc.MethodGet, map[string]any{
		"doctype": DocTypeSalesOrder,
		"name":    name,
	}, &payload); err != nil {
		return OrderSummary{}, err
	}
	return payload.toSummary(), nil
}

// RedemptionFactor returns the monetary value of one loyalty point for customer. A missing or
// non-positive factor yields ErrNoRedemptionFactor.
func (s *LoyaltyService) RedemptionFactor(ctx context.Context, customer string) (decimal.Decimal, error) {
	var factor *decimal.Decimal
	if err := s.backend.Call(ctx, rpc.MethodGetRedemptionFactor, map[string]any{
		"customer": customer,
	}, &factor); err != nil {
		return decimal.Zero, err
	}
	if factor == nil || !factor.IsPositive() {
		return decimal.Zero, ErrNoRedemptionFactor
	}
	return *factor, nil
}

// PaymentLink is the "Pay Remaining" link shown before any redemption. A failed gateway
// setting lookup leaves the parameter out.
func (s *LoyaltyService) PaymentLink(ctx context.Context, order OrderSummary) string {
	gateway, err := s.settings.String(ctx, DocTypeWebshopSettings, FieldPaymentGatewayAccount)
	if err != nil {
		gateway = ""
	}
	return PaymentRequestURL(s.paymentPath, order.Name, order.DocType, 0, gateway)
}

// Redeem applies rawPoints to the order. ok is false when the input is ignored. An accepted
// redemption carries the rewritten payment URL.
func (s *LoyaltyService) Redeem(ctx context.Context, orderName, rawPoints string) (r Redemption, ok bool, err error) {
	points, ok := ParsePoints(rawPoints)
	if !ok {
		return Redemption{}, false, nil
	}

	order, err := s.Order(ctx, orderName)
	if err != nil {
		return Redemption{}, true, err
	}
	factor, err := s.RedemptionFactor(ctx, order.Customer)
	if err != nil {
		return Redemption{}, true, err
	}
	r, err = EvaluateRedemption(points, factor, order.GrandTotal)
	if err != nil || !r.Accepted {
		return r, true, err
	}

	gateway, err := s.settings.String(ctx, DocTypeWebshopSettings, FieldPaymentGatewayAccount)
	if err != nil {
		return Redemption{}, true, err
	}
	r.PaymentURL = PaymentRequestURL(s.paymentPath, order.Name, order.DocType, points, gateway)
	return r, true, nil
}
