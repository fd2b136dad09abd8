package handlers

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"finitefield.org/webshop/internal/i18n"
	"finitefield.org/webshop/internal/shop"
	"finitefield.org/webshop/internal/view"
)

func parseHTML(t testing.TB, body []byte) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		t.Fatalf("failed to parse HTML: %v", err)
	}
	return doc
}

func newTestRenderer(t testing.TB) *view.Renderer {
	t.Helper()
	bundle, err := i18n.Load("en", []string{"en", "ja"})
	require.NoError(t, err)
	renderer, err := view.New(bundle)
	require.NoError(t, err)
	return renderer
}

// newTestRouter mounts the registrars without the default middleware stack.
func newTestRouter(reg ...RouteRegistrar) http.Handler {
	return NewRouter(WithRoutes(reg...))
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func formRequest(method, target string, form url.Values, htmx bool) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	return req
}

func sampleCart() shop.CartState {
	return shop.CartState{
		Name:     "QTN-0001",
		Currency: "USD",
		Items: []shop.CartItem{
			{ItemCode: "SKU-MUG", ItemName: "Mug", Qty: 2, Rate: decimal.NewFromInt(12), Amount: decimal.NewFromInt(24)},
		},
		Taxes: []shop.TaxRow{
			{Description: "Standard Shipping", TaxAmount: decimal.NewFromInt(5)},
		},
		ShippingRules: []shop.ShippingRule{
			{Name: "Standard", Label: "Standard Shipping"},
			{Name: "Express", Label: "Express Shipping"},
		},
		TotalQty:        2,
		NetTotal:        decimal.NewFromInt(24),
		GrandTotal:      decimal.NewFromInt(29),
		CheckoutEnabled: true,
		ShowPrice:       true,
		Terms:           "**Pay** within 30 days",
	}
}

type stubCart struct {
	state     shop.CartState
	loadErr   error
	updateErr error
	placeErr  error
	placed    string
	reload    bool
	couponErr error

	updates   []shop.CartUpdate
	removed   []string
	rules     []string
	coupons   []shop.CouponRequest
	placement []shop.PlacementKind
}

func (s *stubCart) Cart(context.Context) (shop.CartState, error) {
	return s.state, s.loadErr
}

func (s *stubCart) Update(_ context.Context, upd shop.CartUpdate) (shop.CartState, error) {
	s.updates = append(s.updates, upd)
	if s.updateErr != nil {
		return shop.CartState{}, s.updateErr
	}
	return s.state, nil
}

func (s *stubCart) Remove(_ context.Context, itemCode string) (shop.CartState, error) {
	s.removed = append(s.removed, itemCode)
	if s.updateErr != nil {
		return shop.CartState{}, s.updateErr
	}
	return shop.CartState{Currency: s.state.Currency}, nil
}

func (s *stubCart) ApplyShippingRule(_ context.Context, rule string) (shop.CartState, error) {
	s.rules = append(s.rules, rule)
	if s.updateErr != nil {
		return shop.CartState{}, s.updateErr
	}
	state := s.state
	state.Taxes = []shop.TaxRow{{Description: "Express Shipping", TaxAmount: decimal.NewFromInt(15)}}
	state.GrandTotal = decimal.NewFromInt(39)
	return state, nil
}

func (s *stubCart) ApplyCoupon(_ context.Context, req shop.CouponRequest) (bool, error) {
	s.coupons = append(s.coupons, req)
	return s.reload, s.couponErr
}

func (s *stubCart) Place(_ context.Context, kind shop.PlacementKind, _ string) (string, error) {
	s.placement = append(s.placement, kind)
	return s.placed, s.placeErr
}

type stubLoyalty struct {
	order      shop.OrderSummary
	orderErr   error
	link       string
	redemption shop.Redemption
	ok         bool
	redeemErr  error
}

func (s *stubLoyalty) Order(context.Context, string) (shop.OrderSummary, error) {
	return s.order, s.orderErr
}

func (s *stubLoyalty) PaymentLink(context.Context, shop.OrderSummary) string {
	return s.link
}

func (s *stubLoyalty) Redeem(context.Context, string, string) (shop.Redemption, bool, error) {
	return s.redemption, s.ok, s.redeemErr
}

type stubCatalog struct {
	listing    shop.ProductListing
	listingErr error
	lastQuery  shop.ListingQuery
	info       shop.ProductInfo
	infoErr    error
	wishErr    error
	wished     []string
	unwished   []string
}

func (s *stubCatalog) Listing(_ context.Context, q shop.ListingQuery) (shop.ProductListing, error) {
	s.lastQuery = q
	return s.listing, s.listingErr
}

func (s *stubCatalog) ProductInfo(context.Context, string) (shop.ProductInfo, error) {
	return s.info, s.infoErr
}

func (s *stubCatalog) AddToWishlist(_ context.Context, itemCode string) error {
	s.wished = append(s.wished, itemCode)
	return s.wishErr
}

func (s *stubCatalog) RemoveFromWishlist(_ context.Context, itemCode string) error {
	s.unwished = append(s.unwished, itemCode)
	return s.wishErr
}

type stubDesk struct {
	actions    shop.ItemActions
	actionsErr error
	published  shop.PublishResult
	publishErr error
	website    string
	websiteErr error
	refs       []shop.WebsiteItemRef
	lastName   string
}

func (s *stubDesk) ItemActions(_ context.Context, name string) (shop.ItemActions, error) {
	s.lastName = name
	return s.actions, s.actionsErr
}

func (s *stubDesk) PublishItem(_ context.Context, name string) (shop.PublishResult, error) {
	s.lastName = name
	return s.published, s.publishErr
}

func (s *stubDesk) FindWebsiteItem(_ context.Context, itemCode string) (string, error) {
	s.lastName = itemCode
	return s.website, s.websiteErr
}

func (s *stubDesk) FeaturedProductOptions(context.Context, string) ([]shop.WebsiteItemRef, error) {
	return s.refs, nil
}

type stubPayments struct {
	target string
	err    error
}

func (s stubPayments) CompletionTarget(context.Context, string, string) (string, error) {
	return s.target, s.err
}
