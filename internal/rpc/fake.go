package rpc

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/shopspring/decimal"
)

const (
	guestSession      = "guest"
	fakeCustomer      = "Demo Customer"
	fakeCurrency      = "USD"
	fakeTaxLabel      = "VAT 10%"
	defaultFakePage   = 20
	validationErrType = "ValidationError"
	notFoundErrType   = "DoesNotExistError"
)

var fakeTaxRate = decimal.NewFromFloat(0.1)

type fakeHandler func(ctx context.Context, sid string, args map[string]any) (any, error)

type fakeProduct struct {
	ItemCode  string
	ItemName  string
	ItemGroup string
	Route     string
	Image     string
	Price     decimal.Decimal
	StockQty  int
	UOM       string
}

type fakeShippingRule struct {
	Name   string
	Label  string
	Charge decimal.Decimal
}

type fakeCartLine struct {
	ItemCode string
	Qty      int
	Notes    string
}

type fakeCart struct {
	Name         string
	Lines        []fakeCartLine
	ShippingRule string
	CouponCode   string
	Referral     string
}

type fakeWebsiteItem struct {
	Name      string
	ItemCode  string
	ItemName  string
	Route     string
	Published int
}

// Fake is an in-memory stand-in for the ERP backend. It serves the methods the storefront calls
// so the service runs locally without a backend. Safe for concurrent use.
type Fake struct {
	mu sync.Mutex

	entropy  *ulid.MonotonicEntropy
	now      func() time.Time
	handlers map[string]fakeHandler

	products     map[string]fakeProduct
	rules        []fakeShippingRule
	carts        map[string]*fakeCart
	orders       map[string]map[string]any
	quotations   map[string]map[string]any
	wishlists    map[string]map[string]struct{}
	items        map[string]map[string]any
	websiteItems map[string]fakeWebsiteItem
	settings     map[string]map[string]any
	coupons      map[string]decimal.Decimal
	factor       decimal.Decimal
	failures     map[string]*Error
	seq          int
}

// NewFake returns a fake backend seeded with a small demo catalog.
func NewFake() *Fake {
	f := &Fake{
		entropy:      ulid.Monotonic(rand.Reader, 0),
		now:          time.Now,
		products:     make(map[string]fakeProduct),
		carts:        make(map[string]*fakeCart),
		orders:       make(map[string]map[string]any),
		quotations:   make(map[string]map[string]any),
		wishlists:    make(map[string]map[string]struct{}),
		items:        make(map[string]map[string]any),
		websiteItems: make(map[string]fakeWebsiteItem),
		failures:     make(map[string]*Error),
		factor:       decimal.NewFromFloat(0.5),
		coupons: map[string]decimal.Decimal{
			"SAVE10": decimal.NewFromInt(10),
		},
		rules: []fakeShippingRule{
			{Name: "Standard", Label: "Standard Shipping", Charge: decimal.NewFromInt(5)},
			{Name: "Express", Label: "Express Shipping", Charge: decimal.NewFromInt(15)},
		},
		settings: map[string]map[string]any{
			"Webshop Settings": {
				"products_per_page":       defaultFakePage,
				"payment_gateway_account": "",
				"payment_success_url":     "Orders",
				"enable_checkout":         1,
				"show_price":              1,
				"show_stock_availability": 1,
				"terms":                   "## Terms\n\nPrices include **VAT**. Orders ship within 3 business days.",
			},
		},
	}
	f.handlers = map[string]fakeHandler{
		MethodGetCartQuotation:     f.getCartQuotation,
		MethodUpdateCart:           f.updateCart,
		MethodApplyShippingRule:    f.applyShippingRule,
		MethodPlaceOrder:           f.placeOrder,
		MethodRequestForQuotation:  f.requestForQuotation,
		MethodApplyCouponCode:      f.applyCouponCode,
		MethodMakeWebsiteItem:      f.makeWebsiteItem,
		MethodGetRedemptionFactor:  f.getRedemptionFactor,
		MethodGetSingleValue:       f.getSingleValue,
		MethodGetValue:             f.getValue,
		MethodGet:                  f.getDoc,
		MethodGetList:              f.getList,
		MethodGetProductFilterData: f.getProductFilterData,
		MethodGetProductInfo:       f.getProductInfo,
		MethodAddToWishlist:        f.addToWishlist,
		MethodRemoveFromWishlist:   f.removeFromWishlist,
	}

	f.seedProduct(fakeProduct{ItemCode: "SKU-MUG", ItemName: "Ceramic Mug", ItemGroup: "Kitchen", Route: "kitchen/ceramic-mug", Price: decimal.NewFromInt(12), StockQty: 40, UOM: "Nos"}, true)
	f.seedProduct(fakeProduct{ItemCode: "SKU-KETTLE", ItemName: "Electric Kettle", ItemGroup: "Kitchen", Route: "kitchen/electric-kettle", Price: decimal.RequireFromString("49.90"), StockQty: 8, UOM: "Nos"}, true)
	f.seedProduct(fakeProduct{ItemCode: "SKU-TEE", ItemName: "Cotton T-Shirt", ItemGroup: "Apparel", Route: "apparel/cotton-t-shirt", Price: decimal.NewFromInt(25), StockQty: 0, UOM: "Nos"}, true)
	f.seedProduct(fakeProduct{ItemCode: "SKU-CAP", ItemName: "Baseball Cap", ItemGroup: "Apparel", Route: "apparel/baseball-cap", Price: decimal.RequireFromString("18.50"), StockQty: 15, UOM: "Nos"}, true)
	f.seedProduct(fakeProduct{ItemCode: "SKU-LAMP", ItemName: "Desk Lamp", ItemGroup: "Home", Route: "home/desk-lamp", Price: decimal.NewFromInt(35), StockQty: 5, UOM: "Nos"}, false)
	return f
}

func (f *Fake) seedProduct(p fakeProduct, published bool) {
	f.products[p.ItemCode] = p
	f.items[p.ItemCode] = map[string]any{
		"doctype":              "Item",
		"name":                 p.ItemCode,
		"item_code":            p.ItemCode,
		"item_name":            p.ItemName,
		"item_group":           p.ItemGroup,
		"stock_uom":            p.UOM,
		"published_in_website": boolInt(published),
	}
	if published {
		f.insertWebsiteItem(p.ItemCode, p.ItemName, p.Route)
	}
}

func (f *Fake) insertWebsiteItem(itemCode, itemName, route string) fakeWebsiteItem {
	f.seq++
	wi := fakeWebsiteItem{
		Name:      fmt.Sprintf("WEB-ITM-%04d", f.seq),
		ItemCode:  itemCode,
		ItemName:  itemName,
		Route:     route,
		Published: 1,
	}
	f.websiteItems[wi.Name] = wi
	if item, ok := f.items[itemCode]; ok {
		item["published_in_website"] = 1
	}
	return wi
}

// FailNext makes the next call to method fail with the given server messages.
func (f *Fake) FailNext(method string, messages ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures[method] = &Error{
		Method:   method,
		Status:   http.StatusExpectationFailed,
		ExcType:  validationErrType,
		Messages: append([]string(nil), messages...),
	}
}

// SetSetting overrides a single settings value.
func (f *Fake) SetSetting(doctype, field string, value any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settings[doctype] == nil {
		f.settings[doctype] = make(map[string]any)
	}
	f.settings[doctype][field] = value
}

// SetRedemptionFactor sets the loyalty factor returned for every customer. Zero means no program.
func (f *Fake) SetRedemptionFactor(factor decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.factor = factor
}

// Call dispatches method to the matching in-memory handler and decodes the result into out.
func (f *Fake) Call(ctx context.Context, method string, args any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	decoded, err := toArgs(args)
	if err != nil {
		return fmt.Errorf("rpc: encode %s args: %w", method, err)
	}

	f.mu.Lock()
	handler, ok := f.handlers[method]
	if failure, pending := f.failures[method]; pending {
		delete(f.failures, method)
		f.mu.Unlock()
		return failure
	}
	f.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownMethod, method)
	}

	sid := SessionID(ctx)
	if sid == "" {
		sid = guestSession
	}

	f.mu.Lock()
	result, err := handler(ctx, sid, decoded)
	f.mu.Unlock()
	if err != nil {
		if rpcErr, ok := AsError(err); ok && rpcErr.Method == "" {
			rpcErr.Method = method
		}
		return err
	}

	if out == nil || result == nil {
		return nil
	}
	raw, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("rpc: encode %s result: %w", method, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("rpc: decode %s message: %w", method, err)
	}
	return nil
}

func (f *Fake) cart(sid string) *fakeCart {
	c, ok := f.carts[sid]
	if !ok {
		c = &fakeCart{Name: "SAL-QTN-" + f.newID()}
		f.carts[sid] = c
	}
	return c
}

func (f *Fake) newID() string {
	return ulid.MustNew(ulid.Timestamp(f.now()), f.entropy).String()
}

func (f *Fake) getCartQuotation(_ context.Context, sid string, _ map[string]any) (any, error) {
	return f.cartContext(sid), nil
}

func (f *Fake) updateCart(_ context.Context, sid string, args map[string]any) (any, error) {
	itemCode := argString(args, "item_code")
	if _, ok := f.products[itemCode]; !ok {
		return nil, validationError("Item %s is not available for sale", itemCode)
	}
	qty, err := argInt(args, "qty")
	if err != nil {
		return nil, validationError("Quantity must be a whole number")
	}
	if qty < 0 {
		return nil, validationError("Quantity cannot be negative")
	}

	c := f.cart(sid)
	notes, hasNotes := args["additional_notes"]
	idx := -1
	for i, line := range c.Lines {
		if line.ItemCode == itemCode {
			idx = i
			break
		}
	}
	switch {
	case qty == 0 && idx >= 0:
		c.Lines = append(c.Lines[:idx], c.Lines[idx+1:]...)
	case qty == 0:
	case idx >= 0:
		c.Lines[idx].Qty = qty
		if hasNotes && notes != nil {
			c.Lines[idx].Notes = fmt.Sprint(notes)
		}
	default:
		line := fakeCartLine{ItemCode: itemCode, Qty: qty}
		if hasNotes && notes != nil {
			line.Notes = fmt.Sprint(notes)
		}
		c.Lines = append(c.Lines, line)
	}

	if truthy(args["with_items"]) {
		return f.cartContext(sid), nil
	}
	return c.Name, nil
}

func (f *Fake) applyShippingRule(_ context.Context, sid string, args map[string]any) (any, error) {
	name := argString(args, "shipping_rule")
	if _, ok := f.rule(name); !ok {
		return nil, validationError("Shipping rule %s is not applicable", name)
	}
	f.cart(sid).ShippingRule = name
	return f.cartContext(sid), nil
}

func (f *Fake) placeOrder(_ context.Context, sid string, _ map[string]any) (any, error) {
	c := f.cart(sid)
	if len(c.Lines) == 0 {
		return nil, validationError("Your cart is empty")
	}
	totals := f.totals(c)
	name := "SAL-ORD-" + f.newID()
	f.orders[name] = map[string]any{
		"doctype":          "Sales Order",
		"name":             name,
		"customer":         fakeCustomer,
		"currency":         fakeCurrency,
		"status":           "To Deliver and Bill",
		"transaction_date": f.now().UTC().Format("2006-01-02"),
		"items":            f.lineRows(c),
		"taxes":            totals.taxRows,
		"net_total":        money(totals.net),
		"grand_total":      money(totals.grand),
		"loyalty_points":   0,
	}
	delete(f.carts, sid)
	return name, nil
}

func (f *Fake) requestForQuotation(_ context.Context, sid string, _ map[string]any) (any, error) {
	c := f.cart(sid)
	if len(c.Lines) == 0 {
		return nil, validationError("Your cart is empty")
	}
	totals := f.totals(c)
	f.quotations[c.Name] = map[string]any{
		"doctype":     "Quotation",
		"name":        c.Name,
		"party_name":  fakeCustomer,
		"status":      "Submitted",
		"items":       f.lineRows(c),
		"grand_total": money(totals.grand),
	}
	name := c.Name
	delete(f.carts, sid)
	return name, nil
}

func (f *Fake) applyCouponCode(_ context.Context, sid string, args map[string]any) (any, error) {
	code := strings.ToUpper(argString(args, "applied_code"))
	if code == "" {
		return nil, validationError("Please enter a coupon code")
	}
	if _, ok := f.coupons[code]; !ok {
		return nil, validationError("Please enter a valid coupon code")
	}
	c := f.cart(sid)
	c.CouponCode = code
	c.Referral = argString(args, "applied_referral_sales_partner")
	return c.Name, nil
}

func (f *Fake) makeWebsiteItem(_ context.Context, _ string, args map[string]any) (any, error) {
	doc, _ := args["doc"].(map[string]any)
	if raw, ok := args["doc"].(string); ok {
		_ = json.Unmarshal([]byte(raw), &doc)
	}
	itemCode := strings.TrimSpace(fmt.Sprint(valueOr(doc, "item_code", valueOr(doc, "name", ""))))
	if itemCode == "" {
		return nil, validationError("Item is required")
	}
	for _, wi := range f.websiteItems {
		if wi.ItemCode == itemCode {
			return nil, validationError("Website Item already exists against Item %s", itemCode)
		}
	}
	itemName := strings.TrimSpace(fmt.Sprint(valueOr(doc, "item_name", itemCode)))
	wi := f.insertWebsiteItem(itemCode, itemName, slug(itemName))
	return []string{wi.Name, wi.ItemName}, nil
}

func (f *Fake) getRedemptionFactor(_ context.Context, _ string, args map[string]any) (any, error) {
	if argString(args, "customer") == "" || !f.factor.IsPositive() {
		return nil, nil
	}
	return json.RawMessage(f.factor.String()), nil
}

func (f *Fake) getSingleValue(_ context.Context, _ string, args map[string]any) (any, error) {
	values, ok := f.settings[argString(args, "doctype")]
	if !ok {
		return nil, nil
	}
	return values[argString(args, "field")], nil
}

func (f *Fake) getValue(_ context.Context, _ string, args map[string]any) (any, error) {
	doctype := argString(args, "doctype")
	if doctype != "Website Item" {
		return nil, nil
	}
	filters, _ := args["filters"].(map[string]any)
	for _, name := range f.websiteItemNames() {
		row := f.websiteItemRow(f.websiteItems[name])
		if matches(row, filters) {
			return pick(row, fieldNames(args["fieldname"])), nil
		}
	}
	return nil, nil
}

func (f *Fake) getDoc(_ context.Context, _ string, args map[string]any) (any, error) {
	doctype := argString(args, "doctype")
	name := argString(args, "name")
	var doc map[string]any
	switch doctype {
	case "Sales Order":
		doc = f.orders[name]
	case "Quotation":
		doc = f.quotations[name]
	case "Item":
		doc = f.items[name]
	case "Website Item":
		if wi, ok := f.websiteItems[name]; ok {
			doc = f.websiteItemRow(wi)
		}
	}
	if doc == nil {
		return nil, &Error{
			Status:   http.StatusNotFound,
			ExcType:  notFoundErrType,
			Messages: []string{fmt.Sprintf("%s %s not found", doctype, name)},
		}
	}
	return doc, nil
}

func (f *Fake) getList(_ context.Context, _ string, args map[string]any) (any, error) {
	if argString(args, "doctype") != "Website Item" {
		return []any{}, nil
	}
	filters, _ := args["filters"].(map[string]any)
	fields := fieldNames(args["fields"])
	orFilters, _ := args["or_filters"].([]any)
	limit, _ := argInt(args, "limit_page_length")

	rows := make([]map[string]any, 0, len(f.websiteItems))
	for _, name := range f.websiteItemNames() {
		row := f.websiteItemRow(f.websiteItems[name])
		if !matches(row, filters) {
			continue
		}
		if len(orFilters) > 0 && !matchesAny(row, orFilters) {
			continue
		}
		rows = append(rows, pick(row, fields))
		if limit > 0 && len(rows) == limit {
			break
		}
	}
	return rows, nil
}

func (f *Fake) getProductFilterData(_ context.Context, sid string, args map[string]any) (any, error) {
	query, _ := args["query_args"].(map[string]any)
	group := argString(query, "item_group")
	search := strings.ToLower(argString(query, "search"))
	start, _ := argInt(query, "start")
	if start < 0 {
		start = 0
	}
	pageLength := defaultFakePage
	if v, err := argInt(f.settings["Webshop Settings"], "products_per_page"); err == nil && v > 0 {
		pageLength = v
	}

	matched := []map[string]any{}
	for _, name := range f.websiteItemNames() {
		wi := f.websiteItems[name]
		if wi.Published != 1 {
			continue
		}
		p, ok := f.products[wi.ItemCode]
		if !ok {
			continue
		}
		if group != "" && !strings.EqualFold(p.ItemGroup, group) {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(p.ItemName), search) {
			continue
		}
		_, wished := f.wishlists[sid][p.ItemCode]
		matched = append(matched, map[string]any{
			"name":            wi.Name,
			"item_code":       p.ItemCode,
			"item_name":       p.ItemName,
			"web_item_name":   wi.ItemName,
			"item_group":      p.ItemGroup,
			"route":           wi.Route,
			"website_image":   p.Image,
			"price_list_rate": money(p.Price),
			"formatted_price": "$ " + p.Price.StringFixed(2),
			"in_stock":        boolInt(p.StockQty > 0),
			"in_cart":         f.cartQty(sid, p.ItemCode) > 0,
			"wished":          wished,
		})
	}

	total := len(matched)
	end := start + pageLength
	if start > total {
		start = total
	}
	if end > total {
		end = total
	}
	return map[string]any{
		"items":          matched[start:end],
		"items_count":    total,
		"filters":        map[string]any{},
		"sub_categories": []any{},
		"settings": map[string]any{
			"products_per_page": pageLength,
			"enable_wishlist":   1,
			"show_price":        1,
		},
	}, nil
}

func (f *Fake) getProductInfo(_ context.Context, sid string, args map[string]any) (any, error) {
	itemCode := argString(args, "item_code")
	p, ok := f.products[itemCode]
	if !ok {
		return nil, &Error{
			Status:   http.StatusNotFound,
			ExcType:  notFoundErrType,
			Messages: []string{fmt.Sprintf("Item %s not found", itemCode)},
		}
	}
	return map[string]any{
		"product_info": map[string]any{
			"price": map[string]any{
				"price_list_rate": money(p.Price),
				"formatted_price": "$ " + p.Price.StringFixed(2),
				"currency":        fakeCurrency,
			},
			"qty":            f.cartQty(sid, itemCode),
			"uom":            p.UOM,
			"sales_uom":      p.UOM,
			"stock_qty":      p.StockQty,
			"in_stock":       boolInt(p.StockQty > 0),
			"show_stock_qty": 1,
		},
		"cart_settings": map[string]any{
			"enabled":         1,
			"show_price":      1,
			"enable_checkout": 1,
		},
	}, nil
}

func (f *Fake) addToWishlist(_ context.Context, sid string, args map[string]any) (any, error) {
	itemCode := argString(args, "item_code")
	if _, ok := f.products[itemCode]; !ok {
		return nil, validationError("Item %s not found", itemCode)
	}
	if f.wishlists[sid] == nil {
		f.wishlists[sid] = make(map[string]struct{})
	}
	f.wishlists[sid][itemCode] = struct{}{}
	return nil, nil
}

func (f *Fake) removeFromWishlist(_ context.Context, sid string, args map[string]any) (any, error) {
	delete(f.wishlists[sid], argString(args, "item_code"))
	return nil, nil
}

type fakeTotals struct {
	net      decimal.Decimal
	discount decimal.Decimal
	grand    decimal.Decimal
	taxRows  []map[string]any
}

func (f *Fake) totals(c *fakeCart) fakeTotals {
	net := decimal.Zero
	for _, line := range c.Lines {
		net = net.Add(f.products[line.ItemCode].Price.Mul(decimal.NewFromInt(int64(line.Qty))))
	}
	discount := decimal.Zero
	if pct, ok := f.coupons[c.CouponCode]; ok {
		discount = net.Mul(pct).Div(decimal.NewFromInt(100)).Round(2)
	}
	taxable := net.Sub(discount)

	var rows []map[string]any
	grand := taxable
	if rule, ok := f.rule(c.ShippingRule); ok && len(c.Lines) > 0 {
		rows = append(rows, map[string]any{"description": rule.Label, "tax_amount": money(rule.Charge)})
		grand = grand.Add(rule.Charge)
	}
	tax := taxable.Mul(fakeTaxRate).Round(2)
	rows = append(rows, map[string]any{"description": fakeTaxLabel, "tax_amount": money(tax)})
	grand = grand.Add(tax)

	return fakeTotals{net: net, discount: discount, grand: grand, taxRows: rows}
}

func (f *Fake) cartContext(sid string) map[string]any {
	c := f.cart(sid)
	totals := f.totals(c)
	totalQty := 0
	for _, line := range c.Lines {
		totalQty += line.Qty
	}

	rules := make([][]string, 0, len(f.rules))
	for _, rule := range f.rules {
		rules = append(rules, []string{rule.Name, rule.Label})
	}

	return map[string]any{
		"doc": map[string]any{
			"name":                   c.Name,
			"currency":               fakeCurrency,
			"items":                  f.lineRows(c),
			"taxes":                  totals.taxRows,
			"total_qty":              totalQty,
			"net_total":              money(totals.net),
			"discount_amount":        money(totals.discount),
			"grand_total":            money(totals.grand),
			"coupon_code":            c.CouponCode,
			"referral_sales_partner": c.Referral,
			"shipping_rule":          c.ShippingRule,
			"terms":                  f.settings["Webshop Settings"]["terms"],
		},
		"shipping_rules": rules,
		"cart_settings": map[string]any{
			"enable_checkout": f.settings["Webshop Settings"]["enable_checkout"],
			"show_price":      f.settings["Webshop Settings"]["show_price"],
		},
	}
}

func (f *Fake) lineRows(c *fakeCart) []map[string]any {
	rows := make([]map[string]any, 0, len(c.Lines))
	for _, line := range c.Lines {
		p := f.products[line.ItemCode]
		rows = append(rows, map[string]any{
			"item_code":        p.ItemCode,
			"item_name":        p.ItemName,
			"qty":              line.Qty,
			"uom":              p.UOM,
			"rate":             money(p.Price),
			"amount":           money(p.Price.Mul(decimal.NewFromInt(int64(line.Qty)))),
			"additional_notes": line.Notes,
			"website_image":    p.Image,
			"route":            p.Route,
		})
	}
	return rows
}

func (f *Fake) cartQty(sid, itemCode string) int {
	c, ok := f.carts[sid]
	if !ok {
		return 0
	}
	for _, line := range c.Lines {
		if line.ItemCode == itemCode {
			return line.Qty
		}
	}
	return 0
}

func (f *Fake) rule(name string) (fakeShippingRule, bool) {
	for _, rule := range f.rules {
		if rule.Name == name {
			return rule, true
		}
	}
	return fakeShippingRule{}, false
}

func (f *Fake) websiteItemNames() []string {
	names := make([]string, 0, len(f.websiteItems))
	for name := range f.websiteItems {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (f *Fake) websiteItemRow(wi fakeWebsiteItem) map[string]any {
	return map[string]any{
		"doctype":       "Website Item",
		"name":          wi.Name,
		"item_code":     wi.ItemCode,
		"web_item_name": wi.ItemName,
		"item_name":     wi.ItemName,
		"route":         wi.Route,
		"published":     wi.Published,
	}
}

func validationError(format string, args ...any) *Error {
	return &Error{
		Status:   http.StatusExpectationFailed,
		ExcType:  validationErrType,
		Messages: []string{fmt.Sprintf(format, args...)},
	}
}

func toArgs(args any) (map[string]any, error) {
	if args == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	out := map[string]any{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func argString(args map[string]any, key string) string {
	v, ok := args[key]
	if !ok || v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

func argInt(args map[string]any, key string) (int, error) {
	switch v := args[key].(type) {
	case float64:
		return int(v), nil
	case int:
		return v, nil
	case string:
		return strconv.Atoi(strings.TrimSpace(v))
	case nil:
		return 0, fmt.Errorf("missing %s", key)
	default:
		return strconv.Atoi(fmt.Sprint(v))
	}
}

func fieldNames(v any) []string {
	switch fields := v.(type) {
	case string:
		var list []string
		if err := json.Unmarshal([]byte(fields), &list); err == nil {
			return list
		}
		return []string{fields}
	case []any:
		out := make([]string, 0, len(fields))
		for _, field := range fields {
			out = append(out, fmt.Sprint(field))
		}
		return out
	default:
		return nil
	}
}

func matches(row map[string]any, filters map[string]any) bool {
	for key, want := range filters {
		if fmt.Sprint(row[key]) != fmt.Sprint(want) {
			return false
		}
	}
	return true
}

// matchesAny evaluates [field, "like", pattern] filters joined by OR.
func matchesAny(row map[string]any, filters []any) bool {
	for _, f := range filters {
		cond, ok := f.([]any)
		if !ok || len(cond) != 3 {
			continue
		}
		value := strings.ToLower(fmt.Sprint(row[fmt.Sprint(cond[0])]))
		pattern := strings.ToLower(strings.Trim(fmt.Sprint(cond[2]), "%"))
		if strings.Contains(value, pattern) {
			return true
		}
	}
	return false
}

func pick(row map[string]any, fields []string) map[string]any {
	if len(fields) == 0 {
		return row
	}
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		if field == "*" {
			return row
		}
		out[field] = row[field]
	}
	return out
}

func valueOr(doc map[string]any, key string, fallback any) any {
	if v, ok := doc[key]; ok && v != nil && fmt.Sprint(v) != "" {
		return v
	}
	return fallback
}

func truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	case float64:
		return t != 0
	case string:
		return t != "" && t != "0"
	default:
		return true
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func money(d decimal.Decimal) json.RawMessage {
	return json.RawMessage(d.StringFixed(2))
}

func slug(name string) string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	return strings.Join(fields, "-")
}
