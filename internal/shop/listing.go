package shop

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"finitefield.org/webshop/internal/platform/requestctx"
	"finitefield.org/webshop/internal/rpc"
)

// DefaultPageLength applies when products_per_page is unset or zero.
const DefaultPageLength = 20

// ViewMode is the persisted product listing layout preference.
type ViewMode string

const (
	ListView        ViewMode = "List View"
	GridView        ViewMode = "Grid View"
	DefaultViewMode          = ListView
)

// ParseViewMode validates a submitted view mode.
func ParseViewMode(raw string) (ViewMode, error) {
	switch mode := ViewMode(strings.TrimSpace(raw)); mode {
	case ListView, GridView:
		return mode, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidViewMode, raw)
	}
}

// ViewModeOrDefault returns the stored preference, or List View when none or an unknown value is
// stored.
func ViewModeOrDefault(raw string) ViewMode {
	mode, err := ParseViewMode(raw)
	if err != nil {
		return DefaultViewMode
	}
	return mode
}

// IsGrid reports whether cards render in grid layout.
func (m ViewMode) IsGrid() bool { return m == GridView }

// ListingQuery selects a page of the product listing.
type ListingQuery struct {
	ItemGroup        string
	Start            int
	Search           string
	FieldFilters     map[string][]string
	AttributeFilters map[string][]string
}

// ProductCard is one listed website item.
type ProductCard struct {
	Name           string
	ItemCode       string
	ItemName       string
	ItemGroup      string
	Route          string
	Image          string
	Price          decimal.Decimal
	FormattedPrice string
	InStock        bool
	InCart         bool
	Wished         bool
}

// ProductListing is one page of product cards.
type ProductListing struct {
	Items      []ProductCard
	Total      int
	Start      int
	PageLength int
	ItemGroup  string
	Search     string
	ViewMode   ViewMode
}

// HasPrev reports whether an earlier page exists.
func (l ProductListing) HasPrev() bool { return l.Start > 0 }

// HasNext reports whether a later page exists.
func (l ProductListing) HasNext() bool { return l.Start+l.PageLength < l.Total }

// PrevStart is the start offset of the previous page.
func (l ProductListing) PrevStart() int {
	if prev := l.Start - l.PageLength; prev > 0 {
		return prev
	}
	return 0
}

// NextStart is the start offset of the next page.
func (l ProductListing) NextStart() int { return l.Start + l.PageLength }

type listingPayload struct {
	Items []struct {
		Name           string          `json:"name"`
		ItemCode       string          `json:"item_code"`
		ItemName       string          `json:"item_name"`
		WebItemName    string          `json:"web_item_name"`
		ItemGroup      string          `json:"item_group"`
		Route          string          `json:"route"`
		Image          string          `json:"website_image"`
		PriceListRate  decimal.Decimal `json:"price_list_rate"`
		FormattedPrice string          `json:"formatted_price"`
		InStock        flexBool        `json:"in_stock"`
		InCart         flexBool        `json:"in_cart"`
		Wished         flexBool        `json:"wished"`
	} `json:"items"`
	ItemsCount flexInt `json:"items_count"`
}

// ProductInfo is the price and stock fragment of a product page.
type ProductInfo struct {
	ItemCode       string
	Price          decimal.Decimal
	FormattedPrice string
	Currency       string
	HasPrice       bool
	UOM            string
	StockQty       int
	InStock        bool
	OnBackorder    bool
	ShowStockQty   bool
	CartQty        int
	CartEnabled    bool
	ShowPrice      bool
}

type productInfoPayload struct {
	ProductInfo struct {
		Price *struct {
			PriceListRate  decimal.Decimal `json:"price_list_rate"`
			FormattedPrice string          `json:"formatted_price"`
			Currency       string          `json:"currency"`
		} `json:"price"`
		Qty          flexInt  `json:"qty"`
		UOM          string   `json:"uom"`
		StockQty     flexInt  `json:"stock_qty"`
		InStock      flexBool `json:"in_stock"`
		OnBackorder  flexBool `json:"on_backorder"`
		ShowStockQty flexBool `json:"show_stock_qty"`
	} `json:"product_info"`
	CartSettings struct {
		Enabled   flexBool `json:"enabled"`
		ShowPrice flexBool `json:"show_price"`
	} `json:"cart_settings"`
}

// CatalogService serves the product listing, product info and wishlist actions.
type CatalogService struct {
	backend  Caller
	settings *Settings
}

// NewCatalogService constructs the service.
func NewCatalogService(backend Caller, settings *Settings) *CatalogService {
	return &CatalogService{backend: backend, settings: settings}
}

// PageLength returns products_per_page, defaulting to 20.
func (s *CatalogService) PageLength(ctx context.Context) (int, error) {
	return s.settings.Int(ctx, DocTypeWebshopSettings, FieldProductsPerPage, DefaultPageLength)
}

// Listing loads one page of products.
func (s *CatalogService) Listing(ctx context.Context, q ListingQuery) (ProductListing, error) {
	if q.Start < 0 {
		q.Start = 0
	}
	listing := ProductListing{
		Start:     q.Start,
		ItemGroup: strings.TrimSpace(q.ItemGroup),
		Search:    strings.TrimSpace(q.Search),
	}

	queryArgs := map[string]any{
		"start":             q.Start,
		"field_filters":     nonNilFilters(q.FieldFilters),
		"attribute_filters": nonNilFilters(q.AttributeFilters),
	}
	if listing.ItemGroup != "" {
		queryArgs["item_group"] = listing.ItemGroup
	}
	if listing.Search != "" {
		queryArgs["search"] = listing.Search
	}

	var payload listingPayload
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		length, err := s.PageLength(gctx)
		if err != nil {
			requestctx.Logger(ctx).Warn("page length lookup failed", zap.Error(err))
			length = DefaultPageLength
		}
		listing.PageLength = length
		return nil
	})
	g.Go(func() error {
		return s.backend.Call(gctx, rpc.MethodGetProductFilterData, map[string]any{"query_args": queryArgs}, &payload)
	})
	if err := g.Wait(); err != nil {
		return ProductListing{}, err
	}

	listing.Total = int(payload.ItemsCount)
	for _, item := range payload.Items {
		name := item.WebItemName
		if name == "" {
			name = item.ItemName
		}
		listing.Items = append(listing.Items, ProductCard{
			Name:           item.Name,
			ItemCode:       item.ItemCode,
			ItemName:       name,
			ItemGroup:      item.ItemGroup,
			Route:          item.Route,
			Image:          item.Image,
			Price:          item.PriceListRate,
			FormattedPrice: item.FormattedPrice,
			InStock:        bool(item.InStock),
			InCart:         bool(item.InCart),
			Wished:         bool(item.Wished),
		})
	}
	if listing.Total < len(listing.Items) {
		listing.Total = q.Start + len(listing.Items)
	}
	return listing, nil
}

func nonNilFilters(filters map[string][]string) map[string][]string {
	if filters == nil {
		return map[string][]string{}
	}
	return filters
}

// ProductInfo loads price, stock and cart quantity for one item.
func (s *CatalogService) ProductInfo(ctx context.Context, itemCode string) (ProductInfo, error) {
	itemCode = strings.TrimSpace(itemCode)
	if itemCode == "" {
		return ProductInfo{}, fmt.Errorf("%w: missing item code", ErrInvalidInput)
	}

	var payload productInfoPayload
	if err := s.backend.Call(ctx, rpc.MethodGetProductInfo, map[string]any{"item_code": itemCode}, &payload); err != nil {
		return ProductInfo{}, err
	}

	p := payload.ProductInfo
	info := ProductInfo{
		ItemCode:     itemCode,
		UOM:          p.UOM,
		StockQty:     int(p.StockQty),
		InStock:      bool(p.InStock),
		OnBackorder:  bool(p.OnBackorder),
		ShowStockQty: bool(p.ShowStockQty),
		CartQty:      int(p.Qty),
		CartEnabled:  bool(payload.CartSettings.Enabled),
		ShowPrice:    bool(payload.CartSettings.ShowPrice),
	}
	if p.Price != nil {
		info.HasPrice = true
		info.Price = p.Price.PriceListRate
		info.FormattedPrice = p.Price.FormattedPrice
		info.Currency = p.Price.Currency
	}
	return info, nil
}

// AddToWishlist stores itemCode in the shopper's wishlist.
func (s *CatalogService) AddToWishlist(ctx context.Context, itemCode string) error {
	return s.wishlist(ctx, rpc.MethodAddToWishlist, itemCode)
}

// RemoveFromWishlist drops itemCode from the shopper's wishlist.
func (s *CatalogService) RemoveFromWishlist(ctx context.Context, itemCode string) error {
	return s.wishlist(ctx, rpc.MethodRemoveFromWishlist, itemCode)
}

func (s *CatalogService) wishlist(ctx context.Context, method, itemCode string) error {
	itemCode = strings.TrimSpace(itemCode)
	if itemCode == "" {
		return fmt.Errorf("%w: missing item code", ErrInvalidInput)
	}
	return s.backend.Call(ctx, method, map[string]any{"item_code": itemCode}, nil)
}
