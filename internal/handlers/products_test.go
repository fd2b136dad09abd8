package handlers

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"finitefield.org/webshop/internal/rpc"
	"finitefield.org/webshop/internal/shop"
)

func sampleListing() shop.ProductListing {
	return shop.ProductListing{
		Items: []shop.ProductCard{
			{ItemCode: "SKU-MUG", ItemName: "Mug", Route: "mug", FormattedPrice: "$12.00", InStock: true},
			{ItemCode: "SKU TEE", ItemName: "Tee", Route: "tee", FormattedPrice: "$20.00", Wished: true},
		},
		Total:      45,
		Start:      20,
		PageLength: 20,
	}
}

func newProductRouter(t *testing.T, catalog *stubCatalog) http.Handler {
	t.Helper()
	return newTestRouter(NewProductHandlers(catalog, newTestRenderer(t), false).Routes)
}

func TestListingDefaultsToListView(t *testing.T) {
	catalog := &stubCatalog{listing: sampleListing()}
	rec := serve(newProductRouter(t, catalog), httptest.NewRequest(http.MethodGet, "/all-products?start=20&search=mug", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, 20, catalog.lastQuery.Start)
	require.Equal(t, "mug", catalog.lastQuery.Search)

	doc := parseHTML(t, rec.Body.Bytes())
	listing := doc.Find("#product-listing")
	require.True(t, listing.HasClass("product-list"))
	require.Equal(t, string(shop.ListView), listing.AttrOr("data-view-mode", ""))
	require.Equal(t, 2, doc.Find(".product-card").Length())
	require.Equal(t, "/products/SKU%20TEE/info", doc.Find(".product-card[data-item-code='SKU TEE'] .product-info").AttrOr("hx-get", ""))
}

func TestListingHonoursStoredViewMode(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/all-products", nil)
	req.AddCookie(&http.Cookie{Name: viewModeCookie, Value: url.QueryEscape(string(shop.GridView))})
	rec := serve(newProductRouter(t, &stubCatalog{listing: sampleListing()}), req)

	doc := parseHTML(t, rec.Body.Bytes())
	require.True(t, doc.Find("#product-listing").HasClass("product-grid"))
}

func TestListingUnknownStoredViewModeFallsBack(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/all-products", nil)
	req.AddCookie(&http.Cookie{Name: viewModeCookie, Value: "Carousel"})
	rec := serve(newProductRouter(t, &stubCatalog{listing: sampleListing()}), req)

	doc := parseHTML(t, rec.Body.Bytes())
	require.True(t, doc.Find("#product-listing").HasClass("product-list"))
}

func TestListingParsesFilters(t *testing.T) {
	catalog := &stubCatalog{listing: sampleListing()}
	target := "/item-groups/Kitchen%20Ware?f.brand=Acme&f.brand=Globex&a.Colour=Red&start=-3"
	rec := serve(newProductRouter(t, catalog), httptest.NewRequest(http.MethodGet, target, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	q := catalog.lastQuery
	require.Equal(t, "Kitchen Ware", q.ItemGroup)
	require.Zero(t, q.Start)
	require.Equal(t, []string{"Acme", "Globex"}, q.FieldFilters["brand"])
	require.Equal(t, []string{"Red"}, q.AttributeFilters["Colour"])
}

func TestListingPaginationKeepsFilters(t *testing.T) {
	catalog := &stubCatalog{listing: sampleListing()}
	target := "/item-groups/Kitchen%20Ware?search=mug&f.brand=Acme&f.brand=Globex&a.Colour=Red&start=20"
	rec := serve(newProductRouter(t, catalog), httptest.NewRequest(http.MethodGet, target, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	doc := parseHTML(t, rec.Body.Bytes())
	for class, start := range map[string]string{".page-prev": "", ".page-next": "40"} {
		href, ok := doc.Find(class).Attr("href")
		require.True(t, ok, class)
		link, err := url.Parse(href)
		require.NoError(t, err)
		require.Equal(t, "/item-groups/Kitchen%20Ware", link.EscapedPath(), class)
		query := link.Query()
		require.Equal(t, "mug", query.Get("search"), class)
		require.Equal(t, []string{"Acme", "Globex"}, query["f.brand"], class)
		require.Equal(t, []string{"Red"}, query["a.Colour"], class)
		require.Equal(t, start, query.Get("start"), class)
	}
}

func TestListingPaginationWithoutQuery(t *testing.T) {
	listing := sampleListing()
	listing.Start = 0
	rec := serve(newProductRouter(t, &stubCatalog{listing: listing}), httptest.NewRequest(http.MethodGet, "/all-products", nil))

	doc := parseHTML(t, rec.Body.Bytes())
	require.Zero(t, doc.Find(".page-prev").Length())
	require.Equal(t, "/all-products?start=20", doc.Find(".page-next").AttrOr("href", ""))
}

func TestListingFailure(t *testing.T) {
	rec := serve(newProductRouter(t, &stubCatalog{listingErr: errors.New("timeout")}), httptest.NewRequest(http.MethodGet, "/all-products", nil))
	require.Equal(t, http.StatusBadGateway, rec.Code)
	doc := parseHTML(t, rec.Body.Bytes())
	require.Equal(t, shop.GenericFailureMessage, doc.Find(".message-content").Text())
}

func TestSetViewModeStoresCookie(t *testing.T) {
	form := url.Values{"view": {string(shop.GridView)}, "return_to": {"/item-groups/Mugs"}}
	rec := serve(newProductRouter(t, &stubCatalog{}), formRequest(http.MethodPost, "/all-products/view", form, true))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "true", rec.Header().Get("HX-Refresh"))
	res := rec.Result()
	var stored *http.Cookie
	for _, c := range res.Cookies() {
		if c.Name == viewModeCookie {
			stored = c
		}
	}
	require.NotNil(t, stored)
	raw, err := url.QueryUnescape(stored.Value)
	require.NoError(t, err)
	require.Equal(t, string(shop.GridView), raw)

	// the stored cookie round-trips into the next listing
	req := httptest.NewRequest(http.MethodGet, "/all-products", nil)
	req.AddCookie(stored)
	require.Equal(t, shop.GridView, ViewModeFromRequest(req))
}

func TestSetViewModeNonHTMXRedirectsToLocalPathOnly(t *testing.T) {
	form := url.Values{"view": {string(shop.ListView)}, "return_to": {"//evil.example/"}}
	rec := serve(newProductRouter(t, &stubCatalog{}), formRequest(http.MethodPost, "/all-products/view", form, false))

	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, allProductsPath, rec.Header().Get("Location"))
}

func TestSetViewModeRejectsUnknownMode(t *testing.T) {
	rec := serve(newProductRouter(t, &stubCatalog{}), formRequest(http.MethodPost, "/all-products/view", url.Values{"view": {"Carousel"}}, true))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, rec.Result().Cookies())
}

func TestProductInfoFragment(t *testing.T) {
	catalog := &stubCatalog{info: shop.ProductInfo{
		ItemCode:  "SKU-MUG",
		Price:     decimal.NewFromInt(12),
		Currency:  "USD",
		HasPrice:  true,
		ShowPrice: true,
		InStock:   true,
		CartQty:   2,
		UOM:       "Nos",
	}}
	rec := serve(newProductRouter(t, catalog), httptest.NewRequest(http.MethodGet, "/products/SKU-MUG/info", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec.Body.Bytes())
	require.Equal(t, "$12.00", doc.Find(".product-price").Text())
	require.True(t, doc.Find(".product-stock").HasClass("in-stock"))
	require.Contains(t, doc.Find(".product-cart-qty").Text(), "2 Nos")
}

func TestProductInfoNotFound(t *testing.T) {
	catalog := &stubCatalog{infoErr: &rpc.Error{Method: rpc.MethodGetProductInfo, Status: http.StatusNotFound}}
	req := httptest.NewRequest(http.MethodGet, "/products/NOPE/info", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(newProductRouter(t, catalog), req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), `"not_found"`)
}

func TestWishlistToggle(t *testing.T) {
	catalog := &stubCatalog{}
	router := newProductRouter(t, catalog)

	rec := serve(router, formRequest(http.MethodPost, "/wishlist/SKU%20TEE", nil, true))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, []string{"SKU TEE"}, catalog.wished)
	doc := parseHTML(t, rec.Body.Bytes())
	btn := doc.Find("button.like-action")
	require.True(t, btn.HasClass("wished"))
	require.Equal(t, "/wishlist/SKU%20TEE", btn.AttrOr("hx-delete", ""))

	rec = serve(router, formRequest(http.MethodDelete, "/wishlist/SKU%20TEE", nil, true))
	require.Equal(t, []string{"SKU TEE"}, catalog.unwished)
	doc = parseHTML(t, rec.Body.Bytes())
	require.False(t, doc.Find("button.like-action").HasClass("wished"))
	require.Equal(t, "/wishlist/SKU%20TEE", doc.Find("button.like-action").AttrOr("hx-post", ""))
}
