package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"finitefield.org/webshop/internal/rpc"
	"finitefield.org/webshop/internal/shop"
)

func newDeskRouter(t *testing.T, desk *stubDesk) http.Handler {
	t.Helper()
	return newTestRouter(NewDeskHandlers(desk, newTestRenderer(t)).Routes)
}

func TestItemActionsOffersPublishOrView(t *testing.T) {
	desk := &stubDesk{actions: shop.ItemActions{ItemCode: "SKU MUG", ItemName: "Mug"}}
	rec := serve(newDeskRouter(t, desk), httptest.NewRequest(http.MethodGet, "/app/item/SKU%20MUG/actions", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "SKU MUG", desk.lastName)
	doc := parseHTML(t, rec.Body.Bytes())
	btn := doc.Find(".btn-publish-website-item")
	require.Equal(t, "Publish in Website", btn.Text())
	require.Equal(t, "/app/item/SKU%20MUG/publish", btn.AttrOr("hx-post", ""))

	desk.actions.Published = true
	rec = serve(newDeskRouter(t, desk), httptest.NewRequest(http.MethodGet, "/app/item/SKU%20MUG/actions", nil))
	doc = parseHTML(t, rec.Body.Bytes())
	require.Equal(t, "View Website Item", doc.Find(".btn-view-website-item").Text())
	require.Equal(t, 0, doc.Find(".btn-publish-website-item").Length())
}

func TestPublishShowsCreatedNotice(t *testing.T) {
	desk := &stubDesk{published: shop.PublishResult{Name: "WEB-ITM-0001", ItemName: "Mug"}}
	rec := serve(newDeskRouter(t, desk), formRequest(http.MethodPost, "/app/item/SKU-MUG/publish", nil, true))

	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec.Body.Bytes())
	notice := doc.Find("#desk-notice")
	require.True(t, notice.HasClass("indicator-green"))
	require.Equal(t, "/app/website-item/WEB-ITM-0001", notice.Find(".notice-message a").AttrOr("href", ""))
	require.Equal(t, "Mug", notice.Find(".notice-message a").Text())
}

func TestPublishFailureShowsServerMessage(t *testing.T) {
	desk := &stubDesk{publishErr: &rpc.Error{Method: rpc.MethodMakeWebsiteItem, Messages: []string{"Website Item already exists"}}}
	rec := serve(newDeskRouter(t, desk), formRequest(http.MethodPost, "/app/item/SKU-MUG/publish", nil, true))

	doc := parseHTML(t, rec.Body.Bytes())
	notice := doc.Find("#desk-notice")
	require.True(t, notice.HasClass("indicator-red"))
	require.Equal(t, "Website Item already exists", notice.Find(".notice-message").Text())
}

func TestViewWebsiteItem(t *testing.T) {
	desk := &stubDesk{website: "WEB-ITM-0001"}
	req := httptest.NewRequest(http.MethodGet, "/app/item/SKU-MUG/website-item", nil)
	req.Header.Set("HX-Request", "true")
	rec := serve(newDeskRouter(t, desk), req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "/app/website-item/WEB-ITM-0001", rec.Header().Get("HX-Redirect"))
}

func TestViewWebsiteItemNotFound(t *testing.T) {
	desk := &stubDesk{websiteErr: shop.ErrWebsiteItemNotFound}
	rec := serve(newDeskRouter(t, desk), httptest.NewRequest(http.MethodGet, "/app/item/SKU-MUG/website-item", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	doc := parseHTML(t, rec.Body.Bytes())
	notice := doc.Find("#desk-notice")
	require.True(t, notice.HasClass("indicator-orange"))
	require.Equal(t, shop.WebsiteItemNotFoundMessage, notice.Find(".notice-message").Text())
}

func TestFeaturedProductOptions(t *testing.T) {
	desk := &stubDesk{refs: []shop.WebsiteItemRef{{Name: "WEB-1", ItemCode: "SKU-MUG", ItemName: "Mug", Route: "mug"}}}
	rec := serve(newDeskRouter(t, desk), httptest.NewRequest(http.MethodGet, "/app/homepage/products?txt=mu", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	doc := parseHTML(t, rec.Body.Bytes())
	opt := doc.Find("#featured-products option")
	require.Equal(t, 1, opt.Length())
	require.Equal(t, "SKU-MUG", opt.AttrOr("value", ""))
	require.Equal(t, "mug", opt.AttrOr("data-route", ""))
}

func TestViewFeaturedProduct(t *testing.T) {
	router := newDeskRouter(t, &stubDesk{})

	rec := serve(router, httptest.NewRequest(http.MethodGet, "/app/homepage/featured/view?item_code=SKU-MUG&route=mug", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/mug", rec.Header().Get("Location"))

	rec = serve(router, httptest.NewRequest(http.MethodGet, "/app/homepage/featured/view?item_code=SKU-MUG", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
}
