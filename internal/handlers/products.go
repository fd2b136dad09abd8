package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"finitefield.org/webshop/internal/middleware"
	"finitefield.org/webshop/internal/platform/httpx"
	"finitefield.org/webshop/internal/shop"
	"finitefield.org/webshop/internal/view"
)

const (
	viewModeCookie    = "product_view"
	viewModeLifetime  = 365 * 24 * time.Hour
	allProductsPath   = "/all-products"
	fieldFilterPrefix = "f."
	attrFilterPrefix  = "a."
)

// CatalogService is the product listing behaviour the handlers depend on.
type CatalogService interface {
	Listing(ctx context.Context, q shop.ListingQuery) (shop.ProductListing, error)
	ProductInfo(ctx context.Context, itemCode string) (shop.ProductInfo, error)
	AddToWishlist(ctx context.Context, itemCode string) error
	RemoveFromWishlist(ctx context.Context, itemCode string) error
}

// ProductHandlers serves the product listing, product info fragments and wishlist toggles.
type ProductHandlers struct {
	catalog CatalogService
	view    *view.Renderer
	secure  bool
}

// NewProductHandlers constructs the handlers. secure marks the view preference cookie Secure.
func NewProductHandlers(catalog CatalogService, renderer *view.Renderer, secure bool) *ProductHandlers {
	return &ProductHandlers{catalog: catalog, view: renderer, secure: secure}
}

type productsPageData struct {
	Listing  shop.ProductListing
	BasePath string
	PrevURL  string
	NextURL  string
}

// pageURL links to another page of the same listing, keeping the search and filters.
func pageURL(basePath string, q shop.ListingQuery, start int) string {
	values := url.Values{}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	for field, selected := range q.FieldFilters {
		values[fieldFilterPrefix+field] = selected
	}
	for attr, selected := range q.AttributeFilters {
		values[attrFilterPrefix+attr] = selected
	}
	if start > 0 {
		values.Set("start", strconv.Itoa(start))
	}
	if len(values) == 0 {
		return basePath
	}
	return basePath + "?" + values.Encode()
}

// Routes wires the catalog endpoints.
func (h *ProductHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get(allProductsPath, h.listing)
	r.Get("/item-groups/{group}", h.listing)
	r.Post(allProductsPath+"/view", h.setViewMode)
	r.Get("/products/{item_code}/info", h.productInfo)
	r.Post("/wishlist/{item_code}", h.wishlist(true))
	r.Delete("/wishlist/{item_code}", h.wishlist(false))
}

// ViewModeFromRequest returns the stored listing layout, defaulting to List View.
func ViewModeFromRequest(r *http.Request) shop.ViewMode {
	c, err := r.Cookie(viewModeCookie)
	if err != nil {
		return shop.DefaultViewMode
	}
	raw, err := url.QueryUnescape(c.Value)
	if err != nil {
		return shop.DefaultViewMode
	}
	return shop.ViewModeOrDefault(raw)
}

func parseListingQuery(r *http.Request) shop.ListingQuery {
	query := r.URL.Query()
	q := shop.ListingQuery{
		ItemGroup: pathParam(r, "group"),
		Search:    query.Get("search"),
	}
	if start, err := strconv.Atoi(query.Get("start")); err == nil && start > 0 {
		q.Start = start
	}
	for key, values := range query {
		switch {
		case strings.HasPrefix(key, fieldFilterPrefix) && len(key) > len(fieldFilterPrefix):
			if q.FieldFilters == nil {
				q.FieldFilters = map[string][]string{}
			}
			q.FieldFilters[strings.TrimPrefix(key, fieldFilterPrefix)] = values
		case strings.HasPrefix(key, attrFilterPrefix) && len(key) > len(attrFilterPrefix):
			if q.AttributeFilters == nil {
				q.AttributeFilters = map[string][]string{}
			}
			q.AttributeFilters[strings.TrimPrefix(key, attrFilterPrefix)] = values
		}
	}
	return q
}

func (h *ProductHandlers) listing(w http.ResponseWriter, r *http.Request) {
	lang := middleware.Lang(r)
	q := parseListingQuery(r)

	listing, err := h.catalog.Listing(r.Context(), q)
	if err != nil {
		v := pageView(r, h.view.T(lang, "products.title"), messageBox{
			Title:   h.view.T(lang, "error.title"),
			Message: userMessage(r, "product listing failed", err),
		})
		if err := h.view.Page(w, http.StatusBadGateway, "message", v); err != nil {
			renderFailed(w, r, err)
		}
		return
	}
	listing.ViewMode = ViewModeFromRequest(r)

	basePath := allProductsPath
	title := h.view.T(lang, "products.title")
	if q.ItemGroup != "" {
		basePath = "/item-groups/" + shop.EscapeComponent(q.ItemGroup)
		title = q.ItemGroup
	}
	data := productsPageData{Listing: listing, BasePath: basePath}
	if listing.HasPrev() {
		data.PrevURL = pageURL(basePath, q, listing.PrevStart())
	}
	if listing.HasNext() {
		data.NextURL = pageURL(basePath, q, listing.NextStart())
	}
	if err := h.view.Page(w, http.StatusOK, "products", pageView(r, title, data)); err != nil {
		renderFailed(w, r, err)
	}
}

func (h *ProductHandlers) setViewMode(w http.ResponseWriter, r *http.Request) {
	mode, err := shop.ParseViewMode(r.PostFormValue("view"))
	if err != nil {
		httpx.WriteError(r.Context(), w, r, httpx.NewError("invalid_view_mode", h.view.T(middleware.Lang(r), "products.invalid_view"), http.StatusBadRequest))
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     viewModeCookie,
		Value:    url.QueryEscape(string(mode)),
		Path:     "/",
		Expires:  time.Now().Add(viewModeLifetime),
		MaxAge:   int(viewModeLifetime / time.Second),
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	httpx.Refresh(w, r, safeReturnPath(r.PostFormValue("return_to"), allProductsPath))
}

func (h *ProductHandlers) productInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.catalog.ProductInfo(r.Context(), pathParam(r, "item_code"))
	if err != nil {
		writeBackendError(w, r, "product info failed", err)
		return
	}
	if err := h.view.Fragment(w, http.StatusOK, "product_info", pageView(r, "", info)); err != nil {
		renderFailed(w, r, err)
	}
}

func (h *ProductHandlers) wishlist(add bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemCode := pathParam(r, "item_code")
		var err error
		if add {
			err = h.catalog.AddToWishlist(r.Context(), itemCode)
		} else {
			err = h.catalog.RemoveFromWishlist(r.Context(), itemCode)
		}
		if err != nil {
			writeBackendError(w, r, "wishlist update failed", err)
			return
		}
		btn := view.WishlistButton{ItemCode: itemCode, Wished: add, Lang: middleware.Lang(r)}
		if err := h.view.Fragment(w, http.StatusOK, "wishlist_button", btn); err != nil {
			renderFailed(w, r, err)
		}
	}
}
