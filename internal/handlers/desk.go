package handlers

import (
	"context"
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"finitefield.org/webshop/internal/platform/httpx"
	"finitefield.org/webshop/internal/shop"
	"finitefield.org/webshop/internal/view"
)

// DeskService is the desk form behaviour the handlers depend on.
type DeskService interface {
	ItemActions(ctx context.Context, name string) (shop.ItemActions, error)
	PublishItem(ctx context.Context, name string) (shop.PublishResult, error)
	FindWebsiteItem(ctx context.Context, itemCode string) (string, error)
	FeaturedProductOptions(ctx context.Context, txt string) ([]shop.WebsiteItemRef, error)
}

// DeskHandlers serves the Item and Homepage form customizations.
type DeskHandlers struct {
	desk DeskService
	view *view.Renderer
}

// NewDeskHandlers constructs the handlers.
func NewDeskHandlers(desk DeskService, renderer *view.Renderer) *DeskHandlers {
	return &DeskHandlers{desk: desk, view: renderer}
}

type deskNotice struct {
	Title     string
	Indicator string
	Message   template.HTML
}

// Routes wires the desk endpoints.
func (h *DeskHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Route("/app", func(app chi.Router) {
		app.Get("/item/{name}/actions", h.itemActions)
		app.Post("/item/{name}/publish", h.publish)
		app.Get("/item/{name}/website-item", h.viewWebsiteItem)
		app.Get("/homepage/products", h.featuredProducts)
		app.Get("/homepage/featured/view", h.viewFeatured)
	})
}

func (h *DeskHandlers) itemActions(w http.ResponseWriter, r *http.Request) {
	actions, err := h.desk.ItemActions(r.Context(), pathParam(r, "name"))
	if err != nil {
		writeBackendError(w, r, "item load failed", err)
		return
	}
	if err := h.view.Fragment(w, http.StatusOK, "desk_item_actions", pageView(r, "", actions)); err != nil {
		renderFailed(w, r, err)
	}
}

func (h *DeskHandlers) publish(w http.ResponseWriter, r *http.Request) {
	result, err := h.desk.PublishItem(r.Context(), pathParam(r, "name"))
	if err != nil {
		h.renderNotice(w, r, http.StatusOK, deskNotice{
			Indicator: "red",
			Message:   h.view.Message(userMessage(r, "website item creation failed", err)),
		})
		return
	}
	notice := result.Notice()
	h.renderNotice(w, r, http.StatusOK, deskNotice{
		Title:     notice.Title,
		Indicator: notice.Indicator,
		Message:   h.view.Message(notice.Message),
	})
}

func (h *DeskHandlers) viewWebsiteItem(w http.ResponseWriter, r *http.Request) {
	name, err := h.desk.FindWebsiteItem(r.Context(), pathParam(r, "name"))
	switch {
	case errors.Is(err, shop.ErrWebsiteItemNotFound):
		h.renderNotice(w, r, http.StatusNotFound, deskNotice{
			Indicator: "orange",
			Message:   template.HTML(template.HTMLEscapeString(shop.WebsiteItemNotFoundMessage)),
		})
	case err != nil:
		writeBackendError(w, r, "website item lookup failed", err)
	default:
		httpx.Redirect(w, r, shop.WebsiteItemURL(name))
	}
}

func (h *DeskHandlers) featuredProducts(w http.ResponseWriter, r *http.Request) {
	refs, err := h.desk.FeaturedProductOptions(r.Context(), r.URL.Query().Get("txt"))
	if err != nil {
		writeBackendError(w, r, "featured product query failed", err)
		return
	}
	if err := h.view.Fragment(w, http.StatusOK, "featured_products", pageView(r, "", refs)); err != nil {
		renderFailed(w, r, err)
	}
}

func (h *DeskHandlers) viewFeatured(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	target, ok := shop.FeaturedProductRoute(query.Get("item_code"), query.Get("route"))
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httpx.Redirect(w, r, target)
}

func (h *DeskHandlers) renderNotice(w http.ResponseWriter, r *http.Request, status int, notice deskNotice) {
	if err := h.view.Fragment(w, status, "desk_notice", pageView(r, "", notice)); err != nil {
		renderFailed(w, r, err)
	}
}
