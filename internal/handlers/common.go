package handlers

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"finitefield.org/webshop/internal/middleware"
	"finitefield.org/webshop/internal/platform/httpx"
	"finitefield.org/webshop/internal/platform/requestctx"
	"finitefield.org/webshop/internal/rpc"
	"finitefield.org/webshop/internal/shop"
	"finitefield.org/webshop/internal/view"
)

type messageBox struct {
	Title   string
	Message string
}

func pageView(r *http.Request, title string, data any) view.View {
	return view.View{
		Title:     title,
		Lang:      middleware.Lang(r),
		CSRFToken: middleware.CSRFToken(r),
		Path:      r.URL.EscapedPath(),
		Data:      data,
	}
}

// pathParam returns a decoded chi URL parameter. chi routes on RawPath when the request path
// carries escapes, so parameters may still be percent-encoded.
func pathParam(r *http.Request, key string) string {
	raw := chi.URLParam(r, key)
	if r.URL.RawPath == "" {
		return strings.TrimSpace(raw)
	}
	decoded, err := url.PathUnescape(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(decoded)
}

// userMessage logs err and returns the text shown to the shopper.
func userMessage(r *http.Request, msg string, err error) string {
	requestctx.Logger(r.Context()).Warn(msg, zap.Error(err))
	return rpc.UserMessage(err, shop.GenericFailureMessage)
}

func renderFailed(w http.ResponseWriter, r *http.Request, err error) {
	requestctx.Logger(r.Context()).Error("render failed", zap.Error(err))
	httpx.WriteError(r.Context(), w, r, httpx.NewError("render_failed", "unable to render page", http.StatusInternalServerError))
}

// writeBackendError answers fragment endpoints whose failures have no dedicated region.
func writeBackendError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	text := userMessage(r, msg, err)
	status := http.StatusBadGateway
	code := "backend_error"
	if rpc.IsNotFound(err) {
		status = http.StatusNotFound
		code = "not_found"
	}
	httpx.WriteError(r.Context(), w, r, httpx.NewError(code, text, status))
}

// safeReturnPath accepts only local absolute paths.
func safeReturnPath(raw, fallback string) string {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return fallback
	}
	return raw
}
