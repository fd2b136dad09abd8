package httpx

import (
	"encoding/json"
	"net/http"
	"strings"
)

// IsHTMX reports whether the request was issued by htmx.
func IsHTMX(r *http.Request) bool {
	if r == nil {
		return false
	}
	return strings.EqualFold(r.Header.Get("HX-Request"), "true")
}

// Redirect navigates the browser to target. htmx requests receive HX-Redirect so the whole page
// changes location; other requests receive 303 See Other.
func Redirect(w http.ResponseWriter, r *http.Request, target string) {
	if IsHTMX(r) {
		w.Header().Set("HX-Redirect", target)
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// Refresh asks the browser to reload the current page. Non-htmx requests are redirected to
// fallback.
func Refresh(w http.ResponseWriter, r *http.Request, fallback string) {
	if IsHTMX(r) {
		w.Header().Set("HX-Refresh", "true")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, fallback, http.StatusSeeOther)
}

// Trigger sets an HX-Trigger header carrying a single named event and payload.
func Trigger(w http.ResponseWriter, event string, detail any) {
	raw, err := json.Marshal(map[string]any{event: detail})
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", string(raw))
}
