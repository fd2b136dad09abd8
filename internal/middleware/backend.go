package middleware

import (
	"net/http"
	"strings"

	"finitefield.org/webshop/internal/rpc"
)

// BackendSession attaches the shopper's backend session to the request context so every RPC
// call made while serving the request runs as that shopper. The backend's own cookie wins when
// the storefront shares its domain; otherwise the session remembers the sid, seeded with the
// storefront session id.
func BackendSession(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := GetSession(r)
			sid := ""
			if cookieName != "" {
				if c, err := r.Cookie(cookieName); err == nil {
					sid = strings.TrimSpace(c.Value)
				}
			}
			if sid != "" && sid != s.BackendSID {
				s.BackendSID = sid
				s.MarkDirty()
			}
			if sid == "" {
				sid = s.BackendSID
			}
			if sid == "" {
				sid = s.ID
			}
			next.ServeHTTP(w, r.WithContext(rpc.WithSessionID(r.Context(), sid)))
		})
	}
}
