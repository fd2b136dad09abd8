package middleware

import "net/http"

// VaryHTMX marks responses as varying on HX-Request, since the same URL answers with either a
// full page or a fragment.
func VaryHTMX(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Vary", "HX-Request")
		next.ServeHTTP(w, r)
	})
}
