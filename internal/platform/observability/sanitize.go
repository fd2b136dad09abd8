package observability

import (
	"strings"
	"unicode"
)

// logSafe strips control characters so request data cannot forge log lines, then caps the
// length in runes.
func logSafe(value string, limit int) string {
	var b strings.Builder
	n := 0
	for _, r := range value {
		if n == limit {
			break
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		n++
	}
	return b.String()
}

// SanitizeRoute prepares a route pattern or path for logs and span attributes.
func SanitizeRoute(route string) string {
	if route == "" {
		return "/"
	}
	return logSafe(route, 180)
}

// SanitizeIdentifier prepares a record name or session key for logs.
func SanitizeIdentifier(id string) string {
	return logSafe(id, 64)
}
