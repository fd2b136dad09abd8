package shop

import (
	"net/url"
	"strings"
)

var componentUnescapes = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

// EscapeComponent escapes a record identifier for use as a single URL path segment or query
// value, matching the browser's encodeURIComponent.
func EscapeComponent(value string) string {
	return componentUnescapes.Replace(url.QueryEscape(value))
}

// OrderURL is the storefront page of a sales order.
func OrderURL(name string) string {
	return "/orders/" + EscapeComponent(name)
}

// QuotationURL is the storefront page of a quotation.
func QuotationURL(name string) string {
	return "/quotations/" + EscapeComponent(name)
}

// WebsiteItemURL is the desk form of a website item.
func WebsiteItemURL(name string) string {
	return "/app/website-item/" + EscapeComponent(name)
}
