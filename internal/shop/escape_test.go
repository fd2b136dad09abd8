package shop

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEscapeComponentMatchesEncodeURIComponent(t *testing.T) {
	tests := map[string]string{
		"SAL-ORD-2024-00001": "SAL-ORD-2024-00001",
		"Order 1/2":          "Order%201%2F2",
		"a&b=c?":             "a%26b%3Dc%3F",
		"it's (ok)!*~":       "it's%20(ok)!*~",
		"über":               "%C3%BCber",
		"50%":                "50%25",
		"a+b":                "a%2Bb",
	}
	for in, want := range tests {
		require.Equal(t, want, EscapeComponent(in), "input %q", in)
	}
}

func TestNavigationURLs(t *testing.T) {
	require.Equal(t, "/orders/SO%2F001", OrderURL("SO/001"))
	require.Equal(t, "/quotations/QTN%20001", QuotationURL("QTN 001"))
	require.Equal(t, "/app/website-item/WEB-ITM-0001", WebsiteItemURL("WEB-ITM-0001"))
	require.Equal(t, "/orders/X", PlaceOrder.URL("X"))
	require.Equal(t, "/quotations/X", RequestQuotation.URL("X"))
}
