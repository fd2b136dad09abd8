package view

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

var currencySymbols = map[string]string{
	"USD": "$",
	"EUR": "€",
	"GBP": "£",
	"JPY": "¥",
	"INR": "₹",
}

// Money formats amount in currency with the currency's standard number of decimals and
// thousands separators. Unknown currency codes fall back to two decimals and the raw code.
func Money(amount decimal.Decimal, code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	scale := 2
	if unit, err := currency.ParseISO(code); err == nil {
		scale, _ = currency.Standard.Rounding(unit)
	}

	neg := amount.IsNegative()
	digits := amount.Abs().StringFixed(int32(scale))
	intPart, frac, _ := strings.Cut(digits, ".")

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	switch symbol, ok := currencySymbols[code]; {
	case ok:
		b.WriteString(symbol)
	case code != "":
		b.WriteString(code)
		b.WriteByte(' ')
	}
	b.WriteString(groupThousands(intPart))
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

func groupThousands(s string) string {
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	lead := len(s) % 3
	if lead > 0 {
		b.WriteString(s[:lead])
	}
	for i := lead; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}
