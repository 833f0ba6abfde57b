package pricesheet

import (
	"strings"

	"github.com/shopspring/decimal"
)

// parseAmount parses a decimal written in the given style. Currency symbols,
// percent signs and spaces are ignored.
// Examples: plain "1,234.56" -> 1234.56, european "1.234,56" -> 1234.56.
func parseAmount(s string, style numberStyle) (decimal.Decimal, error) {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case '€', '$', '£', '%', ' ', ' ':
			return -1
		}

		return r
	}, s)

	switch style {
	case styleEuropean:
		clean = strings.ReplaceAll(clean, ".", "")
		clean = strings.ReplaceAll(clean, ",", ".")
	case stylePlain:
		clean = strings.ReplaceAll(clean, ",", "")
	}

	return decimal.NewFromString(clean)
}
