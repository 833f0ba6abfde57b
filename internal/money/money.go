package money

import (
	"github.com/shopspring/decimal"
)

// Places is the number of decimal places persisted for every currency figure.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Round rounds a currency figure half away from zero to two decimal places.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(Places)
}

// PercentOf returns base × pct / 100 without rounding.
func PercentOf(base, pct decimal.Decimal) decimal.Decimal {
	return base.Mul(pct).Div(hundred)
}

// Factor returns 1 + pct/100, the multiplier used for markups.
func Factor(pct decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(1).Add(pct.Div(hundred))
}

// Sum adds all values. An empty list sums to zero.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}

	return total
}

// Format renders a figure with exactly two decimals, e.g. "1234.50".
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}
