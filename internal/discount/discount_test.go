package discount_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/tally/internal/discount"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/validation"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func base() discount.Base {
	return discount.Base{
		Subtotal: d("100"),
		TotalTax: d("10"),
		CategorySubtotals: map[lineitem.Category]decimal.Decimal{
			lineitem.CategoryLabor:    d("60"),
			lineitem.CategoryMaterial: d("40"),
		},
	}
}

func TestAmount(t *testing.T) {
	tests := []struct {
		name string
		rule discount.Rule
		want string
	}{
		{
			name: "PercentSubtotal",
			rule: discount.Rule{Type: discount.TypePercentage, Value: d("10"), AppliesTo: discount.ScopeSubtotal},
			want: "10.00",
		},
		{
			name: "PercentTotal",
			rule: discount.Rule{Type: discount.TypePercentage, Value: d("10"), AppliesTo: discount.ScopeTotal},
			want: "11.00",
		},
		{
			name: "PercentCategory",
			rule: discount.Rule{Type: discount.TypePercentage, Value: d("25"), AppliesTo: discount.ScopeCategory, Category: lineitem.CategoryLabor},
			want: "15.00",
		},
		{
			name: "PercentCategoryWithoutItems",
			rule: discount.Rule{Type: discount.TypePercentage, Value: d("25"), AppliesTo: discount.ScopeCategory, Category: lineitem.CategoryPermit},
			want: "0.00",
		},
		{
			name: "Fixed",
			rule: discount.Rule{Type: discount.TypeFixed, Value: d("12.5"), AppliesTo: discount.ScopeSubtotal},
			want: "12.50",
		},
		{
			name: "FixedCategoryIsFlat",
			rule: discount.Rule{Type: discount.TypeFixed, Value: d("75"), AppliesTo: discount.ScopeCategory, Category: lineitem.CategoryMaterial},
			want: "75.00",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.rule.Validate())
			assert.Equal(t, tt.want, tt.rule.Amount(base()).StringFixed(2))
		})
	}
}

func TestEvaluate_ExampleB(t *testing.T) {
	rules := []discount.Rule{
		{Type: discount.TypePercentage, Value: d("10"), AppliesTo: discount.ScopeSubtotal},
	}

	res, err := discount.Evaluate(rules, base())
	require.NoError(t, err)

	assert.Equal(t, "10.00", res.Total.StringFixed(2))
	assert.Equal(t, "100.00", discount.FinalTotal(d("100"), d("10"), res.Total).StringFixed(2))
}

func TestEvaluate_NoCompounding(t *testing.T) {
	rules := []discount.Rule{
		{Type: discount.TypePercentage, Value: d("10"), AppliesTo: discount.ScopeSubtotal},
		{Type: discount.TypePercentage, Value: d("10"), AppliesTo: discount.ScopeSubtotal},
	}

	res, err := discount.Evaluate(rules, base())
	require.NoError(t, err)

	assert.Equal(t, "20.00", res.Total.StringFixed(2))
}

func TestEvaluate_OrderInvariant(t *testing.T) {
	rules := []discount.Rule{
		{Type: discount.TypePercentage, Value: d("7.5"), AppliesTo: discount.ScopeTotal},
		{Type: discount.TypeFixed, Value: d("3.33"), AppliesTo: discount.ScopeSubtotal},
		{Type: discount.TypePercentage, Value: d("12"), AppliesTo: discount.ScopeCategory, Category: lineitem.CategoryMaterial},
	}
	reversed := []discount.Rule{rules[2], rules[1], rules[0]}

	a, err := discount.Evaluate(rules, base())
	require.NoError(t, err)

	b, err := discount.Evaluate(reversed, base())
	require.NoError(t, err)

	assert.True(t, a.Total.Equal(b.Total))
	assert.Equal(t, a.Amounts[0].String(), b.Amounts[2].String())
}

func TestFinalTotal_NotFloored(t *testing.T) {
	rules := []discount.Rule{{Type: discount.TypeFixed, Value: d("150"), AppliesTo: discount.ScopeTotal}}

	res, err := discount.Evaluate(rules, base())
	require.NoError(t, err)

	assert.Equal(t, "-40.00", discount.FinalTotal(d("100"), d("10"), res.Total).StringFixed(2))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		rule discount.Rule
		want error
	}{
		{"Negative", discount.Rule{Type: discount.TypeFixed, Value: d("-1"), AppliesTo: discount.ScopeSubtotal}, validation.ErrInvalidValue},
		{"PercentOverHundred", discount.Rule{Type: discount.TypePercentage, Value: d("101"), AppliesTo: discount.ScopeSubtotal}, validation.ErrInvalidRate},
		{"CategoryMissing", discount.Rule{Type: discount.TypePercentage, Value: d("5"), AppliesTo: discount.ScopeCategory}, validation.ErrMissingBase},
		{"CategoryUnknown", discount.Rule{Type: discount.TypePercentage, Value: d("5"), AppliesTo: discount.ScopeCategory, Category: "roofing"}, validation.ErrUnknownCategory},
		{"UnknownType", discount.Rule{Type: "bogo", Value: d("5"), AppliesTo: discount.ScopeSubtotal}, validation.ErrInvalidValue},
		{"UnknownScope", discount.Rule{Type: discount.TypeFixed, Value: d("5"), AppliesTo: "shipping"}, validation.ErrInvalidValue},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.rule.Validate(), tt.want)

			_, err := discount.Evaluate([]discount.Rule{tt.rule}, base())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
