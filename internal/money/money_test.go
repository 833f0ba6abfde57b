package money_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/MrJamesThe3rd/tally/internal/money"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestRound(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.005", "1.01"},
		{"1.004", "1.00"},
		{"-1.005", "-1.01"},
		{"72", "72.00"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, money.Format(money.Round(d(tt.in))))
		})
	}
}

func TestPercentOf(t *testing.T) {
	assert.True(t, money.PercentOf(d("20"), d("10")).Equal(d("2")))
	assert.True(t, money.PercentOf(d("110"), d("0")).IsZero())
}

func TestFactor(t *testing.T) {
	assert.True(t, money.Factor(d("25")).Equal(d("1.25")))
}

func TestSum(t *testing.T) {
	assert.True(t, money.Sum().IsZero())
	assert.True(t, money.Sum(d("1.10"), d("2.20"), d("-0.30")).Equal(d("3")))
}
