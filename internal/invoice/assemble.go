package invoice

import (
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/deposit"
	"github.com/MrJamesThe3rd/tally/internal/discount"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/money"
	"github.com/MrJamesThe3rd/tally/internal/tax"
)

// Input is everything the totals depend on.
type Input struct {
	Items             []lineitem.Item
	TaxRates          tax.Rates
	Discounts         []discount.Rule
	DepositPercentage decimal.Decimal
	Payments          []deposit.Payment
}

// Totals is the financial view of one document.
type Totals struct {
	Subtotal          decimal.Decimal                       `json:"subtotal"`
	CategorySubtotals map[lineitem.Category]decimal.Decimal `json:"category_subtotals"`
	Tax               tax.Breakdown                         `json:"tax"`
	DiscountAmounts   []decimal.Decimal                     `json:"discount_amounts"`
	DiscountAmount    decimal.Decimal                       `json:"discount_amount"`
	Total             decimal.Decimal                       `json:"total"`
	DepositAmount     decimal.Decimal                       `json:"deposit_amount"`
	// AmountAfterDeposit is total less deposit, for display next to the deposit.
	AmountAfterDeposit decimal.Decimal `json:"amount_after_deposit"`
	Paid               decimal.Decimal `json:"paid"`
	BalanceDue         decimal.Decimal `json:"balance_due"`
}

// Assemble computes Totals from in. It holds no state: identical input always
// yields identical output.
func Assemble(in Input) (Totals, error) {
	for _, it := range in.Items {
		if err := it.Validate(); err != nil {
			return Totals{}, err
		}
	}

	for _, p := range in.Payments {
		if err := p.Validate(); err != nil {
			return Totals{}, err
		}
	}

	taxes, err := tax.Compute(in.Items, in.TaxRates)
	if err != nil {
		return Totals{}, err
	}

	discounts, err := discount.Evaluate(in.Discounts, discount.Base{
		Subtotal:          taxes.Subtotal,
		TotalTax:          taxes.Breakdown.TotalTax,
		CategorySubtotals: taxes.CategorySubtotals,
	})
	if err != nil {
		return Totals{}, err
	}

	total := discount.FinalTotal(taxes.Subtotal, taxes.Breakdown.TotalTax, discounts.Total)

	depositAmount, err := deposit.Amount(total, in.DepositPercentage)
	if err != nil {
		return Totals{}, err
	}

	return Totals{
		Subtotal:           taxes.Subtotal,
		CategorySubtotals:  taxes.CategorySubtotals,
		Tax:                taxes.Breakdown,
		DiscountAmounts:    discounts.Amounts,
		DiscountAmount:     discounts.Total,
		Total:              total,
		DepositAmount:      depositAmount,
		AmountAfterDeposit: deposit.AfterDeposit(total, depositAmount),
		Paid:               money.Round(deposit.Paid(in.Payments)),
		BalanceDue:         deposit.BalanceDue(total, in.Payments),
	}, nil
}
