// Package deposit derives the upfront deposit and the outstanding balance.
//
// The deposit percentage is the source of truth; the deposit amount is a
// derived view. A deposit only reduces the balance once it is recorded as a
// payment.
package deposit

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/money"
	"github.com/MrJamesThe3rd/tally/internal/validation"
)

var maxPercent = decimal.NewFromInt(100)

// Payment is money received against a document.
type Payment struct {
	ID     uuid.UUID       `json:"id"`
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method,omitempty"`
	Note   string          `json:"note,omitempty"`
}

// Validate rejects zero and negative payments.
func (p Payment) Validate() error {
	if !p.Amount.IsPositive() {
		return validation.New(validation.ErrInvalidValue, "amount", "payment must be positive, got %s", p.Amount)
	}

	return nil
}

// ValidatePercentage rejects a deposit percentage outside [0,100].
func ValidatePercentage(pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(maxPercent) {
		return validation.New(validation.ErrInvalidRate, "deposit_percentage", "must be within [0,100], got %s", pct)
	}

	return nil
}

// Amount is total × pct / 100 rounded to two decimals.
func Amount(total, pct decimal.Decimal) (decimal.Decimal, error) {
	if err := ValidatePercentage(pct); err != nil {
		return decimal.Zero, err
	}

	return money.Round(money.PercentOf(total, pct)), nil
}

// Paid sums the recorded payments.
func Paid(payments []Payment) decimal.Decimal {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p.Amount)
	}

	return paid
}

// BalanceDue is total minus every recorded payment, regardless of deposit.
func BalanceDue(total decimal.Decimal, payments []Payment) decimal.Decimal {
	return money.Round(total.Sub(Paid(payments)))
}

// AfterDeposit is the presentation figure "total less deposit". It is not
// the balance due.
func AfterDeposit(total, depositAmount decimal.Decimal) decimal.Decimal {
	return money.Round(total.Sub(depositAmount))
}
