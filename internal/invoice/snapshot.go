package invoice

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/changeorder"
	"github.com/MrJamesThe3rd/tally/internal/deposit"
)

// ErrSnapshotDrift is returned by Verify when stored figures no longer match
// a fresh assembly of the stored inputs.
var ErrSnapshotDrift = errors.New("snapshot drift")

// Snapshot is the immutable, internally consistent result persisted on save.
type Snapshot struct {
	Document Document `json:"document"`
	Totals   Totals   `json:"totals"`
	// ChangeOrderTotal sums approved change orders only.
	ChangeOrderTotal decimal.Decimal `json:"change_order_total"`
	// ProjectTotal is Totals.Total plus ChangeOrderTotal.
	ProjectTotal      decimal.Decimal `json:"project_total"`
	ProjectBalanceDue decimal.Decimal `json:"project_balance_due"`
	ComputedAt        time.Time       `json:"computed_at"`
}

// Freeze validates doc and derives a complete snapshot from a deep copy of
// it. On any error no snapshot is returned.
func Freeze(doc *Document, now time.Time) (*Snapshot, error) {
	d := doc.Clone()

	if err := d.Billing.Validate(); err != nil {
		return nil, err
	}

	for _, co := range d.ChangeOrders {
		if co.Status != changeorder.StatusDraft {
			continue
		}

		if err := co.Recalculate(d.TaxRates); err != nil {
			return nil, err
		}
	}

	totals, err := Assemble(Input{
		Items:             d.Items,
		TaxRates:          d.TaxRates,
		Discounts:         d.Discounts,
		DepositPercentage: d.DepositPercentage,
		Payments:          d.Payments,
	})
	if err != nil {
		return nil, err
	}

	coTotal := changeorder.Rollup(d.ChangeOrders)
	projectTotal := totals.Total.Add(coTotal)
	d.Billing.Phases = d.Billing.Priced(totals.Total, now)

	return &Snapshot{
		Document:          *d,
		Totals:            totals,
		ChangeOrderTotal:  coTotal,
		ProjectTotal:      projectTotal,
		ProjectBalanceDue: deposit.BalanceDue(projectTotal, d.Payments),
		ComputedAt:        now,
	}, nil
}

// Verify reassembles the snapshot from its own stored inputs and checks that
// every persisted figure is reproduced.
func (s *Snapshot) Verify() error {
	again, err := Freeze(&s.Document, s.ComputedAt)
	if err != nil {
		return fmt.Errorf("reassembling snapshot: %w", err)
	}

	if field := s.firstDifference(again); field != "" {
		return fmt.Errorf("%w: %s", ErrSnapshotDrift, field)
	}

	return nil
}

// firstDifference names the first figure that differs from other, or "".
func (s *Snapshot) firstDifference(other *Snapshot) string {
	figures := []struct {
		name string
		a, b decimal.Decimal
	}{
		{"subtotal", s.Totals.Subtotal, other.Totals.Subtotal},
		{"material_tax", s.Totals.Tax.MaterialTax, other.Totals.Tax.MaterialTax},
		{"labor_tax", s.Totals.Tax.LaborTax, other.Totals.Tax.LaborTax},
		{"equipment_tax", s.Totals.Tax.EquipmentTax, other.Totals.Tax.EquipmentTax},
		{"other_tax", s.Totals.Tax.OtherTax, other.Totals.Tax.OtherTax},
		{"total_tax", s.Totals.Tax.TotalTax, other.Totals.Tax.TotalTax},
		{"discount_amount", s.Totals.DiscountAmount, other.Totals.DiscountAmount},
		{"total", s.Totals.Total, other.Totals.Total},
		{"deposit_amount", s.Totals.DepositAmount, other.Totals.DepositAmount},
		{"amount_after_deposit", s.Totals.AmountAfterDeposit, other.Totals.AmountAfterDeposit},
		{"paid", s.Totals.Paid, other.Totals.Paid},
		{"balance_due", s.Totals.BalanceDue, other.Totals.BalanceDue},
		{"change_order_total", s.ChangeOrderTotal, other.ChangeOrderTotal},
		{"project_total", s.ProjectTotal, other.ProjectTotal},
		{"project_balance_due", s.ProjectBalanceDue, other.ProjectBalanceDue},
	}

	for _, f := range figures {
		if !f.a.Equal(f.b) {
			return f.name
		}
	}

	if len(s.Totals.CategorySubtotals) != len(other.Totals.CategorySubtotals) {
		return "category_subtotals"
	}

	for c, v := range s.Totals.CategorySubtotals {
		if !v.Equal(other.Totals.CategorySubtotals[c]) {
			return "category_subtotals." + string(c)
		}
	}

	for i, co := range s.Document.ChangeOrders {
		if !co.Total.Equal(other.Document.ChangeOrders[i].Total) {
			return "change_orders." + co.Number
		}
	}

	for i, p := range s.Document.Billing.Phases {
		q := other.Document.Billing.Phases[i]
		if !p.Amount.Equal(q.Amount) || p.Status != q.Status {
			return "billing." + p.Name
		}
	}

	return ""
}
