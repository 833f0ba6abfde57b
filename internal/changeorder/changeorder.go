// Package changeorder models amendments to a document's scope. Each change
// order prices its own items with the parent's tax rates and moves through
// draft -> approved | rejected.
package changeorder

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/tax"
	"github.com/MrJamesThe3rd/tally/internal/validation"
)

// Status represents the approval state of a change order.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ErrItemNotFound is returned when an item id is not on the change order.
var ErrItemNotFound = errors.New("change order item not found")

// ChangeOrder is an amendment carrying its own line items.
type ChangeOrder struct {
	ID          uuid.UUID `json:"id"`
	Number      string    `json:"number"`
	Date        time.Time `json:"date"`
	Description string    `json:"description"`
	Reason      string    `json:"reason,omitempty"`
	// Reduction marks a change order that removes scope; its figures are negated.
	Reduction    bool            `json:"reduction"`
	Items        []lineitem.Item `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	TaxAmount    decimal.Decimal `json:"tax_amount"`
	Total        decimal.Decimal `json:"total"`
	Status       Status          `json:"status"`
	ApprovedBy   string          `json:"approved_by,omitempty"`
	ApprovedDate *time.Time      `json:"approved_date,omitempty"`
}

// New returns an empty draft change order.
func New(number, description string, date time.Time) *ChangeOrder {
	return &ChangeOrder{
		ID:          uuid.New(),
		Number:      number,
		Date:        date,
		Description: description,
		Status:      StatusDraft,
		Subtotal:    decimal.Zero,
		TaxAmount:   decimal.Zero,
		Total:       decimal.Zero,
	}
}

// AddItem appends an item. Only drafts can be edited.
func (co *ChangeOrder) AddItem(it lineitem.Item) error {
	if err := co.checkDraft(); err != nil {
		return err
	}

	if err := it.Validate(); err != nil {
		return err
	}

	co.Items = append(co.Items, it)

	return nil
}

// EditItem applies fn to a copy of the item with id and keeps the result
// only if fn succeeds. Only drafts can be edited.
func (co *ChangeOrder) EditItem(id uuid.UUID, fn func(it *lineitem.Item) error) error {
	if err := co.checkDraft(); err != nil {
		return err
	}

	i, err := co.index(id)
	if err != nil {
		return err
	}

	edited := co.Items[i]
	if err := fn(&edited); err != nil {
		return err
	}

	co.Items[i] = edited

	return nil
}

// RemoveItem drops the item with id. Only drafts can be edited.
func (co *ChangeOrder) RemoveItem(id uuid.UUID) error {
	if err := co.checkDraft(); err != nil {
		return err
	}

	if _, err := co.index(id); err != nil {
		return err
	}

	co.Items = slices.DeleteFunc(co.Items, func(it lineitem.Item) bool { return it.ID == id })

	return nil
}

func (co *ChangeOrder) checkDraft() error {
	if co.Status != StatusDraft {
		return validation.New(validation.ErrLocked, "change_order", "%s is %s", co.Number, co.Status)
	}

	return nil
}

func (co *ChangeOrder) index(id uuid.UUID) (int, error) {
	i := slices.IndexFunc(co.Items, func(it lineitem.Item) bool { return it.ID == id })
	if i < 0 {
		return -1, fmt.Errorf("%w: %s", ErrItemNotFound, id)
	}

	return i, nil
}

// Recalculate prices the change order's items with the parent's rates. It
// only runs on drafts; decided orders keep the figures they were decided at.
func (co *ChangeOrder) Recalculate(rates tax.Rates) error {
	if co.Status != StatusDraft {
		return nil
	}

	for _, it := range co.Items {
		if err := it.Validate(); err != nil {
			return err
		}
	}

	res, err := tax.Compute(co.Items, rates)
	if err != nil {
		return err
	}

	subtotal, taxAmount := res.Subtotal, res.Breakdown.TotalTax
	if co.Reduction {
		subtotal, taxAmount = subtotal.Neg(), taxAmount.Neg()
	}

	co.Subtotal = subtotal
	co.TaxAmount = taxAmount
	co.Total = subtotal.Add(taxAmount)

	return nil
}

// Approve prices a draft with rates and moves it to approved. Its figures
// are fixed from then on.
func (co *ChangeOrder) Approve(rates tax.Rates, by string, at time.Time) error {
	if co.Status != StatusDraft {
		return validation.New(validation.ErrInvalidTransition, "status", "%s -> %s", co.Status, StatusApproved)
	}

	if err := co.Recalculate(rates); err != nil {
		return err
	}

	co.Status = StatusApproved
	co.ApprovedBy = by
	co.ApprovedDate = &at

	return nil
}

// Reject prices a draft with rates and moves it to rejected.
func (co *ChangeOrder) Reject(rates tax.Rates) error {
	if co.Status != StatusDraft {
		return validation.New(validation.ErrInvalidTransition, "status", "%s -> %s", co.Status, StatusRejected)
	}

	if err := co.Recalculate(rates); err != nil {
		return err
	}

	co.Status = StatusRejected

	return nil
}

// Clone returns a deep copy.
func (co *ChangeOrder) Clone() *ChangeOrder {
	c := *co
	c.Items = slices.Clone(co.Items)

	if co.ApprovedDate != nil {
		at := *co.ApprovedDate
		c.ApprovedDate = &at
	}

	return &c
}

// Rollup sums the totals of approved change orders. Drafts and rejected
// orders never reach the parent document.
func Rollup(orders []*ChangeOrder) decimal.Decimal {
	total := decimal.Zero

	for _, co := range orders {
		if co.Status == StatusApproved {
			total = total.Add(co.Total)
		}
	}

	return total
}
