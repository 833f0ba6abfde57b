package invoice

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/changeorder"
	"github.com/MrJamesThe3rd/tally/internal/deposit"
	"github.com/MrJamesThe3rd/tally/internal/discount"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/progress"
	"github.com/MrJamesThe3rd/tally/internal/tax"
)

var (
	ErrNotFound            = errors.New("document not found")
	ErrItemNotFound        = errors.New("line item not found")
	ErrChangeOrderNotFound = errors.New("change order not found")
)

// Kind distinguishes invoices from quotes. Both share the same figures.
type Kind string

const (
	KindInvoice Kind = "invoice"
	KindQuote   Kind = "quote"
)

// Status represents the lifecycle state of a document.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusSent     Status = "sent"
	StatusAccepted Status = "accepted"
	StatusPaid     Status = "paid"
	StatusVoid     Status = "void"
)

// Document is the editable side of an invoice or quote. Figures derived from
// it live only on the Snapshot produced by Freeze.
type Document struct {
	ID                uuid.UUID                  `json:"id"`
	Kind              Kind                       `json:"kind"`
	Number            string                     `json:"number"`
	Title             string                     `json:"title"`
	ClientName        string                     `json:"client_name"`
	IssueDate         time.Time                  `json:"issue_date"`
	DueDate           *time.Time                 `json:"due_date,omitempty"`
	Status            Status                     `json:"status"`
	Items             []lineitem.Item            `json:"items"`
	TaxRates          tax.Rates                  `json:"tax_rates"`
	Discounts         []discount.Rule            `json:"discounts"`
	DepositPercentage decimal.Decimal            `json:"deposit_percentage"`
	Payments          []deposit.Payment          `json:"payments"`
	ChangeOrders      []*changeorder.ChangeOrder `json:"change_orders"`
	Billing           progress.Schedule          `json:"billing"`
	Notes             string                     `json:"notes,omitempty"`
	CreatedAt         time.Time                  `json:"created_at"`
	UpdatedAt         *time.Time                 `json:"updated_at,omitempty"`
}

// Item returns a pointer to the line item with id for in place edits.
func (d *Document) Item(id uuid.UUID) (*lineitem.Item, error) {
	for i := range d.Items {
		if d.Items[i].ID == id {
			return &d.Items[i], nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrItemNotFound, id)
}

// RemoveItem drops the line item with id.
func (d *Document) RemoveItem(id uuid.UUID) error {
	if _, err := d.Item(id); err != nil {
		return err
	}

	d.Items = slices.DeleteFunc(d.Items, func(it lineitem.Item) bool { return it.ID == id })

	return nil
}

// ChangeOrder returns the change order with id.
func (d *Document) ChangeOrder(id uuid.UUID) (*changeorder.ChangeOrder, error) {
	for _, co := range d.ChangeOrders {
		if co.ID == id {
			return co, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrChangeOrderNotFound, id)
}

// Clone returns a deep copy sharing no mutable state with d.
func (d *Document) Clone() *Document {
	c := *d
	c.Items = slices.Clone(d.Items)
	c.Discounts = slices.Clone(d.Discounts)
	c.Payments = slices.Clone(d.Payments)
	c.Billing = progress.Schedule{Phases: slices.Clone(d.Billing.Phases)}
	c.DueDate = cloneTime(d.DueDate)
	c.UpdatedAt = cloneTime(d.UpdatedAt)

	for i := range c.Billing.Phases {
		c.Billing.Phases[i].BilledDate = cloneTime(c.Billing.Phases[i].BilledDate)
		c.Billing.Phases[i].PaidDate = cloneTime(c.Billing.Phases[i].PaidDate)
	}

	if d.ChangeOrders != nil {
		c.ChangeOrders = make([]*changeorder.ChangeOrder, len(d.ChangeOrders))
		for i, co := range d.ChangeOrders {
			c.ChangeOrders[i] = co.Clone()
		}
	}

	return &c
}

// Defaults returns the category defaults for items on this document: the
// configured markups plus the document's own bucket rates.
func (d *Document) Defaults(s Settings) lineitem.Defaults {
	return lineitem.Defaults{
		MaterialMarkup: s.MaterialMarkup,
		LaborMarkup:    s.LaborMarkup,
		TaxRates:       d.TaxRates.ByBucket(),
	}
}

// Settings is the business configuration new documents start from.
type Settings struct {
	TaxRates       tax.Rates
	MaterialMarkup decimal.Decimal
	LaborMarkup    decimal.Decimal
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}

	c := *t

	return &c
}
