// Package lineitem keeps the cost, markup, rate and total of a billable line
// consistent under edits in any order.
//
// Every edit performs exactly one downstream update:
//
//	cost or markup -> rate -> total
//	rate           -> cost (only when markup > 0), total
//	quantity       -> total
//
// so no edit can feed back into the field that triggered it.
package lineitem

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/money"
	"github.com/MrJamesThe3rd/tally/internal/validation"
)

var maxPercent = decimal.NewFromInt(100)

// Item is a single billable entry. Mutate it only through the Set methods so
// that Total stays equal to Quantity × Rate.
type Item struct {
	ID          uuid.UUID           `json:"id"`
	Description string              `json:"description"`
	Category    Category            `json:"category"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Unit        string              `json:"unit"`
	Cost        decimal.NullDecimal `json:"cost"`
	Markup      decimal.Decimal     `json:"markup"`
	Rate        decimal.Decimal     `json:"rate"`
	// TaxRate mirrors the category's configured rate for display only; the
	// tax engine never reads it.
	TaxRate decimal.NullDecimal `json:"tax_rate"`
	Total   decimal.Decimal     `json:"total"`
	Notes   string              `json:"notes,omitempty"`
}

// Params describes a new line item.
type Params struct {
	Description string
	Category    Category
	Quantity    decimal.Decimal
	Unit        string
	// Cost, when set, drives the rate through the markup.
	Cost decimal.NullDecimal
	// Markup overrides the category default when set.
	Markup decimal.NullDecimal
	// Rate is used when no cost is given.
	Rate  decimal.Decimal
	Notes string
}

// New builds a consistent item from params, applying the category defaults.
func New(p Params, defaults Defaults) (Item, error) {
	it := Item{
		ID:          uuid.New(),
		Description: p.Description,
		Unit:        p.Unit,
		Notes:       p.Notes,
		Quantity:    decimal.Zero,
		Rate:        decimal.Zero,
		Total:       decimal.Zero,
	}

	if err := it.SetCategory(p.Category, defaults); err != nil {
		return Item{}, err
	}

	if p.Markup.Valid {
		if err := it.SetMarkup(p.Markup.Decimal); err != nil {
			return Item{}, err
		}
	}

	if p.Cost.Valid {
		if err := it.SetCost(p.Cost.Decimal); err != nil {
			return Item{}, err
		}
	} else if err := it.SetRate(p.Rate); err != nil {
		return Item{}, err
	}

	if err := it.SetQuantity(p.Quantity); err != nil {
		return Item{}, err
	}

	return it, nil
}

// SetCost sets the unit cost and derives the rate from it and the markup.
func (it *Item) SetCost(cost decimal.Decimal) error {
	if cost.IsNegative() {
		return validation.New(validation.ErrInvalidValue, "cost", "must not be negative, got %s", cost)
	}

	it.Cost = decimal.NewNullDecimal(cost)
	it.Rate = cost.Mul(money.Factor(it.Markup))
	it.refreshTotal()

	return nil
}

// SetMarkup sets the markup percent. When a cost is known the rate is
// re-derived from it; without a cost the rate is left as is.
func (it *Item) SetMarkup(markup decimal.Decimal) error {
	if err := checkPercent("markup", markup); err != nil {
		return err
	}

	it.Markup = markup
	if it.Cost.Valid {
		it.Rate = it.Cost.Decimal.Mul(money.Factor(markup))
	}

	it.refreshTotal()

	return nil
}

// SetRate sets the unit rate directly. With a positive markup the cost is
// back-derived; otherwise the cost is left unchanged.
func (it *Item) SetRate(rate decimal.Decimal) error {
	if rate.IsNegative() {
		return validation.New(validation.ErrInvalidValue, "rate", "must not be negative, got %s", rate)
	}

	it.Rate = rate
	if it.Markup.IsPositive() {
		it.Cost = decimal.NewNullDecimal(rate.Div(money.Factor(it.Markup)))
	}

	it.refreshTotal()

	return nil
}

// SetQuantity changes the quantity. Only the total follows.
func (it *Item) SetQuantity(qty decimal.Decimal) error {
	if qty.IsNegative() {
		return validation.New(validation.ErrInvalidQuantity, "quantity", "must not be negative, got %s", qty)
	}

	it.Quantity = qty
	it.refreshTotal()

	return nil
}

// SetCategory moves the item to another category. The markup resets to the
// category default and the display tax rate to the bucket rate; the markup
// change then applies as if it had been edited.
func (it *Item) SetCategory(c Category, defaults Defaults) error {
	c, err := ParseCategory(string(c))
	if err != nil {
		return err
	}

	it.Category = c
	it.TaxRate = decimal.NewNullDecimal(defaults.TaxRate(c))

	return it.SetMarkup(defaults.Markup(c))
}

// Validate re-checks every invariant of an item that was not built through
// the Set methods, e.g. one decoded from storage.
func (it Item) Validate() error {
	if !it.Category.Valid() {
		return validation.New(validation.ErrUnknownCategory, "category", "%q", it.Category)
	}

	if it.Quantity.IsNegative() {
		return validation.New(validation.ErrInvalidQuantity, "quantity", "must not be negative, got %s", it.Quantity)
	}

	if it.Rate.IsNegative() {
		return validation.New(validation.ErrInvalidValue, "rate", "must not be negative, got %s", it.Rate)
	}

	if it.Cost.Valid && it.Cost.Decimal.IsNegative() {
		return validation.New(validation.ErrInvalidValue, "cost", "must not be negative, got %s", it.Cost.Decimal)
	}

	if err := checkPercent("markup", it.Markup); err != nil {
		return err
	}

	if !it.Total.Equal(it.Quantity.Mul(it.Rate)) {
		return validation.New(validation.ErrInvalidValue, "total",
			"%s does not equal %s × %s", it.Total, it.Quantity, it.Rate)
	}

	return nil
}

func (it *Item) refreshTotal() {
	it.Total = it.Quantity.Mul(it.Rate)
}

func checkPercent(field string, pct decimal.Decimal) error {
	if pct.IsNegative() || pct.GreaterThan(maxPercent) {
		return validation.New(validation.ErrInvalidRate, field, "must be within [0,100], got %s", pct)
	}

	return nil
}
