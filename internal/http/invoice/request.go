package invoice

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/discount"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/tax"
)

type itemRequest struct {
	Description string              `json:"description" validate:"required"`
	Category    string              `json:"category"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Unit        string              `json:"unit"`
	Cost        decimal.NullDecimal `json:"cost"`
	Markup      decimal.NullDecimal `json:"markup"`
	Rate        decimal.Decimal     `json:"rate"`
	Notes       string              `json:"notes"`
}

func (r itemRequest) params() lineitem.Params {
	category := lineitem.Category(r.Category)
	if category == "" {
		category = lineitem.CategoryOther
	}

	return lineitem.Params{
		Description: r.Description,
		Category:    category,
		Quantity:    r.Quantity,
		Unit:        r.Unit,
		Cost:        r.Cost,
		Markup:      r.Markup,
		Rate:        r.Rate,
		Notes:       r.Notes,
	}
}

func itemParams(reqs []itemRequest) []lineitem.Params {
	out := make([]lineitem.Params, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, r.params())
	}

	return out
}

type documentRequest struct {
	Kind              string          `json:"kind" validate:"omitempty,oneof=invoice quote"`
	Number            string          `json:"number"`
	Title             string          `json:"title"`
	ClientName        string          `json:"client_name"`
	IssueDate         time.Time       `json:"issue_date"`
	DueDate           *time.Time      `json:"due_date"`
	Items             []itemRequest   `json:"items" validate:"dive"`
	TaxRates          *tax.Rates      `json:"tax_rates"`
	Discounts         []discount.Rule `json:"discounts"`
	DepositPercentage decimal.Decimal `json:"deposit_percentage"`
	Notes             string          `json:"notes"`
}

func (r documentRequest) params() invoice.CreateParams {
	issued := r.IssueDate
	if issued.IsZero() {
		issued = time.Now()
	}

	return invoice.CreateParams{
		Kind:              invoice.Kind(r.Kind),
		Number:            r.Number,
		Title:             r.Title,
		ClientName:        r.ClientName,
		IssueDate:         issued,
		DueDate:           r.DueDate,
		Items:             itemParams(r.Items),
		TaxRates:          r.TaxRates,
		Discounts:         r.Discounts,
		DepositPercentage: r.DepositPercentage,
		Notes:             r.Notes,
	}
}

type updateRequest struct {
	Title             *string          `json:"title"`
	ClientName        *string          `json:"client_name"`
	DueDate           *time.Time       `json:"due_date"`
	Status            *string          `json:"status" validate:"omitempty,oneof=draft sent accepted paid void"`
	TaxRates          *tax.Rates       `json:"tax_rates"`
	Discounts         *[]discount.Rule `json:"discounts"`
	DepositPercentage *decimal.Decimal `json:"deposit_percentage"`
	Notes             *string          `json:"notes"`
}

func (r updateRequest) params() invoice.UpdateParams {
	p := invoice.UpdateParams{
		Title:             r.Title,
		ClientName:        r.ClientName,
		DueDate:           r.DueDate,
		TaxRates:          r.TaxRates,
		Discounts:         r.Discounts,
		DepositPercentage: r.DepositPercentage,
		Notes:             r.Notes,
	}

	if r.Status != nil {
		p.Status = new(invoice.Status(*r.Status))
	}

	return p
}

type itemEditRequest struct {
	Description *string          `json:"description" validate:"omitempty,min=1"`
	Category    *string          `json:"category"`
	Markup      *decimal.Decimal `json:"markup"`
	Cost        *decimal.Decimal `json:"cost"`
	Rate        *decimal.Decimal `json:"rate"`
	Quantity    *decimal.Decimal `json:"quantity"`
	Unit        *string          `json:"unit"`
	Notes       *string          `json:"notes"`
}

func (r itemEditRequest) edit() invoice.ItemEdit {
	e := invoice.ItemEdit{
		Description: r.Description,
		Markup:      r.Markup,
		Cost:        r.Cost,
		Rate:        r.Rate,
		Quantity:    r.Quantity,
		Unit:        r.Unit,
		Notes:       r.Notes,
	}

	if r.Category != nil {
		e.Category = new(lineitem.Category(*r.Category))
	}

	return e
}

type paymentRequest struct {
	Date   time.Time       `json:"date"`
	Amount decimal.Decimal `json:"amount"`
	Method string          `json:"method"`
	Note   string          `json:"note"`
}

type changeOrderRequest struct {
	Description string        `json:"description" validate:"required"`
	Reason      string        `json:"reason"`
	Reduction   bool          `json:"reduction"`
	Date        time.Time     `json:"date"`
	Items       []itemRequest `json:"items" validate:"dive"`
}

func (r changeOrderRequest) params() invoice.ChangeOrderParams {
	date := r.Date
	if date.IsZero() {
		date = time.Now()
	}

	return invoice.ChangeOrderParams{
		Description: r.Description,
		Reason:      r.Reason,
		Reduction:   r.Reduction,
		Date:        date,
		Items:       itemParams(r.Items),
	}
}

type decisionRequest struct {
	Status     string `json:"status" validate:"required,oneof=approved rejected"`
	ApprovedBy string `json:"approved_by"`
}

type phaseRequest struct {
	Name       string          `json:"name" validate:"required"`
	Percentage decimal.Decimal `json:"percentage"`
	DueDate    time.Time       `json:"due_date"`
}

func (r phaseRequest) params() invoice.PhaseParams {
	return invoice.PhaseParams{
		Name:       r.Name,
		Percentage: r.Percentage,
		DueDate:    r.DueDate,
	}
}

type phaseStateRequest struct {
	State string `json:"state" validate:"required,oneof=billed paid"`
}
