package invoice

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/changeorder"
	"github.com/MrJamesThe3rd/tally/internal/deposit"
	"github.com/MrJamesThe3rd/tally/internal/discount"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/progress"
	"github.com/MrJamesThe3rd/tally/internal/tax"
	"github.com/MrJamesThe3rd/tally/internal/validation"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=invoice
type Repository interface {
	// SaveSnapshot upserts the document and appends the snapshot to its history.
	SaveSnapshot(ctx context.Context, snap *Snapshot) error
	GetSnapshot(ctx context.Context, id uuid.UUID) (*Snapshot, error)
	ListSnapshots(ctx context.Context, filter ListFilter) ([]*Snapshot, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
	// History returns every snapshot saved for a document, oldest first.
	History(ctx context.Context, id uuid.UUID) ([]*Snapshot, error)
}

type Service struct {
	repo     Repository
	settings Settings
	now      func() time.Time
}

func NewService(repo Repository, settings Settings) *Service {
	return &Service{repo: repo, settings: settings, now: time.Now}
}

// WithClock replaces the time source used for snapshots and state changes.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Settings returns the configuration new documents start from.
func (s *Service) Settings() Settings {
	return s.settings
}

type ListFilter struct {
	Kind   *Kind
	Status *Status
}

type CreateParams struct {
	Kind       Kind
	Number     string
	Title      string
	ClientName string
	IssueDate  time.Time
	DueDate    *time.Time
	Items      []lineitem.Params
	// TaxRates overrides the configured bucket rates when set.
	TaxRates          *tax.Rates
	Discounts         []discount.Rule
	DepositPercentage decimal.Decimal
	Notes             string
}

type UpdateParams struct {
	Title             *string
	ClientName        *string
	DueDate           *time.Time
	Status            *Status
	TaxRates          *tax.Rates
	Discounts         *[]discount.Rule
	DepositPercentage *decimal.Decimal
	Notes             *string
}

// ItemEdit lists the fields to change on a line item. Set fields apply in the
// order category, markup, cost, rate, quantity.
type ItemEdit struct {
	Description *string
	Category    *lineitem.Category
	Markup      *decimal.Decimal
	Cost        *decimal.Decimal
	Rate        *decimal.Decimal
	Quantity    *decimal.Decimal
	Unit        *string
	Notes       *string
}

type PaymentParams struct {
	Date   time.Time
	Amount decimal.Decimal
	Method string
	Note   string
}

type ChangeOrderParams struct {
	Description string
	Reason      string
	Reduction   bool
	Date        time.Time
	Items       []lineitem.Params
}

type PhaseParams struct {
	Name       string
	Percentage decimal.Decimal
	DueDate    time.Time
}

// Preview computes the snapshot params would produce without storing anything.
func (s *Service) Preview(params CreateParams) (*Snapshot, error) {
	doc, err := s.build(params)
	if err != nil {
		return nil, err
	}

	return Freeze(doc, s.now())
}

func (s *Service) Create(ctx context.Context, params CreateParams) (*Snapshot, error) {
	doc, err := s.build(params)
	if err != nil {
		return nil, err
	}

	now := s.now()
	doc.ID = uuid.New()
	doc.CreatedAt = now

	return s.save(ctx, doc, now)
}

// Get loads a document and checks that its stored figures still reassemble.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Snapshot, error) {
	snap, err := s.repo.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := snap.Verify(); err != nil {
		return nil, fmt.Errorf("verifying document %s: %w", id, err)
	}

	return snap, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Snapshot, error) {
	return s.repo.ListSnapshots(ctx, filter)
}

// History returns the saved snapshots of a document, oldest first.
func (s *Service) History(ctx context.Context, id uuid.UUID) ([]*Snapshot, error) {
	if _, err := s.repo.GetSnapshot(ctx, id); err != nil {
		return nil, err
	}

	return s.repo.History(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.DeleteDocument(ctx, id)
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, params UpdateParams) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		if params.Title != nil {
			d.Title = *params.Title
		}

		if params.ClientName != nil {
			d.ClientName = *params.ClientName
		}

		if params.DueDate != nil {
			d.DueDate = params.DueDate
		}

		if params.Status != nil {
			d.Status = *params.Status
		}

		if params.Notes != nil {
			d.Notes = *params.Notes
		}

		if params.Discounts != nil {
			d.Discounts = *params.Discounts
		}

		if params.DepositPercentage != nil {
			d.DepositPercentage = *params.DepositPercentage
		}

		if params.TaxRates != nil {
			if err := params.TaxRates.Validate(); err != nil {
				return err
			}

			d.TaxRates = *params.TaxRates
			for i := range d.Items {
				d.Items[i].TaxRate = decimal.NewNullDecimal(d.TaxRates.Rate(d.Items[i].Category.Bucket()))
			}
		}

		return nil
	})
}

func (s *Service) AddItem(ctx context.Context, id uuid.UUID, params lineitem.Params) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		it, err := lineitem.New(params, d.Defaults(s.settings))
		if err != nil {
			return err
		}

		d.Items = append(d.Items, it)

		return nil
	})
}

// AddItems appends several items in one revision. Nothing is saved if any of
// them is rejected.
func (s *Service) AddItems(ctx context.Context, id uuid.UUID, params []lineitem.Params) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		defaults := d.Defaults(s.settings)

		for i, p := range params {
			it, err := lineitem.New(p, defaults)
			if err != nil {
				return fmt.Errorf("item %d: %w", i+1, err)
			}

			d.Items = append(d.Items, it)
		}

		return nil
	})
}

func (s *Service) EditItem(ctx context.Context, id, itemID uuid.UUID, edit ItemEdit) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		it, err := d.Item(itemID)
		if err != nil {
			return err
		}

		return applyEdit(it, edit, d.Defaults(s.settings))
	})
}

func (s *Service) RemoveItem(ctx context.Context, id, itemID uuid.UUID) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		return d.RemoveItem(itemID)
	})
}

func (s *Service) RecordPayment(ctx context.Context, id uuid.UUID, params PaymentParams) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		p := deposit.Payment{
			ID:     uuid.New(),
			Date:   params.Date,
			Amount: params.Amount,
			Method: params.Method,
			Note:   params.Note,
		}
		if err := p.Validate(); err != nil {
			return err
		}

		d.Payments = append(d.Payments, p)

		return nil
	})
}

// AddChangeOrder attaches a draft change order numbered after the existing ones.
func (s *Service) AddChangeOrder(ctx context.Context, id uuid.UUID, params ChangeOrderParams) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		number := fmt.Sprintf("CO-%03d", len(d.ChangeOrders)+1)

		co := changeorder.New(number, params.Description, params.Date)
		co.Reason = params.Reason
		co.Reduction = params.Reduction

		defaults := d.Defaults(s.settings)
		for _, p := range params.Items {
			it, err := lineitem.New(p, defaults)
			if err != nil {
				return err
			}

			if err := co.AddItem(it); err != nil {
				return err
			}
		}

		d.ChangeOrders = append(d.ChangeOrders, co)

		return nil
	})
}

// AddChangeOrderItem appends an item to a draft change order.
func (s *Service) AddChangeOrderItem(ctx context.Context, id, coID uuid.UUID, params lineitem.Params) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		co, err := d.ChangeOrder(coID)
		if err != nil {
			return err
		}

		it, err := lineitem.New(params, d.Defaults(s.settings))
		if err != nil {
			return err
		}

		return co.AddItem(it)
	})
}

// EditChangeOrderItem edits an item of a draft change order with the same
// rules as document items.
func (s *Service) EditChangeOrderItem(ctx context.Context, id, coID, itemID uuid.UUID, edit ItemEdit) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		co, err := d.ChangeOrder(coID)
		if err != nil {
			return err
		}

		defaults := d.Defaults(s.settings)

		return co.EditItem(itemID, func(it *lineitem.Item) error {
			return applyEdit(it, edit, defaults)
		})
	})
}

func (s *Service) RemoveChangeOrderItem(ctx context.Context, id, coID, itemID uuid.UUID) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		co, err := d.ChangeOrder(coID)
		if err != nil {
			return err
		}

		return co.RemoveItem(itemID)
	})
}

// DecideChangeOrder approves or rejects a draft change order.
func (s *Service) DecideChangeOrder(ctx context.Context, id, coID uuid.UUID, status changeorder.Status, by string) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		co, err := d.ChangeOrder(coID)
		if err != nil {
			return err
		}

		switch status {
		case changeorder.StatusApproved:
			return co.Approve(d.TaxRates, by, s.now())
		case changeorder.StatusRejected:
			return co.Reject(d.TaxRates)
		default:
			return validation.New(validation.ErrInvalidTransition, "status", "%s -> %s", co.Status, status)
		}
	})
}

func (s *Service) AddPhase(ctx context.Context, id uuid.UUID, params PhaseParams) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		return d.Billing.Add(progress.NewPhase(params.Name, params.Percentage, params.DueDate))
	})
}

func (s *Service) UpdatePhase(ctx context.Context, id, phaseID uuid.UUID, params PhaseParams) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		return d.Billing.Update(phaseID, params.Name, params.Percentage, params.DueDate)
	})
}

// AdvancePhase moves a phase to billed or paid.
func (s *Service) AdvancePhase(ctx context.Context, id, phaseID uuid.UUID, state progress.State) (*Snapshot, error) {
	return s.mutate(ctx, id, func(d *Document) error {
		switch state {
		case progress.StateBilled:
			return d.Billing.MarkBilled(phaseID, s.now())
		case progress.StatePaid:
			return d.Billing.MarkPaid(phaseID, s.now())
		default:
			return validation.New(validation.ErrInvalidTransition, "state", "cannot move to %s", state)
		}
	})
}

func (s *Service) build(params CreateParams) (*Document, error) {
	rates := s.settings.TaxRates
	if params.TaxRates != nil {
		rates = *params.TaxRates
	}

	if err := rates.Validate(); err != nil {
		return nil, err
	}

	kind := params.Kind
	if kind == "" {
		kind = KindInvoice
	}

	doc := &Document{
		Kind:              kind,
		Number:            params.Number,
		Title:             params.Title,
		ClientName:        params.ClientName,
		IssueDate:         params.IssueDate,
		DueDate:           params.DueDate,
		Status:            StatusDraft,
		TaxRates:          rates,
		Discounts:         params.Discounts,
		DepositPercentage: params.DepositPercentage,
		Notes:             params.Notes,
	}

	defaults := doc.Defaults(s.settings)
	for _, p := range params.Items {
		it, err := lineitem.New(p, defaults)
		if err != nil {
			return nil, err
		}

		doc.Items = append(doc.Items, it)
	}

	return doc, nil
}

// mutate loads a document, applies fn to a copy and saves the result. Nothing
// is written when fn or the recomputation fails.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, fn func(d *Document) error) (*Snapshot, error) {
	current, err := s.repo.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	doc := current.Document.Clone()
	if err := fn(doc); err != nil {
		return nil, err
	}

	now := s.now()
	doc.UpdatedAt = &now

	return s.save(ctx, doc, now)
}

func (s *Service) save(ctx context.Context, doc *Document, now time.Time) (*Snapshot, error) {
	snap, err := Freeze(doc, now)
	if err != nil {
		return nil, err
	}

	if err := s.repo.SaveSnapshot(ctx, snap); err != nil {
		return nil, fmt.Errorf("saving snapshot: %w", err)
	}

	return snap, nil
}

func applyEdit(it *lineitem.Item, edit ItemEdit, defaults lineitem.Defaults) error {
	if edit.Description != nil {
		it.Description = *edit.Description
	}

	if edit.Unit != nil {
		it.Unit = *edit.Unit
	}

	if edit.Notes != nil {
		it.Notes = *edit.Notes
	}

	if edit.Category != nil {
		if err := it.SetCategory(*edit.Category, defaults); err != nil {
			return err
		}
	}

	if edit.Markup != nil {
		if err := it.SetMarkup(*edit.Markup); err != nil {
			return err
		}
	}

	if edit.Cost != nil {
		if err := it.SetCost(*edit.Cost); err != nil {
			return err
		}
	}

	if edit.Rate != nil {
		if err := it.SetRate(*edit.Rate); err != nil {
			return err
		}
	}

	if edit.Quantity != nil {
		if err := it.SetQuantity(*edit.Quantity); err != nil {
			return err
		}
	}

	return nil
}
