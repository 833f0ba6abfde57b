package invoice_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/changeorder"
	"github.com/MrJamesThe3rd/tally/internal/discount"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/progress"
	"github.com/MrJamesThe3rd/tally/internal/validation"
)

func settings() invoice.Settings {
	return invoice.Settings{
		TaxRates:       rates(),
		MaterialMarkup: d("20"),
		LaborMarkup:    d("0"),
	}
}

func newService(t *testing.T) (*invoice.Service, *invoice.MockRepository) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := invoice.NewMockRepository(ctrl)
	svc := invoice.NewService(repo, settings()).WithClock(func() time.Time { return now })

	return svc, repo
}

func createParams() invoice.CreateParams {
	return invoice.CreateParams{
		Number:    "INV-1",
		Title:     "Kitchen",
		IssueDate: now,
		Items: []lineitem.Params{
			{Description: "tile", Category: lineitem.CategoryMaterial, Quantity: d("10"), Cost: decimal.NewNullDecimal(d("5"))},
			{Description: "install", Category: lineitem.CategoryLabor, Quantity: d("4"), Rate: d("45")},
		},
	}
}

// stored freezes params into a snapshot the mock repository can hand back.
func stored(t *testing.T, svc *invoice.Service) *invoice.Snapshot {
	t.Helper()

	snap, err := svc.Preview(createParams())
	require.NoError(t, err)

	snap.Document.ID = uuid.New()

	return snap
}

func TestService_Create(t *testing.T) {
	type testCase struct {
		name      string
		params    func() invoice.CreateParams
		setupMock func(m *invoice.MockRepository)
		wantErr   error
	}

	tests := []testCase{
		{
			name:   "Success",
			params: createParams,
			setupMock: func(m *invoice.MockRepository) {
				m.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)
			},
		},
		{
			name: "UnknownCategoryIsNotSaved",
			params: func() invoice.CreateParams {
				p := createParams()
				p.Items[0].Category = "plumbing-ish"

				return p
			},
			wantErr: validation.ErrUnknownCategory,
		},
		{
			name: "InvalidDiscountIsNotSaved",
			params: func() invoice.CreateParams {
				p := createParams()
				p.Discounts = []discount.Rule{{Type: discount.TypePercentage, Value: d("101"), AppliesTo: discount.ScopeSubtotal}}

				return p
			},
			wantErr: validation.ErrInvalidRate,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newService(t)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			got, err := svc.Create(context.Background(), tt.params())
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, got.Document.ID)
			assert.Equal(t, invoice.StatusDraft, got.Document.Status)
			assert.Equal(t, invoice.KindInvoice, got.Document.Kind)
			// tile: cost 5 + 20% markup = 6 × 10 = 60, taxed at 10%.
			assert.Equal(t, "6", got.Document.Items[0].Rate.String())
			assert.Equal(t, "240.00", got.Totals.Subtotal.StringFixed(2))
			assert.Equal(t, "6.00", got.Totals.Tax.MaterialTax.StringFixed(2))
			assert.Equal(t, "9.00", got.Totals.Tax.LaborTax.StringFixed(2))
			assert.Equal(t, "255.00", got.Totals.Total.StringFixed(2))
		})
	}
}

func TestService_CreateRepoError(t *testing.T) {
	svc, repo := newService(t)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(errors.New("db error"))

	_, err := svc.Create(context.Background(), createParams())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "saving snapshot")
}

func TestService_AddItem(t *testing.T) {
	svc, repo := newService(t)
	current := stored(t, svc)

	var saved *invoice.Snapshot

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(current, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, snap *invoice.Snapshot) error {
			saved = snap
			return nil
		})

	got, err := svc.AddItem(context.Background(), current.Document.ID, lineitem.Params{
		Description: "dumpster",
		Category:    lineitem.CategoryEquipment,
		Quantity:    d("1"),
		Rate:        d("300"),
	})
	require.NoError(t, err)

	assert.Same(t, saved, got)
	assert.Len(t, got.Document.Items, 3)
	assert.Len(t, current.Document.Items, 2)
	assert.Equal(t, "540.00", got.Totals.Subtotal.StringFixed(2))
	require.NotNil(t, got.Document.UpdatedAt)
	assert.Equal(t, now, *got.Document.UpdatedAt)
}

func TestService_AddItems(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc, repo := newService(t)
		current := stored(t, svc)

		repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(current, nil)
		repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

		got, err := svc.AddItems(context.Background(), current.Document.ID, []lineitem.Params{
			{Description: "grout", Category: lineitem.CategoryMaterial, Quantity: d("2"), Cost: decimal.NewNullDecimal(d("10"))},
			{Description: "haul away", Category: lineitem.CategoryOther, Quantity: d("1"), Rate: d("40")},
		})
		require.NoError(t, err)

		assert.Len(t, got.Document.Items, 4)
		// 240 + 2 x 12 + 40
		assert.Equal(t, "304.00", got.Totals.Subtotal.StringFixed(2))
	})

	t.Run("RejectsAll", func(t *testing.T) {
		svc, repo := newService(t)
		current := stored(t, svc)

		repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(current, nil)

		_, err := svc.AddItems(context.Background(), current.Document.ID, []lineitem.Params{
			{Description: "grout", Category: lineitem.CategoryMaterial, Quantity: d("2"), Rate: d("10")},
			{Description: "bad", Category: lineitem.CategoryOther, Quantity: d("-1"), Rate: d("1")},
		})
		require.ErrorIs(t, err, validation.ErrInvalidQuantity)
		assert.ErrorContains(t, err, "item 2")
		assert.Len(t, current.Document.Items, 2)
	})
}

func TestService_EditItem(t *testing.T) {
	svc, repo := newService(t)
	current := stored(t, svc)
	labor := current.Document.Items[1]

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(current, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	category := lineitem.CategoryFraming
	cost := d("50")
	qty := d("2")

	got, err := svc.EditItem(context.Background(), current.Document.ID, labor.ID, invoice.ItemEdit{
		Category: &category,
		Cost:     &cost,
		Quantity: &qty,
	})
	require.NoError(t, err)

	edited, err := got.Document.Item(labor.ID)
	require.NoError(t, err)
	assert.Equal(t, lineitem.CategoryFraming, edited.Category)
	assert.Equal(t, "50", edited.Rate.String())
	assert.Equal(t, "100", edited.Total.String())
}

func TestService_EditItemNotFound(t *testing.T) {
	svc, repo := newService(t)
	current := stored(t, svc)

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(current, nil)

	qty := d("2")
	_, err := svc.EditItem(context.Background(), current.Document.ID, uuid.New(), invoice.ItemEdit{Quantity: &qty})
	assert.ErrorIs(t, err, invoice.ErrItemNotFound)
}

func TestService_RecordPaymentRejectsZero(t *testing.T) {
	svc, repo := newService(t)
	current := stored(t, svc)

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(current, nil)

	_, err := svc.RecordPayment(context.Background(), current.Document.ID, invoice.PaymentParams{Amount: d("0"), Date: now})
	assert.ErrorIs(t, err, validation.ErrInvalidValue)
}

func TestService_ChangeOrderFlow(t *testing.T) {
	svc, repo := newService(t)
	current := stored(t, svc)
	ctx := context.Background()

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(current, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	withCO, err := svc.AddChangeOrder(ctx, current.Document.ID, invoice.ChangeOrderParams{
		Description: "extra outlet",
		Date:        now,
		Items: []lineitem.Params{
			{Description: "outlet", Category: lineitem.CategoryMaterial, Quantity: d("1"), Rate: d("80")},
		},
	})
	require.NoError(t, err)
	require.Len(t, withCO.Document.ChangeOrders, 1)

	co := withCO.Document.ChangeOrders[0]
	assert.Equal(t, "CO-001", co.Number)
	assert.Equal(t, "88.00", co.Total.StringFixed(2))
	assert.True(t, withCO.ChangeOrderTotal.IsZero())

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(withCO, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	approved, err := svc.DecideChangeOrder(ctx, current.Document.ID, co.ID, changeorder.StatusApproved, "owner")
	require.NoError(t, err)

	assert.Equal(t, "88.00", approved.ChangeOrderTotal.StringFixed(2))
	assert.Equal(t, "343.00", approved.ProjectTotal.StringFixed(2))
	assert.Equal(t, "owner", approved.Document.ChangeOrders[0].ApprovedBy)

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(approved, nil)

	_, err = svc.DecideChangeOrder(ctx, current.Document.ID, co.ID, changeorder.StatusRejected, "")
	assert.ErrorIs(t, err, validation.ErrInvalidTransition)
}

func TestService_PhaseFlow(t *testing.T) {
	svc, repo := newService(t)
	current := stored(t, svc)
	ctx := context.Background()

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(current, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	withPhase, err := svc.AddPhase(ctx, current.Document.ID, invoice.PhaseParams{Name: "deposit", Percentage: d("30"), DueDate: now})
	require.NoError(t, err)
	require.Len(t, withPhase.Document.Billing.Phases, 1)

	phase := withPhase.Document.Billing.Phases[0]
	assert.Equal(t, "76.50", phase.Amount.StringFixed(2))

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(withPhase, nil)

	_, err = svc.AdvancePhase(ctx, current.Document.ID, phase.ID, progress.StatePaid)
	assert.ErrorIs(t, err, validation.ErrInvalidTransition)

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(withPhase, nil)

	_, err = svc.UpdatePhase(ctx, current.Document.ID, phase.ID, invoice.PhaseParams{Name: "deposit", Percentage: d("101"), DueDate: now})
	assert.ErrorIs(t, err, validation.ErrInvalidRate)

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(withPhase, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	billed, err := svc.AdvancePhase(ctx, current.Document.ID, phase.ID, progress.StateBilled)
	require.NoError(t, err)
	assert.Equal(t, progress.StateBilled, billed.Document.Billing.Phases[0].State)
}

func TestService_GetNotFound(t *testing.T) {
	svc, repo := newService(t)
	id := uuid.New()

	repo.EXPECT().GetSnapshot(gomock.Any(), id).Return(nil, invoice.ErrNotFound)

	_, err := svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, invoice.ErrNotFound)

	repo.EXPECT().GetSnapshot(gomock.Any(), id).Return(nil, invoice.ErrNotFound)

	_, err = svc.RemoveItem(context.Background(), id, uuid.New())
	assert.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestService_History(t *testing.T) {
	svc, repo := newService(t)
	current := stored(t, svc)
	ctx := context.Background()

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(current, nil)
	repo.EXPECT().History(gomock.Any(), current.Document.ID).Return([]*invoice.Snapshot{current}, nil)

	got, err := svc.History(ctx, current.Document.ID)
	require.NoError(t, err)
	assert.Len(t, got, 1)

	missing := uuid.New()
	repo.EXPECT().GetSnapshot(gomock.Any(), missing).Return(nil, invoice.ErrNotFound)

	_, err = svc.History(ctx, missing)
	assert.ErrorIs(t, err, invoice.ErrNotFound)
}

func TestService_ChangeOrderItems(t *testing.T) {
	svc, repo := newService(t)
	current := stored(t, svc)
	ctx := context.Background()
	id := current.Document.ID

	repo.EXPECT().GetSnapshot(gomock.Any(), id).Return(current, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	withCO, err := svc.AddChangeOrder(ctx, id, invoice.ChangeOrderParams{
		Description: "extra outlet",
		Date:        now,
		Items: []lineitem.Params{
			{Description: "outlet", Category: lineitem.CategoryMaterial, Quantity: d("1"), Rate: d("80")},
		},
	})
	require.NoError(t, err)

	co := withCO.Document.ChangeOrders[0]
	outlet := co.Items[0]

	repo.EXPECT().GetSnapshot(gomock.Any(), id).Return(withCO, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	added, err := svc.AddChangeOrderItem(ctx, id, co.ID, lineitem.Params{
		Description: "wiring", Category: lineitem.CategoryLabor, Quantity: d("2"), Rate: d("40"),
	})
	require.NoError(t, err)
	require.Len(t, added.Document.ChangeOrders[0].Items, 2)
	assert.Equal(t, "172.00", added.Document.ChangeOrders[0].Total.StringFixed(2))

	wiring := added.Document.ChangeOrders[0].Items[1]

	repo.EXPECT().GetSnapshot(gomock.Any(), id).Return(added, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	qty := d("2")
	edited, err := svc.EditChangeOrderItem(ctx, id, co.ID, outlet.ID, invoice.ItemEdit{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, "260.00", edited.Document.ChangeOrders[0].Total.StringFixed(2))

	repo.EXPECT().GetSnapshot(gomock.Any(), id).Return(edited, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	removed, err := svc.RemoveChangeOrderItem(ctx, id, co.ID, wiring.ID)
	require.NoError(t, err)
	assert.Equal(t, "176.00", removed.Document.ChangeOrders[0].Total.StringFixed(2))

	repo.EXPECT().GetSnapshot(gomock.Any(), id).Return(removed, nil)

	_, err = svc.RemoveChangeOrderItem(ctx, id, co.ID, uuid.New())
	assert.ErrorIs(t, err, changeorder.ErrItemNotFound)

	repo.EXPECT().GetSnapshot(gomock.Any(), id).Return(removed, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	approved, err := svc.DecideChangeOrder(ctx, id, co.ID, changeorder.StatusApproved, "owner")
	require.NoError(t, err)
	assert.Equal(t, "176.00", approved.ChangeOrderTotal.StringFixed(2))

	repo.EXPECT().GetSnapshot(gomock.Any(), id).Return(approved, nil)

	_, err = svc.EditChangeOrderItem(ctx, id, co.ID, outlet.ID, invoice.ItemEdit{Quantity: &qty})
	assert.ErrorIs(t, err, validation.ErrLocked)
}

func TestService_ApprovedChangeOrderSurvivesRateChange(t *testing.T) {
	svc, repo := newService(t)
	current := stored(t, svc)
	ctx := context.Background()
	id := current.Document.ID

	co := changeorder.New("CO-001", "shelf", now)
	it, err := lineitem.New(lineitem.Params{Description: "shelf", Category: lineitem.CategoryMaterial, Quantity: d("1"), Rate: d("100")}, lineitem.Defaults{})
	require.NoError(t, err)
	require.NoError(t, co.AddItem(it))
	require.NoError(t, co.Approve(rates(), "owner", now))

	current.Document.ChangeOrders = []*changeorder.ChangeOrder{co}

	repo.EXPECT().GetSnapshot(gomock.Any(), id).Return(current, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	higher := rates()
	higher.Material = d("20")

	got, err := svc.Update(ctx, id, invoice.UpdateParams{TaxRates: &higher})
	require.NoError(t, err)

	assert.Equal(t, "110.00", got.ChangeOrderTotal.StringFixed(2))
	assert.Equal(t, "110.00", got.Document.ChangeOrders[0].Total.StringFixed(2))
}

func TestService_GetRejectsDrift(t *testing.T) {
	svc, repo := newService(t)
	current := stored(t, svc)
	current.Totals.Total = current.Totals.Total.Add(d("1"))

	repo.EXPECT().GetSnapshot(gomock.Any(), current.Document.ID).Return(current, nil)

	_, err := svc.Get(context.Background(), current.Document.ID)
	assert.ErrorIs(t, err, invoice.ErrSnapshotDrift)
}
