package invoice_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	invoicehttp "github.com/MrJamesThe3rd/tally/internal/http/invoice"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/tax"
)

var now = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func newServer(t *testing.T) (*invoice.Service, *invoice.MockRepository, http.Handler) {
	t.Helper()

	ctrl := gomock.NewController(t)
	repo := invoice.NewMockRepository(ctrl)
	svc := invoice.NewService(repo, invoice.Settings{
		TaxRates: tax.Rates{Material: decimal.NewFromInt(10)},
	}).WithClock(func() time.Time { return now })

	h := invoicehttp.NewHandler(svc)

	r := chi.NewRouter()
	r.Post("/calculate", h.Calculate)
	r.Route("/documents", h.Routes)

	return svc, repo, r
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequestWithContext(context.Background(), method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decodeSnapshot(t *testing.T, rec *httptest.ResponseRecorder) *invoice.Snapshot {
	t.Helper()

	var snap invoice.Snapshot
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))

	return &snap
}

const tileBody = `{"number":"INV-7","title":"Bathroom","items":[{"description":"tile","category":"material","quantity":"10","rate":"5"}]}`

func stored(t *testing.T, svc *invoice.Service) *invoice.Snapshot {
	t.Helper()

	snap, err := svc.Preview(invoice.CreateParams{
		Number:    "INV-7",
		Title:     "Bathroom",
		IssueDate: now,
		Items: []lineitem.Params{
			{Description: "tile", Category: lineitem.CategoryMaterial, Quantity: decimal.NewFromInt(10), Rate: decimal.NewFromInt(5)},
		},
	})
	require.NoError(t, err)

	snap.Document.ID = uuid.New()

	return snap
}

func TestHandler_Calculate(t *testing.T) {
	_, _, srv := newServer(t)

	rec := do(t, srv, http.MethodPost, "/calculate", tileBody)
	require.Equal(t, http.StatusOK, rec.Code)

	snap := decodeSnapshot(t, rec)
	assert.Equal(t, "50", snap.Totals.Subtotal.String())
	assert.Equal(t, "5", snap.Totals.Tax.TotalTax.String())
	assert.Equal(t, "55", snap.Totals.Total.String())
	assert.Equal(t, invoice.KindInvoice, snap.Document.Kind)
}

func TestHandler_CalculateRejects(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
		wantType string
	}{
		{
			name:     "MalformedJSON",
			body:     `{"items":`,
			wantCode: http.StatusBadRequest,
			wantType: "invalid_request",
		},
		{
			name:     "MissingDescription",
			body:     `{"items":[{"quantity":"1","rate":"2"}]}`,
			wantCode: http.StatusBadRequest,
			wantType: "invalid_request",
		},
		{
			name:     "UnknownKind",
			body:     `{"kind":"receipt"}`,
			wantCode: http.StatusBadRequest,
			wantType: "invalid_request",
		},
		{
			name:     "NegativeQuantity",
			body:     `{"items":[{"description":"tile","quantity":"-1","rate":"2"}]}`,
			wantCode: http.StatusUnprocessableEntity,
			wantType: "validation_error",
		},
		{
			name:     "RateOutOfRange",
			body:     `{"tax_rates":{"material":"101","labor":"0","equipment":"0","other":"0"}}`,
			wantCode: http.StatusUnprocessableEntity,
			wantType: "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, srv := newServer(t)

			rec := do(t, srv, http.MethodPost, "/calculate", tt.body)
			assert.Equal(t, tt.wantCode, rec.Code)

			var body struct {
				Error struct {
					Type string `json:"type"`
				} `json:"error"`
			}
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
			assert.Equal(t, tt.wantType, body.Error.Type)
		})
	}
}

func TestHandler_Create(t *testing.T) {
	_, repo, srv := newServer(t)

	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	rec := do(t, srv, http.MethodPost, "/documents", tileBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	snap := decodeSnapshot(t, rec)
	assert.NotEqual(t, uuid.Nil, snap.Document.ID)
	assert.Equal(t, invoice.StatusDraft, snap.Document.Status)
}

func TestHandler_Get(t *testing.T) {
	t.Run("Success", func(t *testing.T) {
		svc, repo, srv := newServer(t)
		snap := stored(t, svc)

		repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(snap, nil)

		rec := do(t, srv, http.MethodGet, "/documents/"+snap.Document.ID.String(), "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "55", decodeSnapshot(t, rec).Totals.Total.String())
	})

	t.Run("NotFound", func(t *testing.T) {
		_, repo, srv := newServer(t)
		id := uuid.New()

		repo.EXPECT().GetSnapshot(gomock.Any(), id).Return(nil, invoice.ErrNotFound)

		rec := do(t, srv, http.MethodGet, "/documents/"+id.String(), "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("InvalidID", func(t *testing.T) {
		_, _, srv := newServer(t)

		rec := do(t, srv, http.MethodGet, "/documents/not-a-uuid", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_List(t *testing.T) {
	_, repo, srv := newServer(t)

	quote := invoice.KindQuote
	repo.EXPECT().
		ListSnapshots(gomock.Any(), invoice.ListFilter{Kind: &quote}).
		Return(nil, nil)

	rec := do(t, srv, http.MethodGet, "/documents?kind=quote", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestHandler_AddItem(t *testing.T) {
	svc, repo, srv := newServer(t)
	snap := stored(t, svc)

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(snap, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	rec := do(t, srv, http.MethodPost, "/documents/"+snap.Document.ID.String()+"/items",
		`{"description":"grout","category":"material","quantity":"2","rate":"10"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	got := decodeSnapshot(t, rec)
	assert.Len(t, got.Document.Items, 2)
	assert.Equal(t, "77", got.Totals.Total.String())
}

func TestHandler_DecideChangeOrder(t *testing.T) {
	svc, repo, srv := newServer(t)
	snap := stored(t, svc)

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(snap, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	rec := do(t, srv, http.MethodPost, "/documents/"+snap.Document.ID.String()+"/change-orders",
		`{"description":"extra shelf","items":[{"description":"shelf","category":"material","quantity":"1","rate":"20"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	withCO := decodeSnapshot(t, rec)
	require.Len(t, withCO.Document.ChangeOrders, 1)
	assert.True(t, withCO.ChangeOrderTotal.IsZero())

	co := withCO.Document.ChangeOrders[0]

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(withCO, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	rec = do(t, srv, http.MethodPatch,
		"/documents/"+snap.Document.ID.String()+"/change-orders/"+co.ID.String()+"/status",
		`{"status":"approved","approved_by":"dana"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	approved := decodeSnapshot(t, rec)
	assert.Equal(t, "22", approved.ChangeOrderTotal.String())
	assert.Equal(t, "77", approved.ProjectTotal.String())
}

func TestHandler_Summary(t *testing.T) {
	svc, repo, srv := newServer(t)
	snap := stored(t, svc)

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(snap, nil)

	rec := do(t, srv, http.MethodGet, "/documents/"+snap.Document.ID.String()+"/summary", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/plain")
	assert.Contains(t, rec.Body.String(), "INV-7")
}

func TestHandler_Delete(t *testing.T) {
	_, repo, srv := newServer(t)
	id := uuid.New()

	repo.EXPECT().DeleteDocument(gomock.Any(), id).Return(nil)

	rec := do(t, srv, http.MethodDelete, "/documents/"+id.String(), "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestHandler_ChangeOrderItems(t *testing.T) {
	svc, repo, srv := newServer(t)
	snap := stored(t, svc)
	base := "/documents/" + snap.Document.ID.String()

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(snap, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	rec := do(t, srv, http.MethodPost, base+"/change-orders",
		`{"description":"extra shelf","items":[{"description":"shelf","category":"material","quantity":"1","rate":"20"}]}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	withCO := decodeSnapshot(t, rec)
	co := withCO.Document.ChangeOrders[0]
	coPath := base + "/change-orders/" + co.ID.String()

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(withCO, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	rec = do(t, srv, http.MethodPost, coPath+"/items",
		`{"description":"bracket","category":"Material","quantity":"4","rate":"2.5"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	added := decodeSnapshot(t, rec)
	require.Len(t, added.Document.ChangeOrders[0].Items, 2)
	assert.Equal(t, lineitem.CategoryMaterial, added.Document.ChangeOrders[0].Items[1].Category)
	assert.Equal(t, "33", added.Document.ChangeOrders[0].Total.String())

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(added, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	shelf := co.Items[0].ID.String()
	rec = do(t, srv, http.MethodPatch, coPath+"/items/"+shelf, `{"quantity":"2"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	edited := decodeSnapshot(t, rec)
	assert.Equal(t, "55", edited.Document.ChangeOrders[0].Total.String())
	assert.True(t, edited.ChangeOrderTotal.IsZero())

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(edited, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	rec = do(t, srv, http.MethodPatch, coPath+"/status", `{"status":"approved"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	approved := decodeSnapshot(t, rec)
	assert.Equal(t, "55", approved.ChangeOrderTotal.String())

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(approved, nil)

	rec = do(t, srv, http.MethodPatch, coPath+"/items/"+shelf, `{"quantity":"3"}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body struct {
		Error struct {
			Errors []struct {
				Code string `json:"code"`
			} `json:"errors"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	require.Len(t, body.Error.Errors, 1)
	assert.Equal(t, "locked", body.Error.Errors[0].Code)

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(approved, nil)

	rec = do(t, srv, http.MethodDelete, coPath+"/items/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestHandler_ChangeOrderItemNotFound(t *testing.T) {
	svc, repo, srv := newServer(t)
	snap := stored(t, svc)
	base := "/documents/" + snap.Document.ID.String()

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(snap, nil)
	repo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

	rec := do(t, srv, http.MethodPost, base+"/change-orders", `{"description":"tbd"}`)
	require.Equal(t, http.StatusCreated, rec.Code)

	withCO := decodeSnapshot(t, rec)
	coPath := base + "/change-orders/" + withCO.Document.ChangeOrders[0].ID.String()

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(withCO, nil)

	rec = do(t, srv, http.MethodDelete, coPath+"/items/"+uuid.NewString(), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	repo.EXPECT().GetSnapshot(gomock.Any(), snap.Document.ID).Return(withCO, nil)

	rec = do(t, srv, http.MethodPost, base+"/change-orders/"+uuid.NewString()+"/items",
		`{"description":"bolt","quantity":"1","rate":"1"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
