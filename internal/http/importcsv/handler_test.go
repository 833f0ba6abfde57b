package importcsv_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/tally/internal/http/importcsv"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/matching"
)

const sheet = "Description,Qty,Unit,Unit Price\n" +
	"Copper pipe,10,m,3.20\n" +
	"Labour,8,hr,45\n"

func setup(t *testing.T) (http.Handler, *matching.MockRepository, *invoice.MockRepository) {
	t.Helper()

	ctrl := gomock.NewController(t)
	matchRepo := matching.NewMockRepository(ctrl)
	docRepo := invoice.NewMockRepository(ctrl)

	docs := invoice.NewService(docRepo, invoice.Settings{}).
		WithClock(func() time.Time { return time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC) })

	r := chi.NewRouter()
	r.Route("/import", importcsv.NewHandler(importer.NewService(matching.NewService(matchRepo)), docs).Routes)

	return r, matchRepo, docRepo
}

func upload(t *testing.T, format, content string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if format != "" {
		require.NoError(t, mw.WriteField("format", format))
	}

	if content != "" {
		fw, err := mw.CreateFormFile("file", "sheet.csv")
		require.NoError(t, err)
		_, err = fw.Write([]byte(content))
		require.NoError(t, err)
	}

	require.NoError(t, mw.Close())

	req := httptest.NewRequestWithContext(context.Background(), http.MethodPost, "/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	return req
}

func TestHandler_Import(t *testing.T) {
	t.Run("SuggestsCategories", func(t *testing.T) {
		h, matchRepo, _ := setup(t)

		matchRepo.EXPECT().FindCategory(gomock.Any(), "Copper pipe").Return(lineitem.CategoryPlumbing, nil)
		matchRepo.EXPECT().FindCategory(gomock.Any(), "Labour").Return(lineitem.Category(""), nil)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, upload(t, "", sheet))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp struct {
			Format string `json:"format"`
			Items  []struct {
				Description string `json:"description"`
				Category    string `json:"category"`
				Quantity    string `json:"quantity"`
				Rate        string `json:"rate"`
				Suggested   bool   `json:"suggested"`
			} `json:"items"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

		assert.Equal(t, "pricesheet", resp.Format)
		require.Len(t, resp.Items, 2)

		assert.Equal(t, "plumbing", resp.Items[0].Category)
		assert.True(t, resp.Items[0].Suggested)
		assert.Equal(t, "3.2", resp.Items[0].Rate)

		assert.Equal(t, "other", resp.Items[1].Category)
		assert.False(t, resp.Items[1].Suggested)
	})

	t.Run("MissingFile", func(t *testing.T) {
		h, _, _ := setup(t)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, upload(t, "pricesheet", ""))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		h, _, _ := setup(t)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, upload(t, "qif", sheet))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_Confirm(t *testing.T) {
	t.Run("AddsItems", func(t *testing.T) {
		h, _, docRepo := setup(t)

		id := uuid.New()
		docRepo.EXPECT().GetSnapshot(gomock.Any(), id).Return(&invoice.Snapshot{
			Document: invoice.Document{ID: id, Kind: invoice.KindQuote, Number: "Q-12", Status: invoice.StatusDraft},
		}, nil)
		docRepo.EXPECT().SaveSnapshot(gomock.Any(), gomock.Any()).Return(nil)

		body := `{"document_id":"` + id.String() + `","items":[` +
			`{"description":"Copper pipe","category":"plumbing","quantity":"10","rate":"3.20"},` +
			`{"description":"Labour","category":"labor","quantity":"8","rate":"45"}]}`

		req := httptest.NewRequestWithContext(context.Background(), http.MethodPost, "/import/confirm", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusCreated, rec.Code)

		var snap invoice.Snapshot
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&snap))

		assert.Len(t, snap.Document.Items, 2)
		assert.Equal(t, "392", snap.Totals.Total.String())
	})

	t.Run("NoItems", func(t *testing.T) {
		h, _, _ := setup(t)

		body := `{"document_id":"` + uuid.NewString() + `","items":[]}`
		req := httptest.NewRequestWithContext(context.Background(), http.MethodPost, "/import/confirm", strings.NewReader(body))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
