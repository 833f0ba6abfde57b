package importcsv

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/importer"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
)

type Handler struct {
	importSvc *importer.Service
	docSvc    *invoice.Service
}

func NewHandler(importSvc *importer.Service, docSvc *invoice.Service) *Handler {
	return &Handler{
		importSvc: importSvc,
		docSvc:    docSvc,
	}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.importFile)
	r.Post("/confirm", h.confirmImport)
}

type draftDTO struct {
	Description string              `json:"description" validate:"required"`
	Category    lineitem.Category   `json:"category"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Unit        string              `json:"unit,omitempty"`
	Cost        decimal.NullDecimal `json:"cost"`
	Markup      decimal.NullDecimal `json:"markup"`
	Rate        decimal.Decimal     `json:"rate"`
	Notes       string              `json:"notes,omitempty"`
	Suggested   bool                `json:"suggested"`
}

type importResponse struct {
	Format importer.Format `json:"format"`
	Items  []draftDTO      `json:"items"`
}

type confirmRequest struct {
	DocumentID uuid.UUID  `json:"document_id" validate:"required"`
	Items      []draftDTO `json:"items" validate:"required,min=1,dive"`
}

func (h *Handler) importFile(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		render.BadRequest(w, "failed to parse form: "+err.Error())
		return
	}

	format := importer.Format(r.FormValue("format"))
	if format == "" {
		format = importer.FormatPriceSheet
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		render.BadRequest(w, "file field is required")
		return
	}
	defer file.Close()

	drafts, err := h.importSvc.Import(r.Context(), format, file)
	if err != nil {
		render.BadRequest(w, err.Error())
		return
	}

	resp := importResponse{Format: format, Items: make([]draftDTO, 0, len(drafts))}
	for _, d := range drafts {
		resp.Items = append(resp.Items, toDraftDTO(d))
	}

	render.JSON(w, http.StatusOK, resp)
}

func (h *Handler) confirmImport(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	params := make([]lineitem.Params, 0, len(req.Items))
	for _, d := range req.Items {
		params = append(params, lineitem.Params{
			Description: d.Description,
			Category:    d.Category,
			Quantity:    d.Quantity,
			Unit:        d.Unit,
			Cost:        d.Cost,
			Markup:      d.Markup,
			Rate:        d.Rate,
			Notes:       d.Notes,
		})
	}

	snap, err := h.docSvc.AddItems(r.Context(), req.DocumentID, params)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusCreated, snap)
}

func toDraftDTO(d importer.Draft) draftDTO {
	return draftDTO{
		Description: d.Params.Description,
		Category:    d.Params.Category,
		Quantity:    d.Params.Quantity,
		Unit:        d.Params.Unit,
		Cost:        d.Params.Cost,
		Markup:      d.Params.Markup,
		Rate:        d.Params.Rate,
		Notes:       d.Params.Notes,
		Suggested:   d.Suggested,
	}
}
