package matching

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/lineitem"
	"github.com/MrJamesThe3rd/tally/internal/matching"
)

type Handler struct {
	svc    *matching.Service
	docSvc *invoice.Service
}

func NewHandler(svc *matching.Service, docSvc *invoice.Service) *Handler {
	return &Handler{svc: svc, docSvc: docSvc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Get("/suggest", h.suggest)
	r.Post("/", h.learn)
	r.Post("/documents/{id}", h.learnDocument)
}

type suggestResponse struct {
	Description string            `json:"description"`
	Category    lineitem.Category `json:"category"`
	Matched     bool              `json:"matched"`
}

func (h *Handler) suggest(w http.ResponseWriter, r *http.Request) {
	desc := r.URL.Query().Get("description")
	if desc == "" {
		render.BadRequest(w, "description query parameter is required")
		return
	}

	category, err := h.svc.Suggest(r.Context(), desc)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, suggestResponse{
		Description: desc,
		Category:    category,
		Matched:     category != "",
	})
}

type learnRequest struct {
	RawPattern string `json:"raw_pattern" validate:"required"`
	Category   string `json:"category" validate:"required"`
}

func (h *Handler) learn(w http.ResponseWriter, r *http.Request) {
	var req learnRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	if err := h.svc.Learn(r.Context(), req.RawPattern, lineitem.Category(req.Category)); err != nil {
		render.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
}

type learnDocumentResponse struct {
	Learned int `json:"learned"`
}

// learnDocument records the categories chosen on a saved document.
func (h *Handler) learnDocument(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		render.BadRequest(w, "invalid id")
		return
	}

	snap, err := h.docSvc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, err)
		return
	}

	n, err := h.svc.LearnItems(r.Context(), snap.Document.Items)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, learnDocumentResponse{Learned: n})
}
