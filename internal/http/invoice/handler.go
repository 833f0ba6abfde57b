package invoice

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/changeorder"
	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/http/auth"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/progress"
)

type Handler struct {
	svc *invoice.Service
}

func NewHandler(svc *invoice.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.create)
	r.Get("/", h.list)

	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Put("/", h.update)
		r.Delete("/", h.delete)
		r.Get("/history", h.history)
		r.Get("/summary", h.summary)

		r.Post("/items", h.addItem)
		r.Patch("/items/{itemID}", h.editItem)
		r.Delete("/items/{itemID}", h.removeItem)

		r.Post("/payments", h.recordPayment)

		r.Post("/change-orders", h.addChangeOrder)
		r.Patch("/change-orders/{coID}/status", h.decideChangeOrder)
		r.Post("/change-orders/{coID}/items", h.addChangeOrderItem)
		r.Patch("/change-orders/{coID}/items/{itemID}", h.editChangeOrderItem)
		r.Delete("/change-orders/{coID}/items/{itemID}", h.removeChangeOrderItem)

		r.Post("/phases", h.addPhase)
		r.Patch("/phases/{phaseID}", h.updatePhase)
		r.Patch("/phases/{phaseID}/state", h.advancePhase)
	})
}

// Calculate previews the figures of a document without saving it.
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	snap, err := h.svc.Preview(req.params())
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, snap)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req documentRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	snap, err := h.svc.Create(r.Context(), req.params())
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusCreated, snap)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := invoice.ListFilter{}

	if s := r.URL.Query().Get("kind"); s != "" {
		filter.Kind = new(invoice.Kind(s))
	}

	if s := r.URL.Query().Get("status"); s != "" {
		filter.Status = new(invoice.Status(s))
	}

	snaps, err := h.svc.List(r.Context(), filter)
	if err != nil {
		render.Error(w, err)
		return
	}

	if snaps == nil {
		snaps = []*invoice.Snapshot{}
	}

	render.JSON(w, http.StatusOK, snaps)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	snap, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, snap)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req updateRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	h.respond(w, http.StatusOK)(h.svc.Update(r.Context(), id, req.params()))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		render.Error(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	snaps, err := h.svc.History(r.Context(), id)
	if err != nil {
		render.Error(w, err)
		return
	}

	render.JSON(w, http.StatusOK, snaps)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	snap, err := h.svc.Get(r.Context(), id)
	if err != nil {
		render.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(export.Summary(snap)))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req itemRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	h.respond(w, http.StatusCreated)(h.svc.AddItem(r.Context(), id, req.params()))
}

func (h *Handler) editItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}

	var req itemEditRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	h.respond(w, http.StatusOK)(h.svc.EditItem(r.Context(), id, itemID, req.edit()))
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}

	h.respond(w, http.StatusOK)(h.svc.RemoveItem(r.Context(), id, itemID))
}

func (h *Handler) recordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req paymentRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	params := invoice.PaymentParams{
		Date:   req.Date,
		Amount: req.Amount,
		Method: req.Method,
		Note:   req.Note,
	}
	if params.Date.IsZero() {
		params.Date = time.Now()
	}

	h.respond(w, http.StatusCreated)(h.svc.RecordPayment(r.Context(), id, params))
}

func (h *Handler) addChangeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req changeOrderRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	h.respond(w, http.StatusCreated)(h.svc.AddChangeOrder(r.Context(), id, req.params()))
}

func (h *Handler) decideChangeOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	coID, ok := pathID(w, r, "coID")
	if !ok {
		return
	}

	var req decisionRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	by := req.ApprovedBy
	if by == "" {
		by = auth.Subject(r.Context())
	}

	h.respond(w, http.StatusOK)(h.svc.DecideChangeOrder(r.Context(), id, coID, changeorder.Status(req.Status), by))
}

func (h *Handler) addChangeOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	coID, ok := pathID(w, r, "coID")
	if !ok {
		return
	}

	var req itemRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	h.respond(w, http.StatusCreated)(h.svc.AddChangeOrderItem(r.Context(), id, coID, req.params()))
}

func (h *Handler) editChangeOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	coID, ok := pathID(w, r, "coID")
	if !ok {
		return
	}

	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}

	var req itemEditRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	h.respond(w, http.StatusOK)(h.svc.EditChangeOrderItem(r.Context(), id, coID, itemID, req.edit()))
}

func (h *Handler) removeChangeOrderItem(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	coID, ok := pathID(w, r, "coID")
	if !ok {
		return
	}

	itemID, ok := pathID(w, r, "itemID")
	if !ok {
		return
	}

	h.respond(w, http.StatusOK)(h.svc.RemoveChangeOrderItem(r.Context(), id, coID, itemID))
}

func (h *Handler) addPhase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req phaseRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	h.respond(w, http.StatusCreated)(h.svc.AddPhase(r.Context(), id, req.params()))
}

func (h *Handler) updatePhase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	phaseID, ok := pathID(w, r, "phaseID")
	if !ok {
		return
	}

	var req phaseRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	h.respond(w, http.StatusOK)(h.svc.UpdatePhase(r.Context(), id, phaseID, req.params()))
}

func (h *Handler) advancePhase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	phaseID, ok := pathID(w, r, "phaseID")
	if !ok {
		return
	}

	var req phaseStateRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	h.respond(w, http.StatusOK)(h.svc.AdvancePhase(r.Context(), id, phaseID, progress.State(req.State)))
}

// respond writes the snapshot returned by a service mutation, or its error.
func (h *Handler) respond(w http.ResponseWriter, status int) func(*invoice.Snapshot, error) {
	return func(snap *invoice.Snapshot, err error) {
		if err != nil {
			render.Error(w, err)
			return
		}

		render.JSON(w, status, snap)
	}
}

func pathID(w http.ResponseWriter, r *http.Request, key string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, key))
	if err != nil {
		render.BadRequest(w, "invalid "+key)
		return uuid.Nil, false
	}

	return id, true
}
