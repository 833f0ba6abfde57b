package export

import (
	"archive/zip"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrJamesThe3rd/tally/internal/export"
	"github.com/MrJamesThe3rd/tally/internal/http/render"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
)

type Handler struct {
	svc *export.Service
}

func NewHandler(svc *export.Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/", h.metadata)
	r.Post("/download", h.download)
}

type exportRequest struct {
	Kind   string `json:"kind,omitempty" validate:"omitempty,oneof=invoice quote"`
	Status string `json:"status,omitempty" validate:"omitempty,oneof=draft sent accepted paid void"`
}

func (req exportRequest) filter() invoice.ListFilter {
	var f invoice.ListFilter

	if req.Kind != "" {
		f.Kind = new(invoice.Kind(req.Kind))
	}

	if req.Status != "" {
		f.Status = new(invoice.Status(req.Status))
	}

	return f
}

type exportMetadataResponse struct {
	Documents []*invoice.Snapshot `json:"documents"`
	EmailBody string              `json:"email_body"`
}

func (h *Handler) metadata(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	tmpDir, err := os.MkdirTemp("", "tally-export-*")
	if err != nil {
		render.Error(w, err)
		return
	}
	defer os.RemoveAll(tmpDir)

	items, err := h.svc.Export(r.Context(), req.filter(), tmpDir)
	if err != nil {
		render.Error(w, err)
		return
	}

	docs := make([]*invoice.Snapshot, 0, len(items))
	for _, item := range items {
		docs = append(docs, item.Snapshot)
	}

	render.JSON(w, http.StatusOK, exportMetadataResponse{
		Documents: docs,
		EmailBody: h.svc.GenerateEmailBody(items),
	})
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	var req exportRequest
	if err := render.Decode(r, &req); err != nil {
		render.Error(w, err)
		return
	}

	tmpDir, err := os.MkdirTemp("", "tally-export-*")
	if err != nil {
		render.Error(w, err)
		return
	}
	defer os.RemoveAll(tmpDir)

	items, err := h.svc.Export(r.Context(), req.filter(), tmpDir)
	if err != nil {
		render.Error(w, err)
		return
	}

	emailBody := h.svc.GenerateEmailBody(items)
	if err := os.WriteFile(filepath.Join(tmpDir, "email_body.txt"), []byte(emailBody), 0o644); err != nil {
		render.Error(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=\"export_%s.zip\"", time.Now().Format("20060102")))

	zipWriter := zip.NewWriter(w)
	defer zipWriter.Close()

	err = filepath.Walk(tmpDir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}

		relPath, _ := filepath.Rel(tmpDir, path)

		zf, err := zipWriter.Create(relPath)
		if err != nil {
			return err
		}

		f, err := os.Open(path)
		if err != nil {
			return err
		}
		defer f.Close()

		_, err = io.Copy(zf, f)

		return err
	})
	if err != nil {
		slog.Error("failed to create zip", "error", err)
	}
}
