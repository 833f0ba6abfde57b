// Package render holds the JSON request and response helpers shared by the
// HTTP handlers.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/tally/internal/changeorder"
	"github.com/MrJamesThe3rd/tally/internal/invoice"
	"github.com/MrJamesThe3rd/tally/internal/progress"
	"github.com/MrJamesThe3rd/tally/internal/validation"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// ErrBadRequest marks a body that could not be decoded.
var ErrBadRequest = errors.New("invalid request body")

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorPayload struct {
	Type    string       `json:"type"`
	Message string       `json:"message"`
	Errors  []FieldError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

// codes names each engine validation kind on the wire.
var codes = []struct {
	kind error
	code string
}{
	{validation.ErrInvalidRate, "invalid_rate"},
	{validation.ErrInvalidQuantity, "invalid_quantity"},
	{validation.ErrInvalidValue, "invalid_value"},
	{validation.ErrPhaseOverflow, "phase_overflow"},
	{validation.ErrMissingBase, "missing_base"},
	{validation.ErrUnknownCategory, "unknown_category"},
	{validation.ErrInvalidTransition, "invalid_transition"},
	{validation.ErrLocked, "locked"},
}

// Decode reads a JSON body into dst and runs its validate tags.
func Decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}

	return validate.Struct(dst)
}

// JSON writes v with the given status.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Error maps err onto a status code and a JSON error body.
func Error(w http.ResponseWriter, err error) {
	status, payload := mapError(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}

	JSON(w, status, errorResponse{Error: payload})
}

// BadRequest writes a 400 with msg.
func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorResponse{Error: errorPayload{Type: "invalid_request", Message: msg}})
}

func mapError(err error) (int, errorPayload) {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		out := make([]FieldError, 0, len(fieldErrs))
		for _, fe := range fieldErrs {
			out = append(out, FieldError{
				Field:   fieldPath(fe.Namespace()),
				Code:    fe.Tag(),
				Message: fe.Error(),
			})
		}

		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: "request validation failed", Errors: out}
	}

	var vErr *validation.Error
	if errors.As(err, &vErr) {
		code := "invalid"
		for _, c := range codes {
			if errors.Is(vErr.Err, c.kind) {
				code = c.code
				break
			}
		}

		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "validation_error",
			Message: err.Error(),
			Errors:  []FieldError{{Field: vErr.Field, Code: code, Message: vErr.Details}},
		}
	}

	switch {
	case errors.Is(err, invoice.ErrNotFound),
		errors.Is(err, invoice.ErrItemNotFound),
		errors.Is(err, invoice.ErrChangeOrderNotFound),
		errors.Is(err, changeorder.ErrItemNotFound),
		errors.Is(err, progress.ErrPhaseNotFound):
		return http.StatusNotFound, errorPayload{Type: "not_found", Message: err.Error()}
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, errorPayload{Type: "invalid_request", Message: err.Error()}
	default:
		return http.StatusInternalServerError, errorPayload{Type: "internal_error", Message: "internal server error"}
	}
}

// fieldPath turns "documentRequest.Items[0].Quantity" into "Items[0].Quantity".
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}

	return ns
}
