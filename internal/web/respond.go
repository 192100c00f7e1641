package web

import (
	"encoding/json"
	"errors"
	"net/http"

	publipostage "github.com/jlllyfish/ink-publipostage-grist"
	"github.com/jlllyfish/ink-publipostage-grist/internal/grist"
	"github.com/jlllyfish/ink-publipostage-grist/internal/logging"
	"github.com/jlllyfish/ink-publipostage-grist/internal/store"
)

// errorResponse is the JSON shape of every failed request.
type errorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// respondJSON writes v as a JSON response.
func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// respondError logs the technical error and writes a JSON error response
// with a status derived from the error taxonomy.
func respondError(w http.ResponseWriter, r *http.Request, err error, message string) {
	status := statusFor(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
	)

	respondJSON(w, status, errorResponse{Message: message + ": " + err.Error()})
}

// respondInput writes a 400 for malformed or incomplete request bodies.
func respondInput(w http.ResponseWriter, message string) {
	respondJSON(w, http.StatusBadRequest, errorResponse{Message: message})
}

// statusFor maps pipeline and collaborator errors to HTTP statuses.
// Per-row render failures never reach here; they are reported inside a
// successful batch response.
func statusFor(err error) int {
	switch {
	case errors.Is(err, grist.ErrNotFound),
		errors.Is(err, store.ErrTemplateNotFound),
		errors.Is(err, publipostage.ErrNoRows):
		return http.StatusNotFound
	case errors.Is(err, grist.ErrConnection):
		return http.StatusBadGateway
	case errors.Is(err, publipostage.ErrEmptyTemplate),
		errors.Is(err, publipostage.ErrMarkdownConversion),
		errors.Is(err, publipostage.ErrAssetDecode):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
