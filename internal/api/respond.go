package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cuebridge/cuebridge/internal/models"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError emits the uniform error body. Every failure leaving this
// layer is a well-formed {status, message} document, never a bare 500.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{
		"status":  "error",
		"message": message,
	})
}

// statusForError maps the session/dispatch error taxonomy to HTTP
// status codes.
func statusForError(err error) int {
	var unknownAction *models.UnknownActionError
	var backendCommand *models.BackendCommandError
	switch {
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrNoDeviceSelected),
		errors.Is(err, models.ErrNotActive),
		errors.As(err, &unknownAction):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrBackendUnavailable),
		errors.As(err, &backendCommand):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}
