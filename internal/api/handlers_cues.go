package api

import (
	"net/http"

	"github.com/cuebridge/cuebridge/internal/backend"
	"github.com/cuebridge/cuebridge/internal/models"
	"github.com/cuebridge/cuebridge/internal/session"
)

// CueHandler serves the cue list and playhead-skip surfaces.
type CueHandler struct {
	cues     backend.CueLister
	sessions *session.Store
}

func NewCueHandler(cues backend.CueLister, sessions *session.Store) *CueHandler {
	return &CueHandler{cues: cues, sessions: sessions}
}

// Cues handles GET /cues. Before a workspace is active there is no cue
// list to show, so the response is an empty list rather than an error;
// the web client polls this route from page load.
func (h *CueHandler) Cues(w http.ResponseWriter, r *http.Request) {
	deviceID, workspaceID, err := h.sessions.ActiveTarget()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status": "success",
			"cues":   []models.Cue{},
		})
		return
	}

	cues, err := h.cues.ListCues(r.Context(), deviceID, workspaceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if cues == nil {
		cues = []models.Cue{}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"cues":   cues,
	})
}

// Skip handles POST /skip: move the playhead to the cue named by the
// form field "cue" (a unique ID) without firing it.
func (h *CueHandler) Skip(w http.ResponseWriter, r *http.Request) {
	cueID := r.FormValue("cue")
	if cueID == "" {
		writeError(w, http.StatusBadRequest, "cue is required")
		return
	}

	deviceID, workspaceID, err := h.sessions.ActiveTarget()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.cues.SelectCue(r.Context(), deviceID, workspaceID, cueID); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"cue":    cueID,
	})
}
