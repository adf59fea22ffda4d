package api

import (
	"net/http"

	"github.com/cuebridge/cuebridge/internal/audit"
	"github.com/cuebridge/cuebridge/internal/dispatch"
	"github.com/cuebridge/cuebridge/internal/models"
	"github.com/cuebridge/cuebridge/internal/session"
)

// ActionHandler serves button dispatch and the observational surfaces
// built on top of it.
type ActionHandler struct {
	dispatcher   *dispatch.Dispatcher
	sessions     *session.Store
	history      *audit.Store
	historyLimit int
}

func NewActionHandler(dispatcher *dispatch.Dispatcher, sessions *session.Store, history *audit.Store, historyLimit int) *ActionHandler {
	return &ActionHandler{
		dispatcher:   dispatcher,
		sessions:     sessions,
		history:      history,
		historyLimit: historyLimit,
	}
}

// ButtonAction handles POST /button_action. The action string is
// parsed into the closed action set before any state is consulted, so
// an unknown action never reaches the dispatcher, let alone the
// backend.
func (h *ActionHandler) ButtonAction(w http.ResponseWriter, r *http.Request) {
	action, err := models.ParseAction(r.FormValue("data-action"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	if err := h.dispatcher.Dispatch(r.Context(), action); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status": "success",
		"action": string(action),
	})
}

// Performance handles GET /performance: process-lifetime dispatch
// counters.
func (h *ActionHandler) Performance(w http.ResponseWriter, r *http.Request) {
	stats := h.dispatcher.Stats()
	state := h.sessions.CurrentState()

	writeJSON(w, http.StatusOK, map[string]any{
		"connected":          state.Status == models.StatusWorkspaceActive,
		"commands_sent":      stats.CommandsSent,
		"error_rate":         stats.ErrorRate,
		"average_latency_ms": stats.AverageLatency,
	})
}

// History handles GET /history: the most recent dispatched commands.
func (h *ActionHandler) History(w http.ResponseWriter, r *http.Request) {
	if h.history == nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":   "success",
			"commands": []audit.Entry{},
		})
		return
	}
	entries, err := h.history.Recent(h.historyLimit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "success",
		"commands": entries,
	})
}
