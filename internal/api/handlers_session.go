package api

import (
	"net/http"

	"github.com/cuebridge/cuebridge/internal/models"
	"github.com/cuebridge/cuebridge/internal/session"
)

// SessionHandler serves device/workspace selection.
type SessionHandler struct {
	sessions *session.Store
}

func NewSessionHandler(sessions *session.Store) *SessionHandler {
	return &SessionHandler{sessions: sessions}
}

// Devices handles GET /devices: a one-shot enumeration, re-queried on
// every call since device topology can change between sessions.
func (h *SessionHandler) Devices(w http.ResponseWriter, r *http.Request) {
	devices, err := h.sessions.RefreshDevices(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if devices == nil {
		devices = []models.Device{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"devices": devices,
	})
}

// FetchWorkspaces handles POST /fetch_workspaces: re-enumerates
// devices and selects the one named in the form.
func (h *SessionHandler) FetchWorkspaces(w http.ResponseWriter, r *http.Request) {
	deviceID := r.FormValue("device_id")
	if deviceID == "" {
		writeError(w, http.StatusBadRequest, "no device selected")
		return
	}

	if _, err := h.sessions.RefreshDevices(r.Context()); err != nil {
		writeDomainError(w, err)
		return
	}
	device, err := h.sessions.SelectDevice(deviceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "success",
		"message": "device selected, workspaces available",
		"device":  device,
	})
}

// CurrentWorkspaces handles GET /current_workspaces.
func (h *SessionHandler) CurrentWorkspaces(w http.ResponseWriter, r *http.Request) {
	workspaces, err := h.sessions.ListWorkspaces(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if workspaces == nil {
		workspaces = []models.Workspace{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":     "success",
		"workspaces": workspaces,
	})
}

// SelectWorkspace handles POST /select_workspace.
func (h *SessionHandler) SelectWorkspace(w http.ResponseWriter, r *http.Request) {
	workspaceID := r.FormValue("workspace_id")
	if workspaceID == "" {
		writeError(w, http.StatusBadRequest, "no workspace selected")
		return
	}

	workspace, err := h.sessions.SelectWorkspace(r.Context(), workspaceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "success",
		"workspace": workspace,
		"message":   "workspace connected",
	})
}
