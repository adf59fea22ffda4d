package api

import (
	"net/http"

	"github.com/cuebridge/cuebridge/internal/audit"
	"github.com/cuebridge/cuebridge/internal/backend"
	"github.com/cuebridge/cuebridge/internal/session"
)

type serviceCheck struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

type healthResponse struct {
	Status  string       `json:"status"`
	Session string       `json:"session"`
	Backend serviceCheck `json:"backend"`
	AuditDB serviceCheck `json:"audit_db"`
}

type HealthHandler struct {
	control  backend.Control
	sessions *session.Store
	history  *audit.Store
}

func NewHealthHandler(control backend.Control, sessions *session.Store, history *audit.Store) *HealthHandler {
	return &HealthHandler{control: control, sessions: sessions, history: history}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:  "ok",
		Session: string(h.sessions.CurrentState().Status),
	}

	if _, err := h.control.EnumerateDevices(r.Context()); err != nil {
		resp.Backend = serviceCheck{Status: "error", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.Backend = serviceCheck{Status: "ok"}
	}

	if h.history == nil {
		resp.AuditDB = serviceCheck{Status: "disabled"}
	} else if err := h.history.Ping(); err != nil {
		resp.AuditDB = serviceCheck{Status: "error", Message: err.Error()}
		resp.Status = "degraded"
	} else {
		resp.AuditDB = serviceCheck{Status: "ok"}
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
