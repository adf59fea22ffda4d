package api

import (
	"encoding/base64"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/cuebridge/cuebridge/internal/models"
	"github.com/cuebridge/cuebridge/internal/session"
)

// naValue is what an absent cue field renders as; clients display it
// verbatim.
const naValue = "N/A"

// PollHandler serves the high-frequency read endpoints. Clients poll
// these continuously, so each refresh kind carries its own rate
// limiter: a poll that arrives before the minimum interval has elapsed
// gets the cached state without a backend round trip.
type PollHandler struct {
	sessions    *session.Store
	cueLimiter  *rate.Limiter
	snapLimiter *rate.Limiter
}

// NewPollHandler creates a poll handler with the given minimum
// interval between backend refreshes. A zero interval disables the
// bound and every poll refreshes.
func NewPollHandler(sessions *session.Store, minInterval time.Duration) *PollHandler {
	return &PollHandler{
		sessions:    sessions,
		cueLimiter:  rate.NewLimiter(rate.Every(minInterval), 1),
		snapLimiter: rate.NewLimiter(rate.Every(minInterval), 1),
	}
}

// CueInfo handles GET /cue_info.
func (h *PollHandler) CueInfo(w http.ResponseWriter, r *http.Request) {
	var cue models.CueState
	if h.cueLimiter.Allow() {
		cue = h.sessions.RefreshCueState(r.Context())
	} else {
		cue = h.sessions.CurrentState().CueState
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"active_cue_number":   orNA(cue.ActiveCueNumber),
		"active_cue_name":     orNA(cue.ActiveCueName),
		"selected_cue_number": orNA(cue.SelectedCueNumber),
		"selected_cue_name":   orNA(cue.SelectedCueName),
	})
}

// Screenshot handles GET /screenshot. The image is base64-encoded at
// this boundary only; everything inside the process passes raw bytes.
func (h *PollHandler) Screenshot(w http.ResponseWriter, r *http.Request) {
	var image []byte
	if h.snapLimiter.Allow() {
		image = h.sessions.RefreshSnapshot(r.Context())
	} else {
		image = h.sessions.CurrentState().Snapshot
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"screenshot": base64.StdEncoding.EncodeToString(image),
	})
}

func orNA(s string) string {
	if s == "" {
		return naValue
	}
	return s
}
