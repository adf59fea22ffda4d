package api

import (
	"log/slog"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cuebridge/cuebridge/internal/audit"
	"github.com/cuebridge/cuebridge/internal/backend"
	"github.com/cuebridge/cuebridge/internal/dispatch"
	"github.com/cuebridge/cuebridge/internal/session"
)

// RouterConfig carries the wiring for NewRouter. history may be nil to
// disable the audit surfaces.
type RouterConfig struct {
	Control         backend.Control
	Sessions        *session.Store
	Dispatcher      *dispatch.Dispatcher
	History         *audit.Store
	HistoryLimit    int
	PollMinInterval time.Duration
	Logger          *slog.Logger
}

// NewRouter creates the chi router with all routes and middleware.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	r.Use(CORS)
	r.Use(RequestID)
	r.Use(Logger(cfg.Logger))
	r.Use(Recovery(cfg.Logger))

	sessionH := NewSessionHandler(cfg.Sessions)
	pollH := NewPollHandler(cfg.Sessions, cfg.PollMinInterval)
	actionH := NewActionHandler(cfg.Dispatcher, cfg.Sessions, cfg.History, cfg.HistoryLimit)
	healthH := NewHealthHandler(cfg.Control, cfg.Sessions, cfg.History)

	r.Get("/health", healthH.Health)

	r.Get("/devices", sessionH.Devices)
	r.Post("/fetch_workspaces", sessionH.FetchWorkspaces)
	r.Get("/current_workspaces", sessionH.CurrentWorkspaces)
	r.Post("/select_workspace", sessionH.SelectWorkspace)

	r.Get("/cue_info", pollH.CueInfo)
	r.Get("/screenshot", pollH.Screenshot)

	r.Post("/button_action", actionH.ButtonAction)
	r.Get("/performance", actionH.Performance)
	r.Get("/history", actionH.History)

	// Audio and cue list routes exist only when the backend has the
	// capability.
	if audioC, ok := cfg.Control.(backend.AudioControl); ok {
		audioH := NewAudioHandler(audioC, cfg.Sessions)
		r.Post("/set_audio", audioH.SetAudio)
		r.Get("/audio_levels", audioH.Levels)
	}
	if cueC, ok := cfg.Control.(backend.CueLister); ok {
		cueH := NewCueHandler(cueC, cfg.Sessions)
		r.Get("/cues", cueH.Cues)
		r.Post("/skip", cueH.Skip)
	}

	return r
}
