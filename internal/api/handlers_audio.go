package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/cuebridge/cuebridge/internal/backend"
	"github.com/cuebridge/cuebridge/internal/models"
	"github.com/cuebridge/cuebridge/internal/session"
)

// AudioHandler serves the device output level surfaces. Audio is scoped
// to the device, not the workspace, so a selected device is enough.
type AudioHandler struct {
	audio    backend.AudioControl
	sessions *session.Store
}

func NewAudioHandler(audio backend.AudioControl, sessions *session.Store) *AudioHandler {
	return &AudioHandler{audio: audio, sessions: sessions}
}

// SetAudio handles POST /set_audio. Form fields master, left and right
// are 0.0–1.0; a missing field means full level.
func (h *AudioHandler) SetAudio(w http.ResponseWriter, r *http.Request) {
	deviceID, err := h.sessions.SelectedDeviceID()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	var levels models.AudioLevels
	for _, f := range []struct {
		field string
		dst   *float64
	}{
		{"master", &levels.Master},
		{"left", &levels.Left},
		{"right", &levels.Right},
	} {
		*f.dst, err = parseLevel(r.FormValue(f.field))
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s level: %v", f.field, err))
			return
		}
	}

	if err := h.audio.SetAudioLevels(r.Context(), deviceID, levels); err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status": "success",
		"levels": levels,
	})
}

// Levels handles GET /audio_levels.
func (h *AudioHandler) Levels(w http.ResponseWriter, r *http.Request) {
	deviceID, err := h.sessions.SelectedDeviceID()
	if err != nil {
		writeDomainError(w, err)
		return
	}

	levels, err := h.audio.QueryAudioLevels(r.Context(), deviceID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, levels)
}

func parseLevel(raw string) (float64, error) {
	if raw == "" {
		return 1.0, nil
	}
	level, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("not a number: %q", raw)
	}
	if level < 0 || level > 1 {
		return 0, fmt.Errorf("%v outside 0.0-1.0", level)
	}
	return level, nil
}
