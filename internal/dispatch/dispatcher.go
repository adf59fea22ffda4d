// Package dispatch validates button actions against the session state
// and forwards them to the control backend, one backend command per
// action.
package dispatch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/cuebridge/cuebridge/internal/audit"
	"github.com/cuebridge/cuebridge/internal/backend"
	"github.com/cuebridge/cuebridge/internal/models"
	"github.com/cuebridge/cuebridge/internal/session"
)

// Recorder receives one entry per dispatched action. Implemented by
// the audit store; nil disables recording.
type Recorder interface {
	Record(entry audit.Entry) error
}

// Stats are process-lifetime dispatch counters.
type Stats struct {
	CommandsSent   int64   `json:"commands_sent"`
	Errors         int64   `json:"errors"`
	AverageLatency float64 `json:"average_latency_ms"`
	ErrorRate      float64 `json:"error_rate"`
}

// Dispatcher routes one user action to one backend invocation. No
// batching, no retries, no queue: concurrent dispatches execute in
// arrival order and a failure is the user's to retry.
type Dispatcher struct {
	control  backend.Control
	sessions *session.Store
	recorder Recorder
	logger   *slog.Logger

	mu             sync.Mutex
	commandsSent   int64
	errorCount     int64
	totalLatencyMS float64
}

// NewDispatcher creates a dispatcher. recorder may be nil.
func NewDispatcher(control backend.Control, sessions *session.Store, recorder Recorder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		control:  control,
		sessions: sessions,
		recorder: recorder,
		logger:   logger,
	}
}

// Dispatch validates an action and executes it against the currently
// selected device/workspace pair. The pair is captured once, up front:
// a workspace deselected mid-flight must not receive the command under
// its successor's name. The backend is never contacted for an invalid
// or inactive dispatch, and session state is never mutated here —
// the next poll picks up whatever the action changed.
func (d *Dispatcher) Dispatch(ctx context.Context, action models.Action) error {
	if !action.IsValid() {
		return &models.UnknownActionError{Name: string(action)}
	}

	deviceID, workspaceID, err := d.sessions.ActiveTarget()
	if err != nil {
		return err
	}

	start := time.Now()
	invokeErr := d.control.Invoke(ctx, deviceID, workspaceID, action)
	latency := time.Since(start)

	d.record(action, deviceID, workspaceID, latency, invokeErr)

	if invokeErr != nil {
		d.logger.Error("dispatch failed",
			"action", action,
			"device", deviceID,
			"workspace", workspaceID,
			"error", invokeErr,
		)
		return &models.BackendCommandError{Action: action, Err: invokeErr}
	}

	d.logger.Debug("dispatched",
		"action", action,
		"workspace", workspaceID,
		"latency_ms", latency.Milliseconds(),
	)
	return nil
}

func (d *Dispatcher) record(action models.Action, deviceID, workspaceID string, latency time.Duration, invokeErr error) {
	latencyMS := float64(latency.Microseconds()) / 1000.0

	d.mu.Lock()
	d.commandsSent++
	d.totalLatencyMS += latencyMS
	if invokeErr != nil {
		d.errorCount++
	}
	d.mu.Unlock()

	if d.recorder == nil {
		return
	}
	entry := audit.Entry{
		Action:      string(action),
		DeviceID:    deviceID,
		WorkspaceID: workspaceID,
		Success:     invokeErr == nil,
		LatencyMS:   latencyMS,
	}
	if invokeErr != nil {
		entry.Error = invokeErr.Error()
	}
	if err := d.recorder.Record(entry); err != nil {
		d.logger.Warn("audit record failed", "action", action, "error", err)
	}
}

// Stats reports the counters accumulated since process start.
func (d *Dispatcher) Stats() Stats {
	d.mu.Lock()
	defer d.mu.Unlock()

	stats := Stats{
		CommandsSent: d.commandsSent,
		Errors:       d.errorCount,
	}
	if d.commandsSent > 0 {
		stats.AverageLatency = d.totalLatencyMS / float64(d.commandsSent)
		stats.ErrorRate = float64(d.errorCount) / float64(d.commandsSent) * 100.0
	}
	return stats
}
