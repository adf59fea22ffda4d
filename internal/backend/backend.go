// Package backend defines the contracts for talking to the controlled
// application and provides the QLab OSC implementation.
package backend

import (
	"context"

	"github.com/cuebridge/cuebridge/internal/models"
)

// Control executes discrete commands against a device+workspace pair
// and enumerates what is available. All calls are synchronous and may
// fail; callers must not hold shared locks across them.
type Control interface {
	// EnumerateDevices returns the controllable devices currently
	// known to the backend.
	EnumerateDevices(ctx context.Context) ([]models.Device, error)

	// EnumerateWorkspaces returns the workspaces open on a device.
	EnumerateWorkspaces(ctx context.Context, deviceID string) ([]models.Workspace, error)

	// Invoke executes one playback action against a workspace. No
	// retries; a failure is reported to the caller exactly once.
	Invoke(ctx context.Context, deviceID, workspaceID string, action models.Action) error

	// QueryCueState reads the current playback position of a
	// workspace.
	QueryCueState(ctx context.Context, deviceID, workspaceID string) (models.CueState, error)
}

// AudioControl reads and adjusts a device's output levels. It is an
// optional capability; backends that cannot drive audio simply do not
// implement it.
type AudioControl interface {
	// QueryAudioLevels reads the device's current output levels.
	QueryAudioLevels(ctx context.Context, deviceID string) (models.AudioLevels, error)

	// SetAudioLevels applies the given output levels to the device.
	SetAudioLevels(ctx context.Context, deviceID string, levels models.AudioLevels) error
}

// CueLister enumerates a workspace's cue list and moves the playhead
// without firing anything. Optional, like AudioControl.
type CueLister interface {
	// ListCues returns the workspace's cues in list order, with cue
	// groups flattened.
	ListCues(ctx context.Context, deviceID, workspaceID string) ([]models.Cue, error)

	// SelectCue moves the workspace playhead to the cue with the
	// given unique ID.
	SelectCue(ctx context.Context, deviceID, workspaceID, cueID string) error
}

// SnapshotProvider produces a still image of the controlled target.
// Whether that is the whole desktop or a single window is an
// implementation detail behind this interface.
type SnapshotProvider interface {
	// Capture returns PNG bytes of the current visual state.
	Capture(ctx context.Context) ([]byte, error)
}
