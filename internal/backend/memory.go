package backend

import (
	"context"
	"fmt"
	"sync"

	"github.com/cuebridge/cuebridge/internal/models"
)

// MemoryBackend is an in-process Control implementation. It backs the
// "memory" backend mode (developing the web client without a QLab host
// on the network) and serves as the fake in tests.
type MemoryBackend struct {
	mu sync.Mutex

	Devices    []models.Device
	Workspaces map[string][]models.Workspace
	Cue        models.CueState
	Cues       []models.Cue
	Levels     models.AudioLevels

	// Error injection: when set, the corresponding call fails.
	DevicesErr    error
	WorkspacesErr error
	InvokeErr     error
	CueErr        error
	CuesErr       error
	AudioErr      error

	// Call counters, for asserting that an operation did or did not
	// reach the backend.
	DeviceCalls    int
	WorkspaceCalls int
	InvokeCalls    int
	CueCalls       int

	// Invoked records every accepted action in arrival order.
	Invoked []models.Action
}

// NewMemoryBackend returns a backend with one device and one workspace,
// the smallest useful topology.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		Devices: []models.Device{{UniqueID: "mem-1", DisplayName: "In-Memory QLab"}},
		Workspaces: map[string][]models.Workspace{
			"mem-1": {{UniqueID: "ws-1", DisplayName: "Demo Show"}},
		},
		Cue: models.CueState{
			ActiveCueNumber:   "1",
			ActiveCueName:     "House Lights",
			SelectedCueNumber: "2",
			SelectedCueName:   "Opening",
		},
		Cues: []models.Cue{
			{UniqueID: "cue-1", Number: "1", Name: "House Lights"},
			{UniqueID: "cue-2", Number: "2", Name: "Opening"},
		},
		Levels: models.AudioLevels{Master: 1, Left: 1, Right: 1},
	}
}

func (b *MemoryBackend) EnumerateDevices(ctx context.Context) ([]models.Device, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.DeviceCalls++
	if b.DevicesErr != nil {
		return nil, b.DevicesErr
	}
	out := make([]models.Device, len(b.Devices))
	copy(out, b.Devices)
	return out, nil
}

func (b *MemoryBackend) EnumerateWorkspaces(ctx context.Context, deviceID string) ([]models.Workspace, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.WorkspaceCalls++
	if b.WorkspacesErr != nil {
		return nil, b.WorkspacesErr
	}
	workspaces, ok := b.Workspaces[deviceID]
	if !ok {
		return nil, fmt.Errorf("%w: device %q", models.ErrNotFound, deviceID)
	}
	out := make([]models.Workspace, len(workspaces))
	copy(out, workspaces)
	return out, nil
}

func (b *MemoryBackend) Invoke(ctx context.Context, deviceID, workspaceID string, action models.Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.InvokeCalls++
	if b.InvokeErr != nil {
		return b.InvokeErr
	}
	b.Invoked = append(b.Invoked, action)
	return nil
}

func (b *MemoryBackend) QueryCueState(ctx context.Context, deviceID, workspaceID string) (models.CueState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.CueCalls++
	if b.CueErr != nil {
		return models.CueState{}, b.CueErr
	}
	return b.Cue, nil
}

func (b *MemoryBackend) ListCues(ctx context.Context, deviceID, workspaceID string) ([]models.Cue, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CuesErr != nil {
		return nil, b.CuesErr
	}
	out := make([]models.Cue, len(b.Cues))
	copy(out, b.Cues)
	return out, nil
}

// SelectCue moves the selection to the cue with the given unique ID.
func (b *MemoryBackend) SelectCue(ctx context.Context, deviceID, workspaceID, cueID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.CuesErr != nil {
		return b.CuesErr
	}
	for _, c := range b.Cues {
		if c.UniqueID == cueID {
			b.Cue.SelectedCueNumber = c.Number
			b.Cue.SelectedCueName = c.Name
			return nil
		}
	}
	return fmt.Errorf("%w: cue %q", models.ErrNotFound, cueID)
}

func (b *MemoryBackend) QueryAudioLevels(ctx context.Context, deviceID string) (models.AudioLevels, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.AudioErr != nil {
		return models.AudioLevels{}, b.AudioErr
	}
	return b.Levels, nil
}

func (b *MemoryBackend) SetAudioLevels(ctx context.Context, deviceID string, levels models.AudioLevels) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.AudioErr != nil {
		return b.AudioErr
	}
	b.Levels = levels
	return nil
}

// SetCue replaces the cue state subsequent queries observe.
func (b *MemoryBackend) SetCue(cue models.CueState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Cue = cue
}
