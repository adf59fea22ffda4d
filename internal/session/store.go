// Package session holds the process-wide selection state: which device
// and workspace are being controlled, and the most recently observed
// cue and snapshot. Exactly one Store exists per process and every
// mutation goes through it.
package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cuebridge/cuebridge/internal/backend"
	"github.com/cuebridge/cuebridge/internal/models"
)

// Store is the single writer for session state. Handlers run
// concurrently; the lock discipline is: mutate only under mu, never
// hold mu across a backend call, and stamp a generation before each
// backend call so results landing after a selection change are
// discarded instead of committed against the wrong workspace.
type Store struct {
	control   backend.Control
	snapshots backend.SnapshotProvider

	mu          sync.Mutex
	devices     []models.Device
	device      *models.Device
	workspace   *models.Workspace
	status      models.ConnectionStatus
	cue         models.CueState
	snapshot    []byte
	refreshedAt time.Time

	// generation increments on every device or workspace change.
	generation uint64
}

// NewStore creates a store in the disconnected state.
func NewStore(control backend.Control, snapshots backend.SnapshotProvider) *Store {
	return &Store{
		control:   control,
		snapshots: snapshots,
		status:    models.StatusDisconnected,
	}
}

// RefreshDevices re-enumerates devices from the backend and replaces
// the cached list. Device topology can change between sessions, so
// callers re-query rather than trusting a stale roster.
func (s *Store) RefreshDevices(ctx context.Context) ([]models.Device, error) {
	devices, err := s.control.EnumerateDevices(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate devices: %v", models.ErrBackendUnavailable, err)
	}
	s.mu.Lock()
	s.devices = devices
	s.mu.Unlock()

	out := make([]models.Device, len(devices))
	copy(out, devices)
	return out, nil
}

// SelectDevice picks a device from the last enumerated list. On
// success the workspace selection and the cue/snapshot cache are
// cleared; on failure nothing changes.
func (s *Store) SelectDevice(deviceID string) (models.Device, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.devices {
		if s.devices[i].UniqueID == deviceID {
			device := s.devices[i]
			s.device = &device
			s.workspace = nil
			s.status = models.StatusDeviceSelected
			s.cue = models.CueState{}
			s.snapshot = nil
			s.generation++
			return device, nil
		}
	}
	return models.Device{}, fmt.Errorf("%w: device %q", models.ErrNotFound, deviceID)
}

// ListWorkspaces enumerates the workspaces of the selected device. A
// backend failure leaves the device selection untouched.
func (s *Store) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	s.mu.Lock()
	if s.device == nil {
		s.mu.Unlock()
		return nil, models.ErrNoDeviceSelected
	}
	deviceID := s.device.UniqueID
	s.mu.Unlock()

	workspaces, err := s.control.EnumerateWorkspaces(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("%w: enumerate workspaces for %q: %v", models.ErrBackendUnavailable, deviceID, err)
	}
	return workspaces, nil
}

// SelectWorkspace activates a workspace on the selected device. The
// workspace must appear in a fresh enumeration. On success the session
// becomes WorkspaceActive and one best-effort cue refresh runs so the
// first poll already has data; a refresh failure does not fail the
// selection.
func (s *Store) SelectWorkspace(ctx context.Context, workspaceID string) (models.Workspace, error) {
	s.mu.Lock()
	if s.device == nil {
		s.mu.Unlock()
		return models.Workspace{}, models.ErrNoDeviceSelected
	}
	deviceID := s.device.UniqueID
	generation := s.generation
	s.mu.Unlock()

	workspaces, err := s.control.EnumerateWorkspaces(ctx, deviceID)
	if err != nil {
		return models.Workspace{}, fmt.Errorf("%w: enumerate workspaces for %q: %v", models.ErrBackendUnavailable, deviceID, err)
	}

	var found *models.Workspace
	for i := range workspaces {
		if workspaces[i].UniqueID == workspaceID {
			found = &workspaces[i]
			break
		}
	}
	if found == nil {
		return models.Workspace{}, fmt.Errorf("%w: workspace %q", models.ErrNotFound, workspaceID)
	}

	s.mu.Lock()
	if s.generation != generation {
		// The device changed while we were enumerating; this
		// result belongs to the old selection.
		s.mu.Unlock()
		return models.Workspace{}, fmt.Errorf("%w: workspace %q: selection changed", models.ErrNotFound, workspaceID)
	}
	workspace := *found
	s.workspace = &workspace
	s.status = models.StatusWorkspaceActive
	s.cue = models.CueState{}
	s.snapshot = nil
	s.generation++
	s.mu.Unlock()

	s.RefreshCueState(ctx)
	return workspace, nil
}

// RefreshCueState queries the backend for the current cue state and
// commits it to the cache. On any failure the previous cached state is
// returned unchanged: pollers prefer staleness over a flapping UI, so
// this never reports an error. A result that finishes after a
// device/workspace switch is discarded.
func (s *Store) RefreshCueState(ctx context.Context) models.CueState {
	s.mu.Lock()
	if s.status != models.StatusWorkspaceActive {
		cue := s.cue
		s.mu.Unlock()
		return cue
	}
	deviceID := s.device.UniqueID
	workspaceID := s.workspace.UniqueID
	generation := s.generation
	s.mu.Unlock()

	cue, err := s.control.QueryCueState(ctx, deviceID, workspaceID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || s.generation != generation {
		return s.cue
	}
	s.cue = cue
	s.refreshedAt = time.Now()
	return s.cue
}

// RefreshSnapshot captures a fresh visual snapshot. On failure the
// previous image is returned (nil if nothing was ever captured).
func (s *Store) RefreshSnapshot(ctx context.Context) []byte {
	s.mu.Lock()
	generation := s.generation
	s.mu.Unlock()

	image, err := s.snapshots.Capture(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil || s.generation != generation {
		return s.snapshot
	}
	s.snapshot = image
	return s.snapshot
}

// Devices returns the last enumerated device list without contacting
// the backend.
func (s *Store) Devices() []models.Device {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Device, len(s.devices))
	copy(out, s.devices)
	return out
}

// CurrentState returns a consistent snapshot of the session for
// serving to clients.
func (s *Store) CurrentState() models.Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	state := models.Session{
		Status:          s.status,
		CueState:        s.cue,
		Snapshot:        s.snapshot,
		LastRefreshedAt: s.refreshedAt,
	}
	if s.device != nil {
		device := *s.device
		state.SelectedDevice = &device
	}
	if s.workspace != nil {
		workspace := *s.workspace
		state.SelectedWorkspace = &workspace
	}
	return state
}

// ActiveTarget returns the device/workspace pair commands should run
// against, captured atomically so a dispatch acts on the selection as
// it was when the button arrived.
func (s *Store) ActiveTarget() (deviceID, workspaceID string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status != models.StatusWorkspaceActive {
		return "", "", models.ErrNotActive
	}
	return s.device.UniqueID, s.workspace.UniqueID, nil
}

// SelectedDeviceID returns the selected device. Unlike ActiveTarget it
// does not require a workspace; device-scoped operations (audio) only
// need a device.
func (s *Store) SelectedDeviceID() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.device == nil {
		return "", models.ErrNoDeviceSelected
	}
	return s.device.UniqueID, nil
}
