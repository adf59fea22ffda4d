package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cuebridge/cuebridge/internal/models"
)

// stubControl lets each test script exact backend behavior through
// function fields.
type stubControl struct {
	devices    func(ctx context.Context) ([]models.Device, error)
	workspaces func(ctx context.Context, deviceID string) ([]models.Workspace, error)
	invoke     func(ctx context.Context, deviceID, workspaceID string, action models.Action) error
	cue        func(ctx context.Context, deviceID, workspaceID string) (models.CueState, error)
}

func (s *stubControl) EnumerateDevices(ctx context.Context) ([]models.Device, error) {
	if s.devices == nil {
		return nil, nil
	}
	return s.devices(ctx)
}

func (s *stubControl) EnumerateWorkspaces(ctx context.Context, deviceID string) ([]models.Workspace, error) {
	if s.workspaces == nil {
		return nil, nil
	}
	return s.workspaces(ctx, deviceID)
}

func (s *stubControl) Invoke(ctx context.Context, deviceID, workspaceID string, action models.Action) error {
	if s.invoke == nil {
		return nil
	}
	return s.invoke(ctx, deviceID, workspaceID, action)
}

func (s *stubControl) QueryCueState(ctx context.Context, deviceID, workspaceID string) (models.CueState, error) {
	if s.cue == nil {
		return models.CueState{}, nil
	}
	return s.cue(ctx, deviceID, workspaceID)
}

type stubSnapshots struct {
	image []byte
	err   error
}

func (s *stubSnapshots) Capture(ctx context.Context) ([]byte, error) {
	return s.image, s.err
}

func oneDeviceControl() *stubControl {
	return &stubControl{
		devices: func(ctx context.Context) ([]models.Device, error) {
			return []models.Device{{UniqueID: "d1", DisplayName: "Mac A"}}, nil
		},
		workspaces: func(ctx context.Context, deviceID string) ([]models.Workspace, error) {
			return []models.Workspace{{UniqueID: "w1", DisplayName: "Show"}}, nil
		},
	}
}

func activeStore(t *testing.T, control *stubControl) *Store {
	t.Helper()
	store := NewStore(control, &stubSnapshots{})
	if _, err := store.RefreshDevices(context.Background()); err != nil {
		t.Fatalf("RefreshDevices: %v", err)
	}
	if _, err := store.SelectDevice("d1"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	if _, err := store.SelectWorkspace(context.Background(), "w1"); err != nil {
		t.Fatalf("SelectWorkspace: %v", err)
	}
	return store
}

func TestSelectDeviceThenWorkspace(t *testing.T) {
	store := NewStore(oneDeviceControl(), &stubSnapshots{})

	if got := store.CurrentState().Status; got != models.StatusDisconnected {
		t.Fatalf("initial status = %q, want disconnected", got)
	}

	if _, err := store.RefreshDevices(context.Background()); err != nil {
		t.Fatalf("RefreshDevices: %v", err)
	}
	device, err := store.SelectDevice("d1")
	if err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	if device.DisplayName != "Mac A" {
		t.Errorf("device name = %q, want Mac A", device.DisplayName)
	}
	if got := store.CurrentState().Status; got != models.StatusDeviceSelected {
		t.Errorf("status = %q, want device_selected", got)
	}

	workspaces, err := store.ListWorkspaces(context.Background())
	if err != nil {
		t.Fatalf("ListWorkspaces: %v", err)
	}
	if len(workspaces) != 1 || workspaces[0].UniqueID != "w1" {
		t.Fatalf("workspaces = %v, want [w1]", workspaces)
	}

	workspace, err := store.SelectWorkspace(context.Background(), "w1")
	if err != nil {
		t.Fatalf("SelectWorkspace: %v", err)
	}
	if workspace.DisplayName != "Show" {
		t.Errorf("workspace name = %q, want Show", workspace.DisplayName)
	}
	if got := store.CurrentState().Status; got != models.StatusWorkspaceActive {
		t.Errorf("status = %q, want workspace_active", got)
	}
}

func TestSelectWorkspaceWithoutDevice(t *testing.T) {
	store := NewStore(oneDeviceControl(), &stubSnapshots{})

	_, err := store.SelectWorkspace(context.Background(), "w1")
	if !errors.Is(err, models.ErrNoDeviceSelected) {
		t.Fatalf("err = %v, want ErrNoDeviceSelected", err)
	}

	state := store.CurrentState()
	if state.Status != models.StatusDisconnected {
		t.Errorf("status = %q, session must be unchanged", state.Status)
	}
	if state.SelectedDevice != nil || state.SelectedWorkspace != nil {
		t.Error("selection must be unchanged after a failed workspace select")
	}
}

func TestSelectUnknownDevice(t *testing.T) {
	store := NewStore(oneDeviceControl(), &stubSnapshots{})
	if _, err := store.RefreshDevices(context.Background()); err != nil {
		t.Fatalf("RefreshDevices: %v", err)
	}

	_, err := store.SelectDevice("nope")
	if !errors.Is(err, models.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if got := store.CurrentState().Status; got != models.StatusDisconnected {
		t.Errorf("failed select must leave state untouched, got %q", got)
	}
}

func TestDeviceReselectionResetsWorkspace(t *testing.T) {
	control := oneDeviceControl()
	control.cue = func(ctx context.Context, deviceID, workspaceID string) (models.CueState, error) {
		return models.CueState{ActiveCueNumber: "3", ActiveCueName: "Blackout"}, nil
	}
	store := activeStore(t, control)

	// Make sure there is cached cue data to clear.
	cue := store.RefreshCueState(context.Background())
	if cue.ActiveCueNumber != "3" {
		t.Fatalf("cue = %+v, want active cue 3", cue)
	}

	if _, err := store.SelectDevice("d1"); err != nil {
		t.Fatalf("re-select device: %v", err)
	}

	state := store.CurrentState()
	if state.Status != models.StatusDeviceSelected {
		t.Errorf("status = %q, want device_selected", state.Status)
	}
	if state.SelectedWorkspace != nil {
		t.Error("workspace must be cleared by any device change")
	}
	if state.CueState != (models.CueState{}) {
		t.Errorf("cue cache = %+v, must be cleared by a device change", state.CueState)
	}
	if state.Snapshot != nil {
		t.Error("snapshot cache must be cleared by a device change")
	}
}

func TestListWorkspacesBackendFailureKeepsDevice(t *testing.T) {
	control := oneDeviceControl()
	store := NewStore(control, &stubSnapshots{})
	if _, err := store.RefreshDevices(context.Background()); err != nil {
		t.Fatalf("RefreshDevices: %v", err)
	}
	if _, err := store.SelectDevice("d1"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}

	control.workspaces = func(ctx context.Context, deviceID string) ([]models.Workspace, error) {
		return nil, errors.New("connection refused")
	}

	_, err := store.ListWorkspaces(context.Background())
	if !errors.Is(err, models.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}

	state := store.CurrentState()
	if state.SelectedDevice == nil || state.SelectedDevice.UniqueID != "d1" {
		t.Error("a failed enumeration must not change the selected device")
	}
	if state.Status != models.StatusDeviceSelected {
		t.Errorf("status = %q, want device_selected", state.Status)
	}
}

func TestSelectWorkspaceSurvivesCueRefreshFailure(t *testing.T) {
	control := oneDeviceControl()
	control.cue = func(ctx context.Context, deviceID, workspaceID string) (models.CueState, error) {
		return models.CueState{}, errors.New("not ready")
	}
	store := NewStore(control, &stubSnapshots{})
	if _, err := store.RefreshDevices(context.Background()); err != nil {
		t.Fatalf("RefreshDevices: %v", err)
	}
	if _, err := store.SelectDevice("d1"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}

	// The immediate cue refresh fails, but selection must succeed.
	if _, err := store.SelectWorkspace(context.Background(), "w1"); err != nil {
		t.Fatalf("SelectWorkspace: %v", err)
	}
	if got := store.CurrentState().Status; got != models.StatusWorkspaceActive {
		t.Errorf("status = %q, want workspace_active", got)
	}
}

func TestRefreshCueStateFailureServesCache(t *testing.T) {
	failing := false
	control := oneDeviceControl()
	control.cue = func(ctx context.Context, deviceID, workspaceID string) (models.CueState, error) {
		if failing {
			return models.CueState{}, errors.New("timeout")
		}
		return models.CueState{ActiveCueNumber: "3", ActiveCueName: "Blackout"}, nil
	}
	store := activeStore(t, control)

	want := store.RefreshCueState(context.Background())
	if want.ActiveCueNumber != "3" {
		t.Fatalf("cue = %+v, want active cue 3", want)
	}
	refreshedAt := store.CurrentState().LastRefreshedAt

	failing = true
	time.Sleep(5 * time.Millisecond)
	got := store.RefreshCueState(context.Background())
	if got != want {
		t.Errorf("cue after failed refresh = %+v, want cached %+v", got, want)
	}
	if !store.CurrentState().LastRefreshedAt.Equal(refreshedAt) {
		t.Error("LastRefreshedAt must only advance on a successful refresh")
	}
}

func TestRefreshCueStateIdempotent(t *testing.T) {
	control := oneDeviceControl()
	control.cue = func(ctx context.Context, deviceID, workspaceID string) (models.CueState, error) {
		return models.CueState{ActiveCueNumber: "7", SelectedCueNumber: "8"}, nil
	}
	store := activeStore(t, control)

	first := store.RefreshCueState(context.Background())
	second := store.RefreshCueState(context.Background())
	if first != second {
		t.Errorf("back-to-back refreshes with no backend change differ: %+v vs %+v", first, second)
	}
}

func TestStaleCueRefreshDiscarded(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	control := oneDeviceControl()
	calls := 0
	control.cue = func(ctx context.Context, deviceID, workspaceID string) (models.CueState, error) {
		calls++
		if calls == 2 {
			// The in-flight refresh initiated before the device
			// switch; hold it until the switch lands.
			close(started)
			<-release
			return models.CueState{ActiveCueNumber: "99", ActiveCueName: "Old Workspace"}, nil
		}
		return models.CueState{}, errors.New("no data")
	}
	store := activeStore(t, control)

	done := make(chan models.CueState)
	go func() {
		done <- store.RefreshCueState(context.Background())
	}()

	<-started
	if _, err := store.SelectDevice("d1"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	close(release)

	got := <-done
	if got.ActiveCueNumber == "99" {
		t.Error("a refresh that completed after the selection changed must be discarded")
	}
	if state := store.CurrentState(); state.CueState != (models.CueState{}) {
		t.Errorf("cue cache = %+v, must stay cleared after the device switch", state.CueState)
	}
}

func TestRefreshSnapshotFailureServesCache(t *testing.T) {
	snapshots := &stubSnapshots{image: []byte("png-bytes")}
	store := NewStore(oneDeviceControl(), snapshots)

	got := store.RefreshSnapshot(context.Background())
	if string(got) != "png-bytes" {
		t.Fatalf("snapshot = %q, want png-bytes", got)
	}

	snapshots.err = errors.New("capture failed")
	snapshots.image = nil
	got = store.RefreshSnapshot(context.Background())
	if string(got) != "png-bytes" {
		t.Errorf("snapshot after failed capture = %q, want cached png-bytes", got)
	}
}

func TestActiveTarget(t *testing.T) {
	store := NewStore(oneDeviceControl(), &stubSnapshots{})
	if _, _, err := store.ActiveTarget(); !errors.Is(err, models.ErrNotActive) {
		t.Fatalf("err = %v, want ErrNotActive while disconnected", err)
	}

	store = activeStore(t, oneDeviceControl())
	deviceID, workspaceID, err := store.ActiveTarget()
	if err != nil {
		t.Fatalf("ActiveTarget: %v", err)
	}
	if deviceID != "d1" || workspaceID != "w1" {
		t.Errorf("target = %s/%s, want d1/w1", deviceID, workspaceID)
	}
}

func TestSelectedDeviceID(t *testing.T) {
	store := NewStore(oneDeviceControl(), &stubSnapshots{})
	if _, err := store.SelectedDeviceID(); !errors.Is(err, models.ErrNoDeviceSelected) {
		t.Fatalf("err = %v, want ErrNoDeviceSelected", err)
	}

	if _, err := store.RefreshDevices(context.Background()); err != nil {
		t.Fatalf("RefreshDevices: %v", err)
	}
	if _, err := store.SelectDevice("d1"); err != nil {
		t.Fatalf("SelectDevice: %v", err)
	}
	deviceID, err := store.SelectedDeviceID()
	if err != nil {
		t.Fatalf("SelectedDeviceID: %v", err)
	}
	if deviceID != "d1" {
		t.Errorf("deviceID = %s, want d1", deviceID)
	}
}
