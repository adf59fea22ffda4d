package models

import "time"

// Device is a controllable QLab host as reported by the backend.
// Devices are immutable once enumerated; the list is replaced wholesale
// on re-enumeration, never patched.
type Device struct {
	UniqueID    string `json:"uniqueID"`
	DisplayName string `json:"displayName"`
}

// Workspace is a show document open on a Device. IDs are unique only
// within their device.
type Workspace struct {
	UniqueID    string `json:"uniqueID"`
	DisplayName string `json:"displayName"`
}

// ConnectionStatus tracks how far the session has progressed toward a
// controllable workspace.
type ConnectionStatus string

const (
	StatusDisconnected    ConnectionStatus = "disconnected"
	StatusDeviceSelected  ConnectionStatus = "device_selected"
	StatusWorkspaceActive ConnectionStatus = "workspace_active"
)

// CueState is the most recently observed playback state. Empty fields
// mean "unavailable" and render as N/A at the API boundary; they are
// never left holding values from a previously selected workspace.
type CueState struct {
	ActiveCueNumber   string `json:"active_cue_number"`
	ActiveCueName     string `json:"active_cue_name"`
	SelectedCueNumber string `json:"selected_cue_number"`
	SelectedCueName   string `json:"selected_cue_name"`
}

// Session is a read-only snapshot of the process-wide session state.
// The session store owns the live copy; handlers only ever see values
// of this struct, so there is nothing for them to race on.
type Session struct {
	SelectedDevice    *Device          `json:"selectedDevice,omitempty"`
	SelectedWorkspace *Workspace       `json:"selectedWorkspace,omitempty"`
	Status            ConnectionStatus `json:"status"`
	CueState          CueState         `json:"cueState"`
	Snapshot          []byte           `json:"-"`
	LastRefreshedAt   time.Time        `json:"lastRefreshedAt"`
}

// AudioLevels are a device's master and per-channel output levels,
// normalized to 0.0–1.0.
type AudioLevels struct {
	Master float64 `json:"master"`
	Left   float64 `json:"left"`
	Right  float64 `json:"right"`
}

// Cue is one entry of a workspace's cue list.
type Cue struct {
	UniqueID string `json:"uniqueID"`
	Number   string `json:"number"`
	Name     string `json:"name"`
}

// Action is a playback control recognised by the dispatcher. Free-form
// strings from clients are funneled through ParseAction so an unknown
// action is rejected before any state is consulted.
type Action string

const (
	ActionGo       Action = "go"
	ActionNext     Action = "next"
	ActionPrevious Action = "previous"
	ActionPanic    Action = "panic"
	ActionStop     Action = "stop"
	ActionPause    Action = "pause"
	ActionResume   Action = "resume"
)

var validActions = map[Action]bool{
	ActionGo:       true,
	ActionNext:     true,
	ActionPrevious: true,
	ActionPanic:    true,
	ActionStop:     true,
	ActionPause:    true,
	ActionResume:   true,
}

func (a Action) IsValid() bool {
	return validActions[a]
}

// ParseAction converts a client-supplied string into an Action.
func ParseAction(s string) (Action, error) {
	a := Action(s)
	if !a.IsValid() {
		return "", &UnknownActionError{Name: s}
	}
	return a, nil
}

// Actions returns every valid action.
func Actions() []Action {
	return []Action{
		ActionGo, ActionNext, ActionPrevious, ActionPanic,
		ActionStop, ActionPause, ActionResume,
	}
}
