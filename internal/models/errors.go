package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for session and dispatch failures. Handlers map these
// to HTTP status codes; everything else is a 500.
var (
	// ErrNotFound means a device or workspace ID was not in the last
	// enumerated list.
	ErrNotFound = errors.New("not found")

	// ErrNoDeviceSelected means an operation that needs a device ran
	// before any device was selected.
	ErrNoDeviceSelected = errors.New("no device selected")

	// ErrBackendUnavailable means a backend call failed or timed out.
	ErrBackendUnavailable = errors.New("backend unavailable")

	// ErrNotActive means a button action arrived before a workspace
	// was active.
	ErrNotActive = errors.New("no workspace active")
)

// UnknownActionError reports a client action string that is not in the
// closed action set. The backend is never contacted for these.
type UnknownActionError struct {
	Name string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.Name)
}

// BackendCommandError reports a dispatch that reached the backend but
// was rejected by it. Never retried; the user retries the button.
type BackendCommandError struct {
	Action Action
	Err    error
}

func (e *BackendCommandError) Error() string {
	return fmt.Sprintf("backend rejected %q: %v", e.Action, e.Err)
}

func (e *BackendCommandError) Unwrap() error {
	return e.Err
}
