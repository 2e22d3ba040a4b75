package compositor

import "errors"

// ErrUnreachable is returned when the compositor IPC socket cannot be
// reached or does not answer. Callers own the retry policy; no call in this
// package retries.
var ErrUnreachable = errors.New("compositor unreachable")

// Monitor describes one output as reported by the compositor.
type Monitor struct {
	ID              int          `json:"id"`
	Name            string       `json:"name"`
	Description     string       `json:"description"`
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	RefreshRate     float64      `json:"refreshRate"`
	X               int          `json:"x"`
	Y               int          `json:"y"`
	Scale           float64      `json:"scale"`
	Focused         bool         `json:"focused"`
	ActiveWorkspace WorkspaceRef `json:"activeWorkspace"`
}

// WorkspaceRef is the short workspace reference embedded in monitor and
// window records.
type WorkspaceRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Workspace describes a workspace and its window count.
type Workspace struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Monitor   string `json:"monitor"`
	MonitorID int    `json:"monitorID"`
	Windows   int    `json:"windows"`
}

// Window describes one client window. Address is the compositor's stable
// window id. At/Size are [x,y] and [w,h] pairs as the wire protocol encodes
// them.
type Window struct {
	Address      string       `json:"address"`
	Class        string       `json:"class"`
	Title        string       `json:"title"`
	InitialClass string       `json:"initialClass"`
	PID          int          `json:"pid"`
	Floating     bool         `json:"floating"`
	Monitor      int          `json:"monitor"`
	Workspace    WorkspaceRef `json:"workspace"`
	At           [2]int       `json:"at"`
	Size         [2]int       `json:"size"`
}

// Client is the typed compositor query/command surface. All calls are
// synchronous and fail with an error wrapping ErrUnreachable when the
// compositor cannot be reached.
type Client interface {
	ListMonitors() ([]Monitor, error)
	ListWorkspaces() ([]Workspace, error)
	ListWindows() ([]Window, error)
	ActiveWorkspace() (int, error)
	Dispatch(command string) error
}
