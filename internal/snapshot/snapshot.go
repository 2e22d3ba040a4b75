package snapshot

import (
	"fmt"
	"time"

	"github.com/hyprsave/hyprsave/internal/compositor"
)

// Application is one relaunchable application record derived from a live
// window at capture time.
type Application struct {
	Class     string `json:"class"`
	Command   string `json:"command"`
	Workspace int    `json:"workspace"`
}

// Snapshot is the full captured session state. Snapshots are immutable:
// a new save atomically replaces the previous one, it never merges.
type Snapshot struct {
	Timestamp       time.Time              `json:"timestamp"`
	Monitors        []compositor.Monitor   `json:"monitors"`
	Workspaces      []compositor.Workspace `json:"workspaces"`
	Windows         []compositor.Window    `json:"windows"`
	ActiveWorkspace int                    `json:"active_workspace"`
	Applications    []Application          `json:"applications"`
}

// Validate checks internal consistency: every window must reference a
// workspace present in the same snapshot.
func (s *Snapshot) Validate() error {
	ws := make(map[int]struct{}, len(s.Workspaces))
	for _, w := range s.Workspaces {
		ws[w.ID] = struct{}{}
	}
	for _, win := range s.Windows {
		if _, ok := ws[win.Workspace.ID]; !ok {
			return fmt.Errorf("window %s references unknown workspace %d", win.Address, win.Workspace.ID)
		}
	}
	return nil
}

// WorkspaceIDs returns the distinct workspace ids referenced by the snapshot.
func (s *Snapshot) WorkspaceIDs() []int {
	out := make([]int, 0, len(s.Workspaces))
	for _, w := range s.Workspaces {
		out = append(out, w.ID)
	}
	return out
}
