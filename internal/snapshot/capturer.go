package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hyprsave/hyprsave/internal/compositor"
	"github.com/hyprsave/hyprsave/internal/hook"
	"github.com/hyprsave/hyprsave/internal/metrics"
)

// ErrCaptureFailed marks a capture aborted because the compositor could not
// be fully queried. The stored snapshot is left untouched.
var ErrCaptureFailed = errors.New("capture failed")

// CommandLookup resolves a window's PID to the command line that launched it.
type CommandLookup func(pid int) (string, error)

// Capturer reads live compositor state and persists it through the store.
// Captures are single-flight: concurrent requests serialize, they never
// interleave partial writes.
type Capturer struct {
	mu     sync.Mutex
	client compositor.Client
	store  *Store
	hooks  *hook.Executor
	lookup CommandLookup
	log    *slog.Logger
}

func NewCapturer(client compositor.Client, store *Store, hooks *hook.Executor, log *slog.Logger) *Capturer {
	return &Capturer{client: client, store: store, hooks: hooks, lookup: procCommandLine, log: log}
}

// SetCommandLookup overrides the PID to command-line resolver. Tests use this
// to avoid reading /proc.
func (c *Capturer) SetCommandLookup(fn CommandLookup) { c.lookup = fn }

// Capture queries every compositor facet, persists the snapshot, and runs the
// pre-save hook pipeline. Any query failure aborts before the store is
// touched; hook failures never fail the capture.
func (c *Capturer) Capture(ctx context.Context) (*Snapshot, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	snap, err := c.read()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	if err := c.store.Save(snap); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCaptureFailed, err)
	}
	c.log.Info("session saved",
		"monitors", len(snap.Monitors),
		"workspaces", len(snap.Workspaces),
		"windows", len(snap.Windows))

	if c.hooks != nil {
		sum := c.hooks.Run(ctx, hook.PhasePreSave)
		for i := 0; i < sum.Failed; i++ {
			metrics.IncHookFailure(string(sum.Phase))
		}
		if sum.Total > 0 {
			c.log.Info("pre-save hooks finished", "summary", sum.String())
		}
	}
	return snap, nil
}

func (c *Capturer) read() (*Snapshot, error) {
	monitors, err := c.client.ListMonitors()
	if err != nil {
		return nil, fmt.Errorf("monitors: %w", err)
	}
	workspaces, err := c.client.ListWorkspaces()
	if err != nil {
		return nil, fmt.Errorf("workspaces: %w", err)
	}
	windows, err := c.client.ListWindows()
	if err != nil {
		return nil, fmt.Errorf("windows: %w", err)
	}
	active, err := c.client.ActiveWorkspace()
	if err != nil {
		return nil, fmt.Errorf("active workspace: %w", err)
	}

	snap := &Snapshot{
		Timestamp:       time.Now().UTC(),
		Monitors:        monitors,
		Workspaces:      workspaces,
		Windows:         windows,
		ActiveWorkspace: active,
		Applications:    c.applications(windows),
	}
	return snap, nil
}

// applications derives one relaunchable record per window class and
// workspace. Windows whose command line cannot be resolved are recorded with
// an empty command and skipped at restore time.
func (c *Capturer) applications(windows []compositor.Window) []Application {
	seen := make(map[string]struct{}, len(windows))
	var apps []Application
	for _, w := range windows {
		if w.Class == "" {
			continue
		}
		key := w.Class + "|" + strconv.Itoa(w.Workspace.ID)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}

		cmd, err := c.lookup(w.PID)
		if err != nil {
			c.log.Warn("command lookup failed", "class", w.Class, "pid", w.PID, "err", err)
		}
		apps = append(apps, Application{Class: w.Class, Command: cmd, Workspace: w.Workspace.ID})
	}
	sort.Slice(apps, func(i, j int) bool {
		if apps[i].Workspace != apps[j].Workspace {
			return apps[i].Workspace < apps[j].Workspace
		}
		return apps[i].Class < apps[j].Class
	})
	return apps
}

// procCommandLine reads /proc/<pid>/cmdline and joins the NUL-separated
// argument vector with spaces.
func procCommandLine(pid int) (string, error) {
	if pid <= 0 {
		return "", fmt.Errorf("invalid pid %d", pid)
	}
	data, err := os.ReadFile("/proc/" + strconv.Itoa(pid) + "/cmdline")
	if err != nil {
		return "", err
	}
	parts := strings.Split(strings.TrimRight(string(data), "\x00"), "\x00")
	return strings.Join(parts, " "), nil
}
