package restore

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hyprsave/hyprsave/internal/compositor"
	"github.com/hyprsave/hyprsave/internal/hook"
	"github.com/hyprsave/hyprsave/internal/metrics"
	"github.com/hyprsave/hyprsave/internal/snapshot"
)

// Report summarizes a restore run. Individual step failures accumulate as
// warnings; only an unreachable compositor or a missing snapshot aborts.
type Report struct {
	SnapshotTime    time.Time
	Launched        int
	ExpectedWindows int
	FoundWindows    int
	Mismatch        bool
	Warnings        []string
	Hooks           hook.Summary
}

// Restorer replays a stored snapshot against the live compositor.
type Restorer struct {
	client compositor.Client
	store  *snapshot.Store
	hooks  *hook.Executor
	log    *slog.Logger

	launchDelay  time.Duration
	readyRetries int
	readyBackoff time.Duration
	pollTimeout  time.Duration
	pollInterval time.Duration
}

func NewRestorer(client compositor.Client, store *snapshot.Store, hooks *hook.Executor, launchDelay time.Duration, log *slog.Logger) *Restorer {
	if launchDelay < 0 {
		launchDelay = 0
	}
	return &Restorer{
		client:       client,
		store:        store,
		hooks:        hooks,
		log:          log,
		launchDelay:  launchDelay,
		readyRetries: 10,
		readyBackoff: 500 * time.Millisecond,
		pollTimeout:  15 * time.Second,
		pollInterval: 500 * time.Millisecond,
	}
}

// SetTimings shortens the readiness and window polling loops. Tests use this
// to keep restores fast.
func (r *Restorer) SetTimings(readyRetries int, readyBackoff, pollTimeout, pollInterval time.Duration) {
	r.readyRetries = readyRetries
	r.readyBackoff = readyBackoff
	r.pollTimeout = pollTimeout
	r.pollInterval = pollInterval
}

// Restore loads the stored snapshot and walks the restore sequence:
// readiness check, workspace recreation, application launch, window
// placement, focus, post-restore hooks, count validation. Placement and
// launch failures are recorded as warnings and the sequence continues.
func (r *Restorer) Restore(ctx context.Context) (*Report, error) {
	snap, verified, err := r.store.Load()
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	rep := &Report{SnapshotTime: snap.Timestamp, ExpectedWindows: len(snap.Windows)}
	if !verified {
		r.warn(rep, "snapshot checksum mismatch, restoring anyway")
	}

	if err := r.waitReady(ctx); err != nil {
		return nil, err
	}

	r.recreateWorkspaces(rep, snap)
	r.launchApplications(ctx, rep, snap)
	found := r.waitForWindows(ctx, rep.ExpectedWindows)
	rep.FoundWindows = len(found)
	r.placeWindows(rep, snap, found)
	r.restoreFocus(rep, snap)

	if r.hooks != nil {
		rep.Hooks = r.hooks.Run(ctx, hook.PhasePostRestore)
		for i := 0; i < rep.Hooks.Failed; i++ {
			metrics.IncHookFailure(string(rep.Hooks.Phase))
		}
		if rep.Hooks.Total > 0 {
			r.log.Info("post-restore hooks finished", "summary", rep.Hooks.String())
		}
	}

	if rep.FoundWindows < rep.ExpectedWindows {
		rep.Mismatch = true
		r.warn(rep, fmt.Sprintf("restored %d of %d windows", rep.FoundWindows, rep.ExpectedWindows))
	}
	r.log.Info("session restored",
		"snapshot", snap.Timestamp,
		"launched", rep.Launched,
		"windows", fmt.Sprintf("%d/%d", rep.FoundWindows, rep.ExpectedWindows))
	return rep, nil
}

// waitReady polls the compositor until it answers, with bounded retries.
func (r *Restorer) waitReady(ctx context.Context) error {
	var lastErr error
	for i := 0; i < r.readyRetries; i++ {
		if _, lastErr = r.client.ActiveWorkspace(); lastErr == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.readyBackoff):
		}
	}
	return fmt.Errorf("compositor not ready after %d attempts: %w", r.readyRetries, lastErr)
}

func (r *Restorer) recreateWorkspaces(rep *Report, snap *snapshot.Snapshot) {
	for _, id := range snap.WorkspaceIDs() {
		if err := r.client.Dispatch(fmt.Sprintf("workspace %d", id)); err != nil {
			r.warn(rep, fmt.Sprintf("workspace %d: %v", id, err))
		}
	}
}

func (r *Restorer) launchApplications(ctx context.Context, rep *Report, snap *snapshot.Snapshot) {
	for _, app := range snap.Applications {
		if app.Command == "" {
			r.warn(rep, fmt.Sprintf("no command recorded for %s, skipping launch", app.Class))
			continue
		}
		cmd := fmt.Sprintf("exec [workspace %d silent] %s", app.Workspace, app.Command)
		if err := r.client.Dispatch(cmd); err != nil {
			r.warn(rep, fmt.Sprintf("launch %s: %v", app.Class, err))
			continue
		}
		rep.Launched++
		select {
		case <-ctx.Done():
			return
		case <-time.After(r.launchDelay):
		}
	}
}

// waitForWindows polls until at least the expected number of windows exist
// or the poll deadline passes, returning the last listing either way.
func (r *Restorer) waitForWindows(ctx context.Context, expected int) []compositor.Window {
	deadline := time.Now().Add(r.pollTimeout)
	var last []compositor.Window
	for {
		wins, err := r.client.ListWindows()
		if err == nil {
			last = wins
			if len(wins) >= expected {
				return last
			}
		}
		if time.Now().After(deadline) {
			return last
		}
		select {
		case <-ctx.Done():
			return last
		case <-time.After(r.pollInterval):
		}
	}
}

// placeWindows moves and sizes live windows to match their snapshot
// counterparts, pairing by class in order of appearance.
func (r *Restorer) placeWindows(rep *Report, snap *snapshot.Snapshot, live []compositor.Window) {
	byClass := make(map[string][]compositor.Window)
	for _, w := range live {
		byClass[w.Class] = append(byClass[w.Class], w)
	}
	for _, want := range snap.Windows {
		candidates := byClass[want.Class]
		if len(candidates) == 0 {
			continue
		}
		got := candidates[0]
		byClass[want.Class] = candidates[1:]

		addr := "address:" + got.Address
		moves := []string{
			fmt.Sprintf("movetoworkspacesilent %d,%s", want.Workspace.ID, addr),
			fmt.Sprintf("movewindowpixel exact %d %d,%s", want.At[0], want.At[1], addr),
			fmt.Sprintf("resizewindowpixel exact %d %d,%s", want.Size[0], want.Size[1], addr),
		}
		for _, m := range moves {
			if err := r.client.Dispatch(m); err != nil {
				r.warn(rep, fmt.Sprintf("place %s: %v", want.Class, err))
				break
			}
		}
	}
}

func (r *Restorer) restoreFocus(rep *Report, snap *snapshot.Snapshot) {
	if err := r.client.Dispatch(fmt.Sprintf("workspace %d", snap.ActiveWorkspace)); err != nil {
		r.warn(rep, fmt.Sprintf("focus workspace %d: %v", snap.ActiveWorkspace, err))
	}
}

func (r *Restorer) warn(rep *Report, msg string) {
	rep.Warnings = append(rep.Warnings, msg)
	r.log.Warn(msg)
}
