package daemon

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyprsave/hyprsave/internal/changelog"
	_ "github.com/hyprsave/hyprsave/internal/changelog/sqlite"
	"github.com/hyprsave/hyprsave/internal/compositor"
	"github.com/hyprsave/hyprsave/internal/config"
	"github.com/hyprsave/hyprsave/internal/envscan"
	"github.com/hyprsave/hyprsave/internal/snapshot"
	"github.com/hyprsave/hyprsave/internal/watch"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeClient struct{}

func (fakeClient) ListMonitors() ([]compositor.Monitor, error) {
	return []compositor.Monitor{{ID: 0, Name: "DP-1"}}, nil
}

func (fakeClient) ListWorkspaces() ([]compositor.Workspace, error) {
	return []compositor.Workspace{{ID: 1, Name: "1"}}, nil
}

func (fakeClient) ListWindows() ([]compositor.Window, error) {
	return []compositor.Window{{Address: "0xa", Class: "kitty", PID: 1, Workspace: compositor.WorkspaceRef{ID: 1}}}, nil
}

func (fakeClient) ActiveWorkspace() (int, error) { return 1, nil }

func (fakeClient) Dispatch(string) error { return nil }

func TestTriggerThresholdBoundary(t *testing.T) {
	tr := NewTrigger(true, 2)
	if tr.ShouldSave(1) {
		t.Fatalf("below threshold fired")
	}
	if !tr.ShouldSave(2) {
		t.Fatalf("score equal to threshold must fire")
	}
	if !tr.ShouldSave(3) {
		t.Fatalf("above threshold must fire")
	}
}

func TestTriggerDisabled(t *testing.T) {
	tr := NewTrigger(false, 2)
	if tr.ShouldSave(5) {
		t.Fatalf("disabled trigger fired")
	}
}

func testDaemon(t *testing.T, watchDir string, autoSave bool) (*Daemon, *snapshot.Store) {
	t.Helper()
	cfg := config.Default()
	cfg.SessionDir = t.TempDir()
	cfg.ScanInterval = time.Hour // keep the ticker out of the way
	cfg.AutoSave = autoSave
	cfg.Notifications = false
	if watchDir != "" {
		cfg.WatchDirs = []string{watchDir}
	}

	log := discardLogger()
	store := snapshot.NewStore(cfg.SnapshotDir(), cfg.BackupDir(), cfg.MaxBackups)
	capturer := snapshot.NewCapturer(fakeClient{}, store, nil, log)
	capturer.SetCommandLookup(func(int) (string, error) { return "kitty", nil })

	cl, err := changelog.Open("sqlite", cfg.ChangelogPath())
	if err != nil {
		t.Fatalf("changelog: %v", err)
	}
	t.Cleanup(func() { _ = cl.Close() })
	if err := cl.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("schema: %v", err)
	}

	watcher := watch.NewManager(cfg.WatchDirs, cfg.MaxMonitors, log)
	tracker := envscan.NewTracker(envscan.NewScanner(nil, nil), cfg.BaselinePath(), log)

	return New(cfg, capturer, nil, watcher, tracker, cl, nil, log), store
}

// A dependency manifest change scores 2, which meets the default threshold
// and must produce an automatic save plus an audit entry marked triggered.
func TestAutoSaveOnDependencyChange(t *testing.T) {
	dir := t.TempDir()
	d, store := testDaemon(t, dir, true)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()

	// wait for the watcher to come up
	deadline := time.Now().Add(3 * time.Second)
	for d.Status().State != "watching" {
		if time.Now().After(deadline) {
			t.Fatalf("watcher never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("flask\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline = time.Now().Add(3 * time.Second)
	for !store.Exists() {
		if time.Now().After(deadline) {
			t.Fatalf("auto-save never happened")
		}
		time.Sleep(10 * time.Millisecond)
	}

	entries, err := d.RecentChanges(context.Background(), 10)
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, e := range entries {
		if e.Type == "dependency_file_modified" && e.Triggered {
			found = true
		}
	}
	if !found {
		t.Fatalf("no triggered audit entry: %+v", entries)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("daemon did not shut down")
	}
}

func TestNoAutoSaveWhenDisabled(t *testing.T) {
	dir := t.TempDir()
	d, store := testDaemon(t, dir, false)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = d.Run(ctx) }()

	deadline := time.Now().Add(3 * time.Second)
	for d.Status().State != "watching" {
		if time.Now().After(deadline) {
			t.Fatalf("watcher never started")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := os.WriteFile(filepath.Join(dir, "requirements.txt"), []byte("flask\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	// wait for the change to be seen, then confirm no save happened
	deadline = time.Now().Add(3 * time.Second)
	for d.Status().ChangesSeen == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("change never observed")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if store.Exists() {
		t.Fatalf("save happened with auto-save disabled")
	}
}

func TestManualSaveCountsSeparately(t *testing.T) {
	d, store := testDaemon(t, "", true)
	if _, err := d.SaveNow(context.Background()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if !store.Exists() {
		t.Fatalf("snapshot missing after manual save")
	}
	st := d.Status()
	if st.ManualSaves != 1 || st.AutoSaves != 0 {
		t.Fatalf("status: %+v", st)
	}
}
