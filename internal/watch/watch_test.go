package watch

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hyprsave/hyprsave/internal/classify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func waitEvent(t *testing.T, ch <-chan classify.Event, match func(classify.Event) bool) classify.Event {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-ch:
			if match(ev) {
				return ev
			}
		case <-deadline:
			t.Fatalf("no matching event")
		}
	}
}

func TestLifecycle(t *testing.T) {
	dir := t.TempDir()
	m := NewManager([]string{dir}, 4, discardLogger())
	if m.State() != StateStopped {
		t.Fatalf("initial state: %v", m.State())
	}
	if err := m.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if m.State() != StateWatching {
		t.Fatalf("state after start: %v", m.State())
	}
	if err := m.Start(); err == nil {
		t.Fatalf("double start accepted")
	}
	m.Stop()
	if m.State() != StateStopped {
		t.Fatalf("state after stop: %v", m.State())
	}
}

func TestEventsForwarded(t *testing.T) {
	dir := t.TempDir()
	m := NewManager([]string{dir}, 4, discardLogger())
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	p := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(p, []byte("flask\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	ev := waitEvent(t, m.Events(), func(e classify.Event) bool {
		return e.Path == p && e.Kind == classify.RawCreate
	})
	if classify.Classify(ev.Path, ev.Kind) != classify.DependencyFileModified {
		t.Fatalf("classification: %v", classify.Classify(ev.Path, ev.Kind))
	}
}

func TestDeleteForwarded(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "victim")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	m := NewManager([]string{dir}, 4, discardLogger())
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if err := os.Remove(p); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, m.Events(), func(e classify.Event) bool {
		return e.Path == p && e.Kind == classify.RawDelete
	})
}

// Four directories with a limit of two: the first two are watched, the rest
// are skipped and reported.
func TestMonitorLimit(t *testing.T) {
	var dirs []string
	for i := 0; i < 4; i++ {
		dirs = append(dirs, t.TempDir())
	}
	m := NewManager(dirs, 2, discardLogger())
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if got := len(m.Watching()); got != 2 {
		t.Fatalf("watching %d dirs", got)
	}
	skipped := m.Skipped()
	if len(skipped) != 2 {
		t.Fatalf("skipped: %v", skipped)
	}
	if skipped[0] != dirs[2] || skipped[1] != dirs[3] {
		t.Fatalf("skipped wrong dirs: %v", skipped)
	}
}

func TestMissingDirectorySkipped(t *testing.T) {
	dir := t.TempDir()
	missing := filepath.Join(dir, "nope")
	m := NewManager([]string{missing, dir}, 4, discardLogger())
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	if got := m.Watching(); len(got) != 1 || got[0] != dir {
		t.Fatalf("watching: %v", got)
	}
	if got := m.Skipped(); len(got) != 1 || got[0] != missing {
		t.Fatalf("skipped: %v", got)
	}
}

func TestHealthCheckRestartsDeadWatcher(t *testing.T) {
	dir := t.TempDir()
	m := NewManager([]string{dir}, 4, discardLogger())
	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	defer m.Stop()

	// kill the watcher behind the manager's back
	m.mu.Lock()
	dw := m.watchers[dir]
	m.mu.Unlock()
	_ = dw.watcher.Close()
	deadline := time.Now().Add(2 * time.Second)
	for !dw.dead.Load() {
		if time.Now().After(deadline) {
			t.Fatalf("worker did not exit")
		}
		time.Sleep(5 * time.Millisecond)
	}

	m.HealthCheck()
	if m.Restarts() != 1 {
		t.Fatalf("restarts: %d", m.Restarts())
	}

	p := filepath.Join(dir, "after-restart")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitEvent(t, m.Events(), func(e classify.Event) bool { return e.Path == p })
}
