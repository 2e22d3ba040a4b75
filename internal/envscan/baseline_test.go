package envscan

import (
	"encoding/json"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/hyprsave/hyprsave/internal/classify"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func makeCondaRoot(t *testing.T, envs ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, e := range envs {
		if err := os.MkdirAll(filepath.Join(root, "envs", e), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	return root
}

func TestScannerCondaRoot(t *testing.T) {
	root := makeCondaRoot(t, "base", "ml")
	s := NewScanner([]string{root}, nil)
	envs := s.Scan()
	var names []string
	for _, e := range envs {
		if e.Type == "conda" {
			names = append(names, e.Name)
		}
	}
	if !reflect.DeepEqual(names, []string{"base", "ml"}) {
		t.Fatalf("conda envs: %v", names)
	}
}

func TestScannerVenvRequiresCfg(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "proj-venv"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "real-venv"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "real-venv", "pyvenv.cfg"), []byte("home = /usr\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	envs := NewScanner([]string{root}, nil).Scan()
	for _, e := range envs {
		if e.Type == "venv" && e.Name == "proj-venv" {
			t.Fatalf("directory without pyvenv.cfg detected as venv")
		}
	}
	found := false
	for _, e := range envs {
		if e.Type == "venv" && e.Name == "real-venv" {
			found = true
		}
	}
	if !found {
		t.Fatalf("real venv not detected: %+v", envs)
	}
}

func TestDetectActiveMarkers(t *testing.T) {
	envs := detectActive([]string{
		"CONDA_DEFAULT_ENV=ml",
		"VIRTUAL_ENV=/home/u/src/proj/.venv",
		"PYENV_VERSION=3.12.1",
		"PATH=/usr/bin",
	})
	if len(envs) != 3 {
		t.Fatalf("expected 3 active envs, got %+v", envs)
	}
	for _, e := range envs {
		if e.Status != StatusActive {
			t.Errorf("%s not active", e.ID())
		}
	}
}

func TestDiff(t *testing.T) {
	added, removed := Diff(
		[]string{"conda:base", "pyenv:3.10"},
		[]string{"conda:base", "conda:ml", "venv:proj"},
	)
	if !reflect.DeepEqual(added, []string{"conda:ml", "venv:proj"}) {
		t.Fatalf("added: %v", added)
	}
	if !reflect.DeepEqual(removed, []string{"pyenv:3.10"}) {
		t.Fatalf("removed: %v", removed)
	}
}

// Scenario A: baseline {conda:base}, current {conda:base, conda:newenv}
// reports one environment_created with score 3+1.
func TestCycleScenarioNewCondaEnv(t *testing.T) {
	root := makeCondaRoot(t, "base")
	dir := t.TempDir()
	tr := NewTracker(NewScanner([]string{root}, nil), filepath.Join(dir, "baseline.json"), discardLogger())

	if _, err := tr.Cycle(); err != nil {
		t.Fatalf("priming cycle: %v", err)
	}

	if err := os.MkdirAll(filepath.Join(root, "envs", "newenv"), 0o755); err != nil {
		t.Fatal(err)
	}
	changes, err := tr.Cycle()
	if err != nil {
		t.Fatalf("cycle: %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %+v", changes)
	}
	ch := changes[0]
	if ch.Type != classify.EnvironmentCreated || ch.Event.Path != "conda:newenv" {
		t.Fatalf("unexpected change: %+v", ch)
	}
	if ch.Score != 4 {
		t.Fatalf("score = %d, want 4 (3 create + 1 conda)", ch.Score)
	}
}

// Idempotence: two consecutive cycles with no filesystem change both yield
// an empty change set.
func TestCycleIdempotent(t *testing.T) {
	root := makeCondaRoot(t, "base", "ml")
	dir := t.TempDir()
	tr := NewTracker(NewScanner([]string{root}, nil), filepath.Join(dir, "baseline.json"), discardLogger())

	if _, err := tr.Cycle(); err != nil {
		t.Fatalf("priming cycle: %v", err)
	}
	for i := 0; i < 2; i++ {
		changes, err := tr.Cycle()
		if err != nil {
			t.Fatalf("cycle %d: %v", i, err)
		}
		if len(changes) != 0 {
			t.Fatalf("cycle %d not empty: %+v", i, changes)
		}
	}
}

// Stability: with no real change the persisted baseline differs only in its
// timestamp.
func TestBaselineStableExceptTimestamp(t *testing.T) {
	root := makeCondaRoot(t, "base")
	path := filepath.Join(t.TempDir(), "baseline.json")
	tr := NewTracker(NewScanner([]string{root}, nil), path, discardLogger())

	if _, err := tr.Cycle(); err != nil {
		t.Fatal(err)
	}
	first := readBaselineFile(t, path)
	time.Sleep(10 * time.Millisecond)
	if _, err := tr.Cycle(); err != nil {
		t.Fatal(err)
	}
	second := readBaselineFile(t, path)

	if first.Timestamp.Equal(second.Timestamp) {
		t.Fatalf("timestamp did not advance")
	}
	if !reflect.DeepEqual(first.Environments, second.Environments) {
		t.Fatalf("environments changed:\n%+v\n%+v", first.Environments, second.Environments)
	}
}

// Deleting an environment emits environment_deleted and removes it from the
// replaced baseline.
func TestCycleEnvironmentDeleted(t *testing.T) {
	root := makeCondaRoot(t, "base", "old")
	path := filepath.Join(t.TempDir(), "baseline.json")
	tr := NewTracker(NewScanner([]string{root}, nil), path, discardLogger())

	if _, err := tr.Cycle(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(root, "envs", "old")); err != nil {
		t.Fatal(err)
	}
	changes, err := tr.Cycle()
	if err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 || changes[0].Type != classify.EnvironmentDeleted || changes[0].Event.Path != "conda:old" {
		t.Fatalf("unexpected changes: %+v", changes)
	}
	for _, id := range tr.Baseline().IDs() {
		if id == "conda:old" {
			t.Fatalf("deleted environment still in baseline")
		}
	}
}

func readBaselineFile(t *testing.T, path string) Baseline {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read baseline: %v", err)
	}
	var out Baseline
	if err := json.Unmarshal(b, &out); err != nil {
		t.Fatalf("decode baseline: %v", err)
	}
	return out
}
