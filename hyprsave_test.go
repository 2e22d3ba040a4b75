package hyprsave

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	if c.SessionDir == "" {
		t.Fatalf("empty session dir")
	}
	if c.ImpactThreshold != 2 || c.ScanInterval != 5*time.Minute {
		t.Fatalf("defaults: %+v", c)
	}
	if !c.AutoSave {
		t.Fatalf("auto-save should default on")
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	body := `
session_dir = "` + dir + `"
impact_threshold = 3
scan_interval = "30s"
`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := LoadConfig(path, log)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.SessionDir != dir || c.ImpactThreshold != 3 || c.ScanInterval != 30*time.Second {
		t.Fatalf("config: %+v", c)
	}
}

func TestNewSessionWithoutSnapshot(t *testing.T) {
	c := DefaultConfig()
	c.SessionDir = t.TempDir()
	s, err := NewSession(c)
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if s.Saved() {
		t.Fatalf("fresh session dir reports a saved session")
	}
	if err := s.Clean(); err != nil {
		t.Fatalf("clean: %v", err)
	}
}
