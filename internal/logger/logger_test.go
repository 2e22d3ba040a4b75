package logger

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestConsoleHandlerColorsLevel(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(newConsoleHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	log.Warn("disk almost full")
	out := buf.String()
	if !strings.Contains(out, levelColors[slog.LevelWarn]+"WARN"+ansiReset) {
		t.Fatalf("warn level not colored: %q", out)
	}
	if !strings.Contains(out, "disk almost full") {
		t.Fatalf("message missing: %q", out)
	}
}

func TestTeeHandlerWritesBoth(t *testing.T) {
	var console, file bytes.Buffer
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	h := newTeeHandler(newConsoleHandler(&console, opts), slog.NewTextHandler(&file, opts))
	log := slog.New(h)

	log.Info("session saved", "windows", 4)
	for name, buf := range map[string]*bytes.Buffer{"console": &console, "file": &file} {
		if !strings.Contains(buf.String(), "session saved") {
			t.Fatalf("%s output missing record: %q", name, buf.String())
		}
	}
	if strings.Contains(file.String(), ansiReset) {
		t.Fatalf("file output carries ANSI codes: %q", file.String())
	}
}

func TestWriterNilWithoutDestination(t *testing.T) {
	if w := (Config{}).Writer(); w != nil {
		t.Fatalf("expected nil writer with no destination")
	}
}
