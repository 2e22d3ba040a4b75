package notify

import (
	"fmt"
	"log/slog"
	"os/exec"
	"sync"
	"time"
)

// Notifier sends desktop notifications through notify-send. A missing
// notify-send binary downgrades every notification to a log line, warned
// about once.
type Notifier struct {
	enabled bool
	log     *slog.Logger

	once    sync.Once
	sendCmd string
	missing bool

	// run is swapped out by tests
	run func(name string, args ...string) error
}

func New(enabled bool, log *slog.Logger) *Notifier {
	n := &Notifier{enabled: enabled, log: log}
	n.run = func(name string, args ...string) error {
		cmd := exec.Command(name, args...)
		if err := cmd.Start(); err != nil {
			return err
		}
		// fire and forget; reap in the background
		go func() { _ = cmd.Wait() }()
		return nil
	}
	return n
}

// Send emits a desktop notification. Failures never propagate to the caller.
func (n *Notifier) Send(summary, body string) {
	if !n.enabled {
		return
	}
	n.once.Do(n.locate)
	if n.missing {
		n.log.Info("notification", "summary", summary, "body", body)
		return
	}
	if err := n.run(n.sendCmd, "--app-name=hyprsave", "--expire-time=5000", summary, body); err != nil {
		n.log.Warn("notification failed", "err", err)
	}
}

func (n *Notifier) locate() {
	p, err := exec.LookPath("notify-send")
	if err != nil {
		n.missing = true
		n.log.Warn("notify-send not found, notifications will be logged only")
		return
	}
	n.sendCmd = p
}

// Saved announces a completed session save.
func (n *Notifier) Saved(windows int, took time.Duration) {
	n.Send("Session saved", fmt.Sprintf("%d windows in %s", windows, took.Round(time.Millisecond)))
}

// Restored announces a completed restore, noting partial results.
func (n *Notifier) Restored(found, expected int) {
	if found < expected {
		n.Send("Session restored with warnings", fmt.Sprintf("%d of %d windows restored", found, expected))
		return
	}
	n.Send("Session restored", fmt.Sprintf("%d windows restored", found))
}

// AutoSave announces an automatic save triggered by an environment change.
func (n *Notifier) AutoSave(reason string) {
	n.Send("Session auto-saved", reason)
}
