package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hyprsave/hyprsave/internal/changelog"
	"github.com/hyprsave/hyprsave/internal/classify"
	"github.com/hyprsave/hyprsave/internal/config"
	"github.com/hyprsave/hyprsave/internal/envscan"
	"github.com/hyprsave/hyprsave/internal/metrics"
	"github.com/hyprsave/hyprsave/internal/notify"
	"github.com/hyprsave/hyprsave/internal/restore"
	"github.com/hyprsave/hyprsave/internal/snapshot"
	"github.com/hyprsave/hyprsave/internal/watch"
)

// Status is the daemon's externally visible state, served over the API.
type Status struct {
	State        string    `json:"state"`
	Since        time.Time `json:"since"`
	Watching     []string  `json:"watching"`
	Skipped      []string  `json:"skipped,omitempty"`
	LastSave     time.Time `json:"last_save"`
	LastChange   string    `json:"last_change,omitempty"`
	AutoSaves    int       `json:"auto_saves"`
	ManualSaves  int       `json:"manual_saves"`
	ChangesSeen  int       `json:"changes_seen"`
	Environments int       `json:"environments"`
}

// Daemon owns the watch manager, the baseline tracker, and the auto-save
// trigger, and drives them from a single loop until its context is
// cancelled.
type Daemon struct {
	cfg      config.Config
	log      *slog.Logger
	capturer *snapshot.Capturer
	restorer *restore.Restorer
	watcher  *watch.Manager
	tracker  *envscan.Tracker
	changes  changelog.Store
	notifier *notify.Notifier
	trigger  *Trigger

	mu          sync.Mutex
	started     time.Time
	lastSave    time.Time
	lastChange  string
	autoSaves   int
	manualSaves int
	changesSeen int
}

func New(cfg config.Config, capturer *snapshot.Capturer, restorer *restore.Restorer, watcher *watch.Manager,
	tracker *envscan.Tracker, changes changelog.Store, notifier *notify.Notifier, log *slog.Logger) *Daemon {
	return &Daemon{
		cfg:      cfg,
		log:      log,
		capturer: capturer,
		restorer: restorer,
		watcher:  watcher,
		tracker:  tracker,
		changes:  changes,
		notifier: notifier,
		trigger:  NewTrigger(cfg.AutoSave, cfg.ImpactThreshold),
	}
}

// Run starts the watchers and processes events and scan cycles until ctx is
// cancelled. Shutdown is cooperative: watchers are stopped and drained
// before Run returns.
func (d *Daemon) Run(ctx context.Context) error {
	if err := d.watcher.Start(); err != nil {
		return fmt.Errorf("start watchers: %w", err)
	}
	defer d.watcher.Stop()

	d.mu.Lock()
	d.started = time.Now()
	d.mu.Unlock()

	d.log.Info("daemon running",
		"scan_interval", d.cfg.ScanInterval,
		"threshold", d.cfg.ImpactThreshold,
		"auto_save", d.cfg.AutoSave)

	// establish the baseline before the first tick
	d.scanCycle(ctx)

	ticker := time.NewTicker(d.cfg.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("daemon shutting down")
			return nil
		case ev := <-d.watcher.Events():
			d.handleEvent(ctx, ev)
		case <-ticker.C:
			d.healthCheck()
			d.scanCycle(ctx)
		}
	}
}

// handleEvent classifies one raw filesystem event and routes the resulting
// change through scoring, the audit log, and the auto-save trigger.
func (d *Daemon) handleEvent(ctx context.Context, ev classify.Event) {
	t := classify.Classify(ev.Path, ev.Kind)
	ch := classify.Change{Event: ev, Type: t, Score: classify.Score(t, ev.Path)}
	d.processChange(ctx, ch)
}

// scanCycle diffs the environment baseline and processes the changes it
// yields.
func (d *Daemon) scanCycle(ctx context.Context) {
	changes, err := d.tracker.Cycle()
	if err != nil {
		d.log.Warn("baseline scan failed", "err", err)
		return
	}
	for _, ch := range changes {
		d.processChange(ctx, ch)
	}
}

func (d *Daemon) processChange(ctx context.Context, ch classify.Change) {
	metrics.IncChange(string(ch.Type))
	metrics.ObserveImpactScore(ch.Score)

	fire := d.trigger.ShouldSave(ch.Score)
	d.log.Info("change detected",
		"path", ch.Event.Path,
		"type", string(ch.Type),
		"score", ch.Score,
		"triggers_save", fire)

	d.mu.Lock()
	d.changesSeen++
	d.lastChange = fmt.Sprintf("%s (%s, score %d)", ch.Event.Path, ch.Type, ch.Score)
	d.mu.Unlock()

	if d.changes != nil {
		e := changelog.Entry{
			OccurredAt: ch.Event.Time,
			Path:       ch.Event.Path,
			Type:       string(ch.Type),
			Score:      ch.Score,
			Triggered:  fire,
		}
		if err := d.changes.Append(ctx, e); err != nil {
			d.log.Warn("changelog append failed", "err", err)
		}
	}

	if fire {
		d.autoSave(ctx, ch)
	}
}

func (d *Daemon) autoSave(ctx context.Context, ch classify.Change) {
	if _, err := d.capturer.Capture(ctx); err != nil {
		metrics.IncSaveFailure()
		d.log.Error("auto-save failed", "err", err)
		return
	}
	metrics.IncSave("auto")
	d.mu.Lock()
	d.autoSaves++
	d.lastSave = time.Now()
	d.mu.Unlock()
	if d.notifier != nil {
		d.notifier.AutoSave(fmt.Sprintf("%s (score %d)", ch.Type, ch.Score))
	}
}

func (d *Daemon) healthCheck() {
	before := d.watcher.Restarts()
	d.watcher.HealthCheck()
	for i := before; i < d.watcher.Restarts(); i++ {
		metrics.IncWatcherRestart()
	}
}

// SaveNow performs a manual save through the same single-flight capturer the
// auto-save path uses.
func (d *Daemon) SaveNow(ctx context.Context) (*snapshot.Snapshot, error) {
	snap, err := d.capturer.Capture(ctx)
	if err != nil {
		metrics.IncSaveFailure()
		return nil, err
	}
	metrics.IncSave("manual")
	d.mu.Lock()
	d.manualSaves++
	d.lastSave = time.Now()
	d.mu.Unlock()
	if d.notifier != nil {
		d.notifier.Saved(len(snap.Windows), time.Since(snap.Timestamp))
	}
	return snap, nil
}

// RestoreNow replays the stored snapshot.
func (d *Daemon) RestoreNow(ctx context.Context) (*restore.Report, error) {
	rep, err := d.restorer.Restore(ctx)
	if err != nil {
		return nil, err
	}
	outcome := "complete"
	if rep.Mismatch {
		outcome = "mismatch"
	}
	metrics.IncRestore(outcome)
	if d.notifier != nil {
		d.notifier.Restored(rep.FoundWindows, rep.ExpectedWindows)
	}
	return rep, nil
}

// RecentChanges returns the newest audit entries.
func (d *Daemon) RecentChanges(ctx context.Context, limit int) ([]changelog.Entry, error) {
	if d.changes == nil {
		return nil, nil
	}
	return d.changes.Recent(ctx, limit)
}

// Status reports the daemon's current state.
func (d *Daemon) Status() Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	return Status{
		State:        d.watcher.State().String(),
		Since:        d.started,
		Watching:     d.watcher.Watching(),
		Skipped:      d.watcher.Skipped(),
		LastSave:     d.lastSave,
		LastChange:   d.lastChange,
		AutoSaves:    d.autoSaves,
		ManualSaves:  d.manualSaves,
		ChangesSeen:  d.changesSeen,
		Environments: len(d.tracker.Baseline().Environments),
	}
}
