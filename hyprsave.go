package hyprsave

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hyprsave/hyprsave/internal/compositor"
	cfg "github.com/hyprsave/hyprsave/internal/config"
	"github.com/hyprsave/hyprsave/internal/hook"
	"github.com/hyprsave/hyprsave/internal/logger"
	"github.com/hyprsave/hyprsave/internal/metrics"
	"github.com/hyprsave/hyprsave/internal/restore"
	"github.com/hyprsave/hyprsave/internal/snapshot"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type Snapshot = snapshot.Snapshot

type Application = snapshot.Application

type RestoreReport = restore.Report

type Monitor = compositor.Monitor

type Workspace = compositor.Workspace

type Window = compositor.Window

// Session is a thin facade over the capture and restore machinery.
// It provides a stable public API for embedding.
type Session struct {
	store    *snapshot.Store
	capturer *snapshot.Capturer
	restorer *restore.Restorer
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config { return cfg.Default() }

// LoadConfig loads and validates a TOML config file. Validation warnings are
// logged through log.
func LoadConfig(path string, log *slog.Logger) (Config, error) {
	c, warns, err := cfg.Load(path)
	if err != nil {
		return Config{}, err
	}
	for _, w := range warns {
		log.Warn(w.String())
	}
	return c, nil
}

// NewSession wires a Session against the live compositor using c's paths and
// hook registry.
func NewSession(c Config) (*Session, error) {
	log := logger.New(c.Log)
	registry := hook.NewRegistry()
	for _, h := range c.Hooks {
		if err := registry.Register(h.Name, h.Path, hook.Phase(h.Phase)); err != nil {
			return nil, err
		}
	}
	hooks := hook.NewExecutor(registry, c.HookTimeout, log)
	comp := compositor.NewIPCClient("", 5*time.Second)
	store := snapshot.NewStore(c.SnapshotDir(), c.BackupDir(), c.MaxBackups)
	return &Session{
		store:    store,
		capturer: snapshot.NewCapturer(comp, store, hooks, log),
		restorer: restore.NewRestorer(comp, store, hooks, c.LaunchDelay, log),
	}, nil
}

// Save captures the current session.
func (s *Session) Save(ctx context.Context) (*Snapshot, error) { return s.capturer.Capture(ctx) }

// Restore replays the stored session.
func (s *Session) Restore(ctx context.Context) (*RestoreReport, error) {
	return s.restorer.Restore(ctx)
}

// Saved reports whether a stored session exists.
func (s *Session) Saved() bool { return s.store.Exists() }

// Load reads the stored session without touching the compositor. The bool
// reports whether the stored checksums verified.
func (s *Session) Load() (*Snapshot, bool, error) { return s.store.Load() }

// Clean removes stale temporary files and prunes old backups.
func (s *Session) Clean() error { return s.store.Clean() }

// Metrics helpers (public facade)

func RegisterMetrics(r prometheus.Registerer) error { return metrics.Register(r) }
func RegisterMetricsDefault() error                 { return metrics.Register(prometheus.DefaultRegisterer) }

// MetricsHandler returns the Prometheus exposition handler for the default
// registry.
func MetricsHandler() http.Handler { return metrics.Handler() }
