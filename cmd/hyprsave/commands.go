package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hyprsave/hyprsave/internal/changelog"
	_ "github.com/hyprsave/hyprsave/internal/changelog/postgres"
	_ "github.com/hyprsave/hyprsave/internal/changelog/sqlite"
	"github.com/hyprsave/hyprsave/internal/compositor"
	"github.com/hyprsave/hyprsave/internal/config"
	"github.com/hyprsave/hyprsave/internal/daemon"
	"github.com/hyprsave/hyprsave/internal/envscan"
	"github.com/hyprsave/hyprsave/internal/hook"
	"github.com/hyprsave/hyprsave/internal/logger"
	"github.com/hyprsave/hyprsave/internal/metrics"
	"github.com/hyprsave/hyprsave/internal/notify"
	"github.com/hyprsave/hyprsave/internal/restore"
	"github.com/hyprsave/hyprsave/internal/server"
	"github.com/hyprsave/hyprsave/internal/snapshot"
	"github.com/hyprsave/hyprsave/internal/watch"
	"github.com/hyprsave/hyprsave/pkg/client"
)

const defaultListen = "127.0.0.1:8888"

// loadConfig resolves the config file and folds it onto defaults. A missing
// file is not an error; validation warnings go to stderr.
func loadConfig(path string) (config.Config, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err == nil {
			candidate := filepath.Join(home, ".config", "hyprsave", "config.toml")
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
			}
		}
	}
	if path == "" {
		cfg := config.Default()
		cfg.Log.Dir = filepath.Join(cfg.SessionDir, "logs")
		return cfg, nil
	}
	cfg, warns, err := config.Load(path)
	if err != nil {
		return config.Config{}, err
	}
	for _, w := range warns {
		_, _ = fmt.Fprintln(os.Stderr, w.String())
	}
	return cfg, nil
}

// components bundles everything a save or restore needs.
type components struct {
	cfg      config.Config
	log      *slog.Logger
	store    *snapshot.Store
	capturer *snapshot.Capturer
	restorer *restore.Restorer
}

func buildComponents(cfg config.Config, log *slog.Logger) (*components, error) {
	registry := hook.NewRegistry()
	for _, h := range cfg.Hooks {
		if err := registry.Register(h.Name, h.Path, hook.Phase(h.Phase)); err != nil {
			return nil, fmt.Errorf("hook %s: %w", h.Name, err)
		}
	}
	hooks := hook.NewExecutor(registry, cfg.HookTimeout, log)

	comp := compositor.NewIPCClient("", 5*time.Second)
	store := snapshot.NewStore(cfg.SnapshotDir(), cfg.BackupDir(), cfg.MaxBackups)
	capturer := snapshot.NewCapturer(comp, store, hooks, log)
	restorer := restore.NewRestorer(comp, store, hooks, cfg.LaunchDelay, log)

	return &components{cfg: cfg, log: log, store: store, capturer: capturer, restorer: restorer}, nil
}

// apiClient builds the daemon API client from config or an explicit URL.
func apiClient(cfg config.Config, apiURL string) *client.Client {
	if apiURL == "" {
		listen := defaultListen
		basePath := ""
		if cfg.Server != nil {
			if cfg.Server.Listen != "" {
				listen = cfg.Server.Listen
			}
			basePath = cfg.Server.BasePath
		}
		apiURL = "http://" + listen + basePath
	}
	return client.New(client.Config{BaseURL: apiURL})
}

func runDaemonStart(configPath string, flags *DaemonFlags) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if pid, alive := daemonPid(cfg); alive {
		return fmt.Errorf("daemon already running (pid %d)", pid)
	}
	if !flags.Foreground {
		return daemonize(cfg.PidFilePath(), flags.LogFile)
	}

	if err := os.MkdirAll(cfg.SessionDir, 0o750); err != nil {
		return err
	}
	log := logger.New(cfg.Log)
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		log.Warn("metrics registration failed", "err", err)
	}

	comps, err := buildComponents(cfg, log)
	if err != nil {
		return err
	}

	location := cfg.ChangelogPath()
	if cfg.Changelog.Backend == "postgres" {
		location = cfg.Changelog.DSN
	}
	changes, err := changelog.Open(cfg.Changelog.Backend, location)
	if err != nil {
		return fmt.Errorf("open changelog: %w", err)
	}
	defer func() { _ = changes.Close() }()
	if err := changes.EnsureSchema(context.Background()); err != nil {
		return fmt.Errorf("changelog schema: %w", err)
	}

	watcher := watch.NewManager(cfg.WatchDirs, cfg.MaxMonitors, log)
	scanner := envscan.NewScanner(cfg.WatchDirs, os.Environ())
	tracker := envscan.NewTracker(scanner, cfg.BaselinePath(), log)
	notifier := notify.New(cfg.Notifications, log)
	d := daemon.New(cfg, comps.capturer, comps.restorer, watcher, tracker, changes, notifier, log)

	listen := defaultListen
	basePath := ""
	if cfg.Server != nil {
		if cfg.Server.Listen != "" {
			listen = cfg.Server.Listen
		}
		basePath = cfg.Server.BasePath
	}
	srv, err := server.NewServer(listen, basePath, d)
	if err != nil {
		return fmt.Errorf("start server: %w", err)
	}
	log.Info("api listening", "addr", listen, "base_path", basePath)

	if err := writePidFile(cfg.PidFilePath(), os.Getpid()); err != nil {
		return fmt.Errorf("write pidfile: %w", err)
	}
	defer func() { _ = removePidFile(cfg.PidFilePath()) }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runErr := d.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	return runErr
}

func runDaemonStop(configPath string, force bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	pid, alive := daemonPid(cfg)
	if !alive {
		fmt.Println("daemon not running")
		_ = removePidFile(cfg.PidFilePath())
		return nil
	}

	sig := syscall.SIGTERM
	if force {
		sig = syscall.SIGKILL
	}
	if err := signalProcess(pid, sig); err != nil {
		return fmt.Errorf("signal daemon (pid %d): %w", pid, err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for processAlive(pid) {
		if time.Now().After(deadline) {
			if force {
				return fmt.Errorf("daemon (pid %d) did not exit", pid)
			}
			fmt.Println("daemon did not stop in time; retry with --force")
			return nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	_ = removePidFile(cfg.PidFilePath())
	fmt.Printf("daemon stopped (pid %d)\n", pid)
	return nil
}

func runDaemonStatus(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	api := apiClient(cfg, "")
	if st, err := api.Status(ctx); err == nil {
		fmt.Printf("state:        %s\n", st.State)
		fmt.Printf("since:        %s\n", st.Since.Format(time.RFC3339))
		fmt.Printf("watching:     %d dirs\n", len(st.Watching))
		for _, d := range st.Watching {
			fmt.Printf("  %s\n", d)
		}
		if len(st.Skipped) > 0 {
			fmt.Printf("skipped:      %d dirs\n", len(st.Skipped))
		}
		if !st.LastSave.IsZero() {
			fmt.Printf("last save:    %s\n", st.LastSave.Format(time.RFC3339))
		}
		if st.LastChange != "" {
			fmt.Printf("last change:  %s\n", st.LastChange)
		}
		fmt.Printf("saves:        %d auto, %d manual\n", st.AutoSaves, st.ManualSaves)
		fmt.Printf("changes seen: %d\n", st.ChangesSeen)
		fmt.Printf("environments: %d\n", st.Environments)
		return nil
	}

	if pid, alive := daemonPid(cfg); alive {
		fmt.Printf("daemon running (pid %d) but API not reachable\n", pid)
		return nil
	}
	fmt.Println("daemon not running")
	return nil
}

func runDaemonRestart(configPath string, flags *DaemonFlags) error {
	if err := runDaemonStop(configPath, flags.Force); err != nil {
		return err
	}
	start := *flags
	start.Foreground = false
	return runDaemonStart(configPath, &start)
}

func runSessionSave(configPath string, flags *SessionFlags) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	if !flags.Local {
		api := apiClient(cfg, flags.APIUrl)
		if api.IsReachable(ctx) {
			res, err := api.Save(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("session saved via daemon: %d windows at %s\n", res.Windows, res.Timestamp.Format(time.RFC3339))
			return nil
		}
	}

	comps, err := buildComponents(cfg, logger.New(cfg.Log))
	if err != nil {
		return err
	}
	snap, err := comps.capturer.Capture(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("session saved: %d monitors, %d workspaces, %d windows\n",
		len(snap.Monitors), len(snap.Workspaces), len(snap.Windows))
	return nil
}

func runSessionRestore(configPath string, flags *SessionFlags) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if !flags.Local {
		api := apiClient(cfg, flags.APIUrl)
		if api.IsReachable(ctx) {
			res, err := api.Restore(ctx)
			if err != nil {
				return err
			}
			printRestoreOutcome(res.Found, res.Expected, res.Launched, res.Warnings)
			return nil
		}
	}

	comps, err := buildComponents(cfg, logger.New(cfg.Log))
	if err != nil {
		return err
	}
	rep, err := comps.restorer.Restore(ctx)
	if err != nil {
		return err
	}
	printRestoreOutcome(rep.FoundWindows, rep.ExpectedWindows, rep.Launched, rep.Warnings)
	return nil
}

func printRestoreOutcome(found, expected, launched int, warnings []string) {
	fmt.Printf("session restored: %d/%d windows, %d applications launched\n", found, expected, launched)
	for _, w := range warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

// runSessionStatus prints what is known about the stored session and the
// tracked environments. It always exits 0; absence of a session is a normal
// answer, not a failure.
func runSessionStatus(configPath string, flags *SessionFlags) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	store := snapshot.NewStore(cfg.SnapshotDir(), cfg.BackupDir(), cfg.MaxBackups)
	if !store.Exists() {
		fmt.Println("no session saved")
	} else if snap, verified, err := store.Load(); err != nil {
		fmt.Printf("stored session unreadable: %v\n", err)
	} else {
		fmt.Printf("saved:        %s\n", snap.Timestamp.Format(time.RFC3339))
		fmt.Printf("monitors:     %d\n", len(snap.Monitors))
		fmt.Printf("workspaces:   %d\n", len(snap.Workspaces))
		fmt.Printf("windows:      %d\n", len(snap.Windows))
		fmt.Printf("applications: %d\n", len(snap.Applications))
		if !verified {
			fmt.Println("warning: snapshot checksums do not match the manifest")
		}
	}

	envs := envscan.NewScanner(cfg.WatchDirs, os.Environ()).Scan()
	if len(envs) > 0 {
		fmt.Printf("environments: %d\n", len(envs))
		for _, e := range envs {
			fmt.Printf("  %-9s %-20s %s\n", e.Type, e.Name, e.Status)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if apiClient(cfg, flags.APIUrl).IsReachable(ctx) {
		fmt.Println("daemon:       running")
	} else {
		fmt.Println("daemon:       not running")
	}
	return nil
}

func runSessionClean(configPath string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	store := snapshot.NewStore(cfg.SnapshotDir(), cfg.BackupDir(), cfg.MaxBackups)
	if err := store.Clean(); err != nil {
		return err
	}
	fmt.Println("session directory cleaned")
	return nil
}
