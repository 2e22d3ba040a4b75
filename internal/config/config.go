package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hyprsave/hyprsave/internal/logger"
	"github.com/spf13/viper"
)

// Defaults applied when a setting is absent or fails validation.
const (
	DefaultScanInterval    = 5 * time.Minute
	DefaultImpactThreshold = 2
	DefaultMaxMonitors     = 8
	DefaultLaunchDelay     = 500 * time.Millisecond
	DefaultHookTimeout     = 30 * time.Second
	DefaultMaxBackups      = 10
)

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	SessionDir      string           `toml:"session_dir" mapstructure:"session_dir"`
	ScanInterval    time.Duration    `toml:"scan_interval" mapstructure:"scan_interval"`
	ImpactThreshold int              `toml:"impact_threshold" mapstructure:"impact_threshold"`
	AutoSave        *bool            `toml:"auto_save" mapstructure:"auto_save"`
	Notifications   *bool            `toml:"notifications" mapstructure:"notifications"`
	WatchDirs       []string         `toml:"watch_dirs" mapstructure:"watch_dirs"`
	MaxMonitors     int              `toml:"max_monitors" mapstructure:"max_monitors"`
	LaunchDelay     time.Duration    `toml:"launch_delay" mapstructure:"launch_delay"`
	HookTimeout     time.Duration    `toml:"hook_timeout" mapstructure:"hook_timeout"`
	MaxBackups      int              `toml:"max_backups" mapstructure:"max_backups"`
	Log             *LogConfig       `toml:"log" mapstructure:"log"`
	Server          *ServerConfig    `toml:"server" mapstructure:"server"`
	Changelog       *ChangelogConfig `toml:"changelog" mapstructure:"changelog"`
	Hooks           []HookEntry      `toml:"hooks" mapstructure:"hooks"`
}

type LogConfig struct {
	Dir        string `toml:"dir" mapstructure:"dir"`
	Path       string `toml:"path" mapstructure:"path"`
	Level      string `toml:"level" mapstructure:"level"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

type ServerConfig struct {
	Listen   string `toml:"listen" mapstructure:"listen"`
	BasePath string `toml:"base_path" mapstructure:"base_path"`
	PidFile  string `toml:"pidfile" mapstructure:"pidfile"`
	LogFile  string `toml:"logfile" mapstructure:"logfile"`
}

type ChangelogConfig struct {
	Backend string `toml:"backend" mapstructure:"backend"` // sqlite (default) or postgres
	Path    string `toml:"path" mapstructure:"path"`       // sqlite file path
	DSN     string `toml:"dsn" mapstructure:"dsn"`         // postgres DSN
}

// HookEntry declares one external hook executable in the registry.
type HookEntry struct {
	Name  string `toml:"name" mapstructure:"name"`
	Path  string `toml:"path" mapstructure:"path"`
	Phase string `toml:"phase" mapstructure:"phase"` // pre-save or post-restore
}

// Config is the validated runtime configuration. It is constructed once at
// startup and passed to every component constructor; no component reads
// ambient globals.
type Config struct {
	SessionDir      string
	ScanInterval    time.Duration
	ImpactThreshold int
	AutoSave        bool
	Notifications   bool
	WatchDirs       []string
	MaxMonitors     int
	LaunchDelay     time.Duration
	HookTimeout     time.Duration
	MaxBackups      int
	Log             logger.Config
	Server          *ServerConfig
	Changelog       ChangelogConfig
	Hooks           []HookEntry
}

// Warning records a setting that failed validation and the default that
// replaced it. Invalid settings never abort the load.
type Warning struct {
	Setting string
	Value   any
	Reason  string
}

func (w Warning) String() string {
	return fmt.Sprintf("config: %s=%v invalid (%s), using default", w.Setting, w.Value, w.Reason)
}

// Default returns the configuration used when no file is present.
func Default() Config {
	home, _ := os.UserHomeDir()
	sessionDir := filepath.Join(home, ".config", "hyprsave")
	return Config{
		SessionDir:      sessionDir,
		ScanInterval:    DefaultScanInterval,
		ImpactThreshold: DefaultImpactThreshold,
		AutoSave:        true,
		Notifications:   true,
		MaxMonitors:     DefaultMaxMonitors,
		LaunchDelay:     DefaultLaunchDelay,
		HookTimeout:     DefaultHookTimeout,
		MaxBackups:      DefaultMaxBackups,
		Changelog:       ChangelogConfig{Backend: "sqlite"},
	}
}

// Load parses the TOML file at path and validates it. Invalid values fall
// back to defaults and are reported as warnings; only an unreadable or
// unparseable file is an error.
func Load(path string) (Config, []Warning, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return Config{}, nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return Config{}, nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	cfg, warns := fc.validate()
	return cfg, warns, nil
}

// validate folds FileConfig onto defaults, collecting a warning for every
// value that is out of range.
func (fc FileConfig) validate() (Config, []Warning) {
	cfg := Default()
	var warns []Warning

	if fc.SessionDir != "" {
		if filepath.IsAbs(fc.SessionDir) {
			cfg.SessionDir = filepath.Clean(fc.SessionDir)
		} else {
			warns = append(warns, Warning{"session_dir", fc.SessionDir, "must be absolute"})
		}
	}
	if fc.ScanInterval != 0 {
		if fc.ScanInterval >= time.Second {
			cfg.ScanInterval = fc.ScanInterval
		} else {
			warns = append(warns, Warning{"scan_interval", fc.ScanInterval, "must be >= 1s"})
		}
	}
	if fc.ImpactThreshold != 0 {
		if fc.ImpactThreshold > 0 {
			cfg.ImpactThreshold = fc.ImpactThreshold
		} else {
			warns = append(warns, Warning{"impact_threshold", fc.ImpactThreshold, "must be > 0"})
		}
	}
	if fc.AutoSave != nil {
		cfg.AutoSave = *fc.AutoSave
	}
	if fc.Notifications != nil {
		cfg.Notifications = *fc.Notifications
	}
	for _, d := range fc.WatchDirs {
		if filepath.IsAbs(d) {
			cfg.WatchDirs = append(cfg.WatchDirs, filepath.Clean(d))
		} else {
			warns = append(warns, Warning{"watch_dirs", d, "must be absolute"})
		}
	}
	if fc.MaxMonitors != 0 {
		if fc.MaxMonitors > 0 {
			cfg.MaxMonitors = fc.MaxMonitors
		} else {
			warns = append(warns, Warning{"max_monitors", fc.MaxMonitors, "must be > 0"})
		}
	}
	if fc.LaunchDelay != 0 {
		if fc.LaunchDelay > 0 {
			cfg.LaunchDelay = fc.LaunchDelay
		} else {
			warns = append(warns, Warning{"launch_delay", fc.LaunchDelay, "must be > 0"})
		}
	}
	if fc.HookTimeout != 0 {
		if fc.HookTimeout > 0 && fc.HookTimeout <= time.Hour {
			cfg.HookTimeout = fc.HookTimeout
		} else {
			warns = append(warns, Warning{"hook_timeout", fc.HookTimeout, "must be in (0, 1h]"})
		}
	}
	if fc.MaxBackups != 0 {
		if fc.MaxBackups > 0 {
			cfg.MaxBackups = fc.MaxBackups
		} else {
			warns = append(warns, Warning{"max_backups", fc.MaxBackups, "must be > 0"})
		}
	}
	if fc.Log != nil {
		cfg.Log = logger.Config{
			Dir:        fc.Log.Dir,
			Path:       fc.Log.Path,
			Level:      fc.Log.Level,
			MaxSizeMB:  fc.Log.MaxSizeMB,
			MaxBackups: fc.Log.MaxBackups,
			MaxAgeDays: fc.Log.MaxAgeDays,
			Compress:   fc.Log.Compress,
		}
		switch fc.Log.Level {
		case "", "debug", "info", "warn", "error":
		default:
			warns = append(warns, Warning{"log.level", fc.Log.Level, "unknown level"})
			cfg.Log.Level = ""
		}
	}
	cfg.Server = fc.Server
	if fc.Changelog != nil {
		switch fc.Changelog.Backend {
		case "", "sqlite", "postgres":
			cfg.Changelog = *fc.Changelog
			if cfg.Changelog.Backend == "" {
				cfg.Changelog.Backend = "sqlite"
			}
		default:
			warns = append(warns, Warning{"changelog.backend", fc.Changelog.Backend, "must be sqlite or postgres"})
		}
	}
	for _, h := range fc.Hooks {
		switch {
		case h.Name == "":
			warns = append(warns, Warning{"hooks", h.Path, "hook requires name"})
		case h.Path == "":
			warns = append(warns, Warning{"hooks", h.Name, "hook requires path"})
		case h.Phase != "pre-save" && h.Phase != "post-restore":
			warns = append(warns, Warning{"hooks", h.Name, "phase must be pre-save or post-restore"})
		default:
			cfg.Hooks = append(cfg.Hooks, h)
		}
	}
	if cfg.Log.Dir == "" && cfg.Log.Path == "" {
		cfg.Log.Dir = filepath.Join(cfg.SessionDir, "logs")
	}
	return cfg, warns
}

// SnapshotDir is the directory holding the current snapshot facet documents.
func (c Config) SnapshotDir() string { return filepath.Join(c.SessionDir, "snapshot") }

// BackupDir holds superseded snapshot sets, pruned to MaxBackups.
func (c Config) BackupDir() string { return filepath.Join(c.SessionDir, "backups") }

// BaselinePath is the persisted environment baseline document.
func (c Config) BaselinePath() string { return filepath.Join(c.SessionDir, "baseline.json") }

// PidFilePath is the daemon pidfile unless overridden by [server].pidfile.
func (c Config) PidFilePath() string {
	if c.Server != nil && c.Server.PidFile != "" {
		return c.Server.PidFile
	}
	return filepath.Join(c.SessionDir, "daemon.pid")
}

// ChangelogPath is the sqlite audit log location when no explicit path is set.
func (c Config) ChangelogPath() string {
	if c.Changelog.Path != "" {
		return c.Changelog.Path
	}
	return filepath.Join(c.SessionDir, "changes.db")
}
