package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string
}

// DaemonFlags holds flags for the daemon subcommands.
type DaemonFlags struct {
	Foreground bool
	Force      bool
	LogFile    string
}

// SessionFlags holds flags for the session subcommands.
type SessionFlags struct {
	APIUrl string
	Local  bool
}

// buildRoot creates the root command and its subcommand tree.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	daemonFlags := &DaemonFlags{}
	sessionFlags := &SessionFlags{}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createDaemonCommand(globalFlags, daemonFlags),
		createSessionCommand(globalFlags, sessionFlags),
	)
	return root
}

func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "hyprsave",
		Short: "Hyprland session snapshot and restore",
		Long: `Hyprsave captures Hyprland sessions (monitors, workspaces, windows,
running applications) and restores them later. A background daemon watches
development environment directories and saves the session automatically when
impactful changes are detected.

Examples:
  hyprsave daemon start             # Start the watcher daemon in the background
  hyprsave session save             # Capture the current session
  hyprsave session restore          # Replay the stored session
  hyprsave session status           # Show stored session and environments`,
	}
	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	return root
}

func createDaemonCommand(globalFlags *GlobalFlags, daemonFlags *DaemonFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Control the background watcher daemon",
	}

	start := &cobra.Command{
		Use:   "start",
		Short: "Start the daemon",
		Long: `Start the watcher daemon. By default the process detaches and runs in
the background; use --foreground to keep it attached to the terminal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonStart(globalFlags.ConfigPath, daemonFlags)
		},
	}
	start.Flags().BoolVar(&daemonFlags.Foreground, "foreground", false, "stay attached instead of daemonizing")
	start.Flags().StringVar(&daemonFlags.LogFile, "logfile", "", "redirect daemon output to file")

	stop := &cobra.Command{
		Use:   "stop",
		Short: "Stop the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonStop(globalFlags.ConfigPath, daemonFlags.Force)
		},
	}
	stop.Flags().BoolVar(&daemonFlags.Force, "force", false, "kill without waiting for graceful shutdown")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show daemon status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonStatus(globalFlags.ConfigPath)
		},
	}

	restart := &cobra.Command{
		Use:   "restart",
		Short: "Restart the daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemonRestart(globalFlags.ConfigPath, daemonFlags)
		},
	}
	restart.Flags().BoolVar(&daemonFlags.Force, "force", false, "kill the old daemon without waiting")
	restart.Flags().StringVar(&daemonFlags.LogFile, "logfile", "", "redirect daemon output to file")

	cmd.AddCommand(start, stop, status, restart)
	return cmd
}

func createSessionCommand(globalFlags *GlobalFlags, sessionFlags *SessionFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Save, restore, and inspect sessions",
	}
	cmd.PersistentFlags().StringVar(&sessionFlags.APIUrl, "api-url", "", "daemon URL (e.g. http://127.0.0.1:8888/api)")
	cmd.PersistentFlags().BoolVar(&sessionFlags.Local, "local", false, "bypass the daemon and work directly")

	save := &cobra.Command{
		Use:   "save",
		Short: "Capture the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionSave(globalFlags.ConfigPath, sessionFlags)
		},
	}
	restoreCmd := &cobra.Command{
		Use:   "restore",
		Short: "Replay the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionRestore(globalFlags.ConfigPath, sessionFlags)
		},
	}
	status := &cobra.Command{
		Use:   "status",
		Short: "Show the stored session and tracked environments",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionStatus(globalFlags.ConfigPath, sessionFlags)
		},
	}
	clean := &cobra.Command{
		Use:   "clean",
		Short: "Remove stale temporary files and prune old backups",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessionClean(globalFlags.ConfigPath)
		},
	}
	cmd.AddCommand(save, restoreCmd, status, clean)
	return cmd
}
