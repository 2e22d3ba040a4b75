//go:build !windows

package main

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/hyprsave/hyprsave/internal/config"
)

// configureDaemonAttrs sets Unix-specific daemon attributes
func configureDaemonAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true, // Create new session
	}
}

// processAlive reports whether a process with the given pid exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return syscall.Kill(pid, 0) == nil
}

// signalProcess delivers sig to the process with the given pid.
func signalProcess(pid int, sig syscall.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	return p.Signal(sig)
}

// daemonPid returns the recorded daemon pid and whether that process is
// still alive.
func daemonPid(cfg config.Config) (int, bool) {
	pid, err := readPidFile(cfg.PidFilePath())
	if err != nil {
		return 0, false
	}
	return pid, processAlive(pid)
}
