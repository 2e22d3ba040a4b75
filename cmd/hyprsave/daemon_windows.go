//go:build windows

package main

import (
	"os"
	"os/exec"
	"syscall"

	"github.com/hyprsave/hyprsave/internal/config"
)

// configureDaemonAttrs sets Windows-specific daemon attributes
func configureDaemonAttrs(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP | 0x08000000, // CREATE_NO_WINDOW
	}
}

// processAlive reports whether a process with the given pid exists.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

// signalProcess delivers sig to the process with the given pid.
func signalProcess(pid int, sig syscall.Signal) error {
	p, err := os.FindProcess(pid)
	if err != nil {
		return err
	}
	if sig == syscall.SIGKILL {
		return p.Kill()
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
