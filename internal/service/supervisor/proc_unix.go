//go:build !windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"
)

// sysProcAttr places the child in its own process group so terminal signals
// aimed at the launcher do not reach the game.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{Setpgid: true}
}

// signalTerm asks the child to shut down cooperatively.
func signalTerm(proc *os.Process) error {
	return proc.Signal(syscall.SIGTERM)
}

// terminationSignal returns the name of the signal that killed the child,
// or an empty string for a plain exit.
func terminationSignal(err *exec.ExitError) string {
	status, ok := err.Sys().(syscall.WaitStatus)
	if !ok || !status.Signaled() {
		return ""
	}

	return status.Signal().String()
}
