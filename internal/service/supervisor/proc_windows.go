//go:build windows

package supervisor

import (
	"os"
	"os/exec"
	"syscall"
)

// sysProcAttr detaches the child from the launcher's console window.
func sysProcAttr() *syscall.SysProcAttr {
	return &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}

// signalTerm kills the child outright; Windows has no cooperative SIGTERM.
func signalTerm(proc *os.Process) error {
	return proc.Kill()
}

// terminationSignal always reports a plain exit on Windows.
func terminationSignal(_ *exec.ExitError) string {
	return ""
}
