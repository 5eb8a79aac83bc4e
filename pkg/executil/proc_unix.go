//go:build unix

package executil

import (
	"errors"
	"os/exec"
	"syscall"
)

// killProcessGroup runs the child in its own process group and makes context
// cancellation SIGKILL the whole group, so grandchildren holding the output
// pipes die with it.
func killProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if errors.Is(err, syscall.ESRCH) {
			return nil
		}
		return err
	}
}

// signalOf returns the signal that terminated the process, if any.
func signalOf(exitErr *exec.ExitError) (syscall.Signal, bool) {
	ws, ok := exitErr.Sys().(syscall.WaitStatus)
	if !ok || !ws.Signaled() {
		return 0, false
	}
	return ws.Signal(), true
}
