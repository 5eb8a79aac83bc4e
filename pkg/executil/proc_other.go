//go:build !unix

package executil

import (
	"os/exec"
	"syscall"
)

// killProcessGroup keeps the default exec.Cmd cancellation, which kills the
// direct child only.
func killProcessGroup(_ *exec.Cmd) {}

func signalOf(_ *exec.ExitError) (syscall.Signal, bool) {
	return 0, false
}
