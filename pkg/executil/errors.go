package executil

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"syscall"
)

var (
	// ErrCommandNotFound means the executable could not be located. Terminal.
	ErrCommandNotFound = errors.New("command not found")
	// ErrPermissionDenied means the executable could not be launched. Terminal.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrTimeout means an attempt exceeded its deadline and was killed. Retryable.
	ErrTimeout = errors.New("command timed out")
	// ErrRetryExhausted wraps the last failure once every permitted attempt failed.
	ErrRetryExhausted = errors.New("retries exhausted")
)

// SignalError reports a process that was terminated by a signal instead of
// exiting on its own.
type SignalError struct {
	Signal os.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("terminated by signal: %s", e.Signal)
}

// stderr substrings that mark failures against containers or resources that
// will not appear by retrying.
var terminalStderr = []string{
	"no such container",
	"not found",
}

// IsTerminal reports whether a failed attempt should not be retried.
func IsTerminal(err error, stderr string) bool {
	if err == nil {
		return false
	}

	switch {
	case errors.Is(err, ErrCommandNotFound),
		errors.Is(err, ErrPermissionDenied),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return true
	}

	var sigErr *SignalError
	if errors.As(err, &sigErr) {
		if sigErr.Signal == syscall.SIGTERM || sigErr.Signal == syscall.SIGKILL {
			return true
		}
	}

	lower := strings.ToLower(stderr)
	for _, s := range terminalStderr {
		if strings.Contains(lower, s) {
			return true
		}
	}

	return false
}

// classifyStartErr maps a failure from exec.Cmd.Start onto the taxonomy.
func classifyStartErr(command string, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("%w: %s: %w", ErrCommandNotFound, command, err)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %s: %w", ErrPermissionDenied, command, err)
	default:
		return fmt.Errorf("start %s: %w", command, err)
	}
}
