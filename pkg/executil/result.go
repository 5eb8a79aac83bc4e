package executil

import (
	"fmt"
	"strings"
	"time"
)

// Result is the outcome of a request. It is produced once and never mutated
// after it is returned.
//
// Completed and Success are deliberately separate: a command that ran and
// exited 1 is Completed but not Success. Callers that need a zero exit must
// check Success.
type Result struct {
	Command   string
	Args      []string
	RunID     string
	Completed bool
	Success   bool
	ExitCode  int // -1 when the process never produced one
	Stdout    string
	Stderr    string
	Duration  time.Duration
	Attempts  int
	Err       error // last attempt failure; nil when Completed
}

// failedResult builds a Result for a request that never got to run.
func failedResult(command string, args []string, err error) Result {
	return Result{
		Command:  command,
		Args:     args,
		ExitCode: -1,
		Err:      err,
	}
}

// ExitError is returned by Result.Output for a command that completed with a
// non-zero exit code.
type ExitError struct {
	Command  string
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// Output collapses the result into the common "stdout or error" shape: the
// runner error when the command never completed, an *ExitError when it
// exited non-zero, and stdout otherwise.
func (r Result) Output() (string, error) {
	switch {
	case r.Err != nil:
		return r.Stdout, r.Err
	case !r.Success:
		return r.Stdout, &ExitError{Command: r.Command, ExitCode: r.ExitCode, Stderr: r.Stderr}
	default:
		return r.Stdout, nil
	}
}
