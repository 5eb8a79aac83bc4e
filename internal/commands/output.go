package commands

import (
	"fmt"
	"io"

	"github.com/colonyops/wpforge/pkg/executil"
	"github.com/urfave/cli/v3"
)

// resultJSON is the wire form of an executil.Result.
type resultJSON struct {
	Command    string   `json:"command"`
	Args       []string `json:"args"`
	RunID      string   `json:"run_id,omitempty"`
	Completed  bool     `json:"completed"`
	Success    bool     `json:"success"`
	ExitCode   int      `json:"exit_code"`
	Stdout     string   `json:"stdout"`
	Stderr     string   `json:"stderr"`
	DurationMS int64    `json:"duration_ms"`
	Attempts   int      `json:"attempts"`
	Error      string   `json:"error,omitempty"`
}

func toResultJSON(res executil.Result) resultJSON {
	out := resultJSON{
		Command:    res.Command,
		Args:       res.Args,
		RunID:      res.RunID,
		Completed:  res.Completed,
		Success:    res.Success,
		ExitCode:   res.ExitCode,
		Stdout:     res.Stdout,
		Stderr:     res.Stderr,
		DurationMS: res.Duration.Milliseconds(),
		Attempts:   res.Attempts,
	}
	if out.Args == nil {
		out.Args = []string{}
	}
	if res.Err != nil {
		out.Error = res.Err.Error()
	}
	return out
}

// passthrough copies a result's output to the command's writers and maps
// its outcome onto the process exit code.
func passthrough(c *cli.Command, res executil.Result) error {
	writeOutput(c.Root().Writer, res.Stdout)
	writeOutput(c.Root().ErrWriter, res.Stderr)
	return exitStatus(res)
}

func writeOutput(w io.Writer, s string) {
	if s == "" {
		return
	}
	_, _ = io.WriteString(w, s)
	if s[len(s)-1] != '\n' {
		_, _ = fmt.Fprintln(w)
	}
}

// exitStatus returns nil for a successful result, the runner error for one
// that never completed, and an exit coder carrying the child's exit code
// otherwise.
func exitStatus(res executil.Result) error {
	switch {
	case res.Err != nil:
		return res.Err
	case !res.Success:
		code := res.ExitCode
		if code <= 0 {
			code = 1
		}
		return cli.Exit("", code)
	default:
		return nil
	}
}
