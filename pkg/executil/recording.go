package executil

import (
	"context"
	"strings"
	"sync"
	"time"
)

// RecordedCommand captures a command that was executed.
type RecordedCommand struct {
	Dir     string
	Cmd     string
	Args    []string
	Env     map[string]string
	Timeout time.Duration
	Retries int
	Stream  bool
}

// Line returns the command and its arguments joined by spaces.
func (c RecordedCommand) Line() string {
	if len(c.Args) == 0 {
		return c.Cmd
	}
	return c.Cmd + " " + strings.Join(c.Args, " ")
}

// RecordingExecutor captures commands for testing.
// Configure Results to control return values.
type RecordingExecutor struct {
	mu       sync.Mutex
	Commands []RecordedCommand

	// Results maps a full command line ("docker compose ps -q web") or a bare
	// command name ("docker") to the Result to return. The full line wins.
	// Unmatched commands return a successful, empty Result.
	Results map[string]Result

	// StreamChunks are delivered to the ExecuteStream callback in order.
	StreamChunks []string
}

var _ Executor = (*RecordingExecutor)(nil)

// Execute records the command and returns the configured Result.
func (e *RecordingExecutor) Execute(ctx context.Context, cmd string, args []string, opts ...Option) Result {
	req, err := NewRequest(cmd, args, opts...)
	if err != nil {
		return failedResult(cmd, args, err)
	}
	return e.record(req, false)
}

// ExecuteStream records the command, replays StreamChunks to onStdout and
// returns the configured Result.
func (e *RecordingExecutor) ExecuteStream(ctx context.Context, onStdout func([]byte), cmd string, args []string, opts ...Option) Result {
	req, err := NewRequest(cmd, args, opts...)
	if err != nil {
		return failedResult(cmd, args, err)
	}

	e.mu.Lock()
	chunks := e.StreamChunks
	e.mu.Unlock()

	for _, c := range chunks {
		if onStdout != nil {
			onStdout([]byte(c))
		}
	}
	return e.record(req, true)
}

func (e *RecordingExecutor) record(req Request, stream bool) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	rc := RecordedCommand{
		Dir:     req.Dir,
		Cmd:     req.Command,
		Args:    req.Args,
		Env:     req.Env,
		Timeout: req.Timeout,
		Retries: req.Retries,
		Stream:  stream,
	}
	e.Commands = append(e.Commands, rc)

	res, ok := e.Results[rc.Line()]
	if !ok {
		res, ok = e.Results[rc.Cmd]
	}
	if !ok {
		res = Result{Completed: true, Success: true}
	}

	res.Command = req.Command
	res.Args = req.Args
	if res.Attempts == 0 {
		res.Attempts = 1
	}
	return res
}

// Reset clears recorded commands.
func (e *RecordingExecutor) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Commands = nil
}
