// Package executil runs external programs and captures their outcome, with
// per-attempt timeouts and bounded exponential-backoff retries.
package executil

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultProbeTimeout = 5 * time.Second
	defaultMaxOutput    = 16 << 20

	// waitDelay bounds how long Wait keeps reading output after the process
	// has exited or been killed.
	waitDelay = 500 * time.Millisecond

	streamChunkSize = 32 << 10
)

var tracer = otel.Tracer("github.com/colonyops/wpforge/pkg/executil")

// Executor runs external commands. Implementations never return an error for
// an ordinary command failure; the outcome is described by the Result.
type Executor interface {
	// Execute runs a command with retries and buffers its output.
	Execute(ctx context.Context, cmd string, args []string, opts ...Option) Result
	// ExecuteStream runs a command once, passing stdout chunks to onStdout as
	// they arrive.
	ExecuteStream(ctx context.Context, onStdout func([]byte), cmd string, args []string, opts ...Option) Result
}

// Defaults are the runner-wide values used when a request leaves a field unset.
type Defaults struct {
	Timeout        time.Duration
	ProbeTimeout   time.Duration
	MaxOutputBytes int64
	Retry          RetryPolicy
}

// Runner is the Executor backed by os/exec. It holds only immutable
// configuration and is safe for concurrent use.
type Runner struct {
	defaults Defaults
	log      zerolog.Logger
}

var _ Executor = (*Runner)(nil)

// NewRunner creates a Runner. Zero-valued defaults fall back to built-in values.
func NewRunner(defaults Defaults, logger zerolog.Logger) *Runner {
	if defaults.Timeout <= 0 {
		defaults.Timeout = defaultTimeout
	}
	if defaults.ProbeTimeout <= 0 {
		defaults.ProbeTimeout = defaultProbeTimeout
	}
	if defaults.MaxOutputBytes <= 0 {
		defaults.MaxOutputBytes = defaultMaxOutput
	}
	defaults.Retry = defaults.Retry.normalized()

	return &Runner{defaults: defaults, log: logger}
}

// Defaults returns the resolved runner defaults.
func (r *Runner) Defaults() Defaults {
	return r.defaults
}

// Execute builds a request from its arguments and runs it. Invalid options
// produce a Result with zero attempts and Err set.
func (r *Runner) Execute(ctx context.Context, cmd string, args []string, opts ...Option) Result {
	req, err := NewRequest(cmd, args, opts...)
	if err != nil {
		return failedResult(cmd, args, err)
	}
	return r.Run(ctx, req)
}

// Run executes the request, retrying failed attempts until one completes,
// a terminal error occurs, or the retry budget is spent.
//
// An attempt completes when the process exits with any exit code. Spawn
// failures, timeouts and signal terminations are failures and go through
// IsTerminal before another attempt is made.
func (r *Runner) Run(ctx context.Context, req Request) Result {
	timeout, retries := r.resolve(req)
	runID := uuid.NewString()
	log := r.log.With().Ctx(ctx).Str("run_id", runID).Str("cmd", req.Command).Logger()

	ctx, span := tracer.Start(ctx, "executil.run", trace.WithAttributes(
		attribute.String("exec.command", req.Command),
		attribute.StringSlice("exec.args", req.Args),
		attribute.Int("exec.retries", retries),
	))
	defer span.End()

	start := time.Now()
	bo := r.defaults.Retry.backOff()
	maxAttempts := retries + 1

	var (
		last     attemptResult
		attempts int
	)

	for attempts = 1; attempts <= maxAttempts; attempts++ {
		log.Debug().
			Strs("args", req.Args).
			Int("attempt", attempts).
			Int("max_attempts", maxAttempts).
			Dur("timeout", timeout).
			Msg("executing command")

		last = r.attempt(ctx, req, timeout, nil)
		if last.completed {
			res := last.result(req, runID, attempts, time.Since(start))
			log.Debug().
				Int("attempt", attempts).
				Int("exit_code", res.ExitCode).
				Dur("duration", res.Duration).
				Msg("command completed")
			span.SetAttributes(attribute.Int("exec.exit_code", res.ExitCode), attribute.Int("exec.attempts", attempts))
			return res
		}

		if IsTerminal(last.err, last.stderr) {
			log.Debug().Err(last.err).Int("attempt", attempts).Msg("terminal failure, not retrying")
			break
		}

		if attempts == maxAttempts {
			// A single permitted attempt never retried, so it keeps its own cause.
			if maxAttempts > 1 {
				last.err = fmt.Errorf("%w after %d attempts: %w", ErrRetryExhausted, attempts, last.err)
			}
			break
		}

		delay := bo.NextBackOff()
		log.Warn().
			Err(last.err).
			Int("attempt", attempts).
			Dur("delay", delay).
			Msg("command failed, retrying")

		if err := sleep(ctx, delay); err != nil {
			last.err = fmt.Errorf("retry wait: %w", err)
			break
		}
	}

	res := last.result(req, runID, attempts, time.Since(start))

	log.Warn().
		Err(res.Err).
		Strs("args", req.Args).
		Int("attempts", attempts).
		Int("exit_code", res.ExitCode).
		Msg("command failed")
	span.RecordError(res.Err)
	span.SetStatus(codes.Error, "command failed")
	span.SetAttributes(attribute.Int("exec.attempts", attempts))

	return res
}

// ExecuteStream runs a single attempt, invoking onStdout synchronously with
// each chunk of standard output as it is read. The chunk is only valid for
// the duration of the callback. onStdout is never called after ExecuteStream
// returns. Retries are not applied: re-running a partially observed stream is
// ambiguous.
func (r *Runner) ExecuteStream(ctx context.Context, onStdout func([]byte), cmd string, args []string, opts ...Option) Result {
	req, err := NewRequest(cmd, args, opts...)
	if err != nil {
		return failedResult(cmd, args, err)
	}
	if onStdout == nil {
		onStdout = func([]byte) {}
	}

	timeout, _ := r.resolve(req)
	runID := uuid.NewString()
	log := r.log.With().Ctx(ctx).Str("run_id", runID).Str("cmd", req.Command).Logger()

	ctx, span := tracer.Start(ctx, "executil.stream", trace.WithAttributes(
		attribute.String("exec.command", req.Command),
		attribute.StringSlice("exec.args", req.Args),
	))
	defer span.End()

	log.Debug().Strs("args", req.Args).Dur("timeout", timeout).Msg("streaming command")

	start := time.Now()
	last := r.attempt(ctx, req, timeout, onStdout)
	res := last.result(req, runID, 1, time.Since(start))

	if !res.Completed {
		log.Warn().Err(res.Err).Msg("streamed command failed")
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, "command failed")
	} else {
		log.Debug().Int("exit_code", res.ExitCode).Dur("duration", res.Duration).Msg("streamed command completed")
	}

	return res
}

// CommandExists reports whether name resolves to an executable on PATH. It
// runs `which` once with the probe timeout and falls back to exec.LookPath
// when `which` itself is unavailable.
func (r *Runner) CommandExists(ctx context.Context, name string) bool {
	res := r.Execute(ctx, "which", []string{name},
		WithRetries(0),
		WithTimeout(r.defaults.ProbeTimeout),
	)
	if errors.Is(res.Err, ErrCommandNotFound) {
		_, err := exec.LookPath(name)
		return err == nil
	}
	return res.Success
}

func (r *Runner) resolve(req Request) (time.Duration, int) {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = r.defaults.Timeout
	}
	retries := req.Retries
	if retries == UseDefault {
		retries = r.defaults.Retry.MaxRetries
	}
	return timeout, retries
}

type attemptResult struct {
	completed bool
	exitCode  int
	stdout    string
	stderr    string
	err       error
}

func (a attemptResult) result(req Request, runID string, attempts int, elapsed time.Duration) Result {
	return Result{
		Command:   req.Command,
		Args:      req.Args,
		RunID:     runID,
		Completed: a.completed,
		Success:   a.completed && a.exitCode == 0,
		ExitCode:  a.exitCode,
		Stdout:    a.stdout,
		Stderr:    a.stderr,
		Duration:  elapsed,
		Attempts:  attempts,
		Err:       a.err,
	}
}

// attempt spawns the process once and waits up to timeout for it to exit.
func (r *Runner) attempt(ctx context.Context, req Request, timeout time.Duration, onStdout func([]byte)) attemptResult {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	c := exec.CommandContext(attemptCtx, req.Command, req.Args...)
	c.Dir = req.Dir
	c.Env = req.environ()
	c.WaitDelay = waitDelay
	killProcessGroup(c)

	var outBuf, errBuf bytes.Buffer
	stdout := &limitedWriter{buf: &outBuf, max: r.defaults.MaxOutputBytes}
	c.Stderr = &limitedWriter{buf: &errBuf, max: r.defaults.MaxOutputBytes}

	var pipe io.ReadCloser
	if onStdout == nil {
		c.Stdout = stdout
	} else {
		p, err := c.StdoutPipe()
		if err != nil {
			return attemptResult{exitCode: -1, err: fmt.Errorf("stdout pipe: %w", err)}
		}
		pipe = p
	}

	if err := c.Start(); err != nil {
		return attemptResult{exitCode: -1, err: classifyStartErr(req.Command, err)}
	}

	if pipe != nil {
		buf := make([]byte, streamChunkSize)
		for {
			n, readErr := pipe.Read(buf)
			if n > 0 {
				_, _ = stdout.Write(buf[:n])
				onStdout(buf[:n])
			}
			if readErr != nil {
				break
			}
		}
	}

	waitErr := c.Wait()

	res := attemptResult{
		exitCode: -1,
		stdout:   outBuf.String(),
		stderr:   errBuf.String(),
	}

	if waitErr == nil || errors.Is(waitErr, exec.ErrWaitDelay) {
		res.completed = true
		res.exitCode = c.ProcessState.ExitCode()
		return res
	}

	switch {
	case ctx.Err() != nil:
		// caller cancelled or the caller's own deadline passed
		res.err = fmt.Errorf("%s: %w", req.Command, ctx.Err())
		return res
	case errors.Is(attemptCtx.Err(), context.DeadlineExceeded):
		res.err = fmt.Errorf("%w: %s after %s", ErrTimeout, req.Command, timeout)
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(waitErr, &exitErr) {
		if sig, ok := signalOf(exitErr); ok {
			res.err = &SignalError{Signal: sig}
			return res
		}
		res.completed = true
		res.exitCode = exitErr.ExitCode()
		return res
	}

	res.err = fmt.Errorf("wait %s: %w", req.Command, waitErr)
	return res
}

// sleep waits for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// limitedWriter caps writes to a bytes.Buffer at a maximum byte count.
// Bytes beyond the limit are silently discarded.
type limitedWriter struct {
	buf *bytes.Buffer
	n   int64
	max int64
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if w.n >= w.max {
		return len(p), nil
	}
	remaining := w.max - w.n
	origLen := len(p)
	if int64(origLen) > remaining {
		p = p[:remaining]
	}
	n, err := w.buf.Write(p)
	w.n += int64(n)
	if err != nil {
		return n, err
	}
	return origLen, nil
}
