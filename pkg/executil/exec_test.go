package executil

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, d Defaults) *Runner {
	t.Helper()
	return NewRunner(d, zerolog.Nop())
}

func TestRunner_Execute(t *testing.T) {
	r := newTestRunner(t, Defaults{Timeout: 5 * time.Second})
	ctx := context.Background()

	t.Run("successful command", func(t *testing.T) {
		res := r.Execute(ctx, "echo", []string{"hello"})
		require.NoError(t, res.Err)
		assert.True(t, res.Completed)
		assert.True(t, res.Success)
		assert.Equal(t, 0, res.ExitCode)
		assert.Equal(t, "hello\n", res.Stdout)
		assert.Equal(t, 1, res.Attempts)
		assert.NotEmpty(t, res.RunID)
	})

	t.Run("arguments are not shell interpolated", func(t *testing.T) {
		res := r.Execute(ctx, "echo", []string{"$HOME; rm -rf /"})
		require.True(t, res.Success)
		assert.Equal(t, "$HOME; rm -rf /\n", res.Stdout)
	})

	t.Run("non-zero exit completes without retry", func(t *testing.T) {
		res := r.Execute(ctx, "sh", []string{"-c", "echo oops >&2; exit 3"}, WithRetries(3))
		require.NoError(t, res.Err)
		assert.True(t, res.Completed)
		assert.False(t, res.Success)
		assert.Equal(t, 3, res.ExitCode)
		assert.Equal(t, "oops\n", res.Stderr)
		assert.Equal(t, 1, res.Attempts)
	})

	t.Run("runs in specified directory", func(t *testing.T) {
		dir := t.TempDir()
		res := r.Execute(ctx, "pwd", nil, WithDir(dir))
		require.True(t, res.Success)
		resolved, err := filepath.EvalSymlinks(dir)
		require.NoError(t, err)
		assert.Equal(t, resolved, strings.TrimSpace(res.Stdout))
	})

	t.Run("environment overlay", func(t *testing.T) {
		res := r.Execute(ctx, "sh", []string{"-c", "echo $WPFORGE_TEST_VAR"}, WithEnvVar("WPFORGE_TEST_VAR", "overlay"))
		require.True(t, res.Success)
		assert.Equal(t, "overlay\n", res.Stdout)
	})

	t.Run("env file with explicit override", func(t *testing.T) {
		envFile := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(envFile, []byte("FROM_FILE=file\nSHARED=file\n"), 0o644))

		res := r.Execute(ctx, "sh", []string{"-c", "echo $FROM_FILE-$SHARED"},
			WithEnvVar("SHARED", "explicit"),
			WithEnvFile(envFile),
		)
		require.True(t, res.Success)
		assert.Equal(t, "file-explicit\n", res.Stdout)
	})
}

func TestRunner_TerminalErrors(t *testing.T) {
	r := newTestRunner(t, Defaults{
		Timeout: 5 * time.Second,
		Retry:   RetryPolicy{MaxRetries: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond},
	})
	ctx := context.Background()

	t.Run("command not found is not retried", func(t *testing.T) {
		res := r.Execute(ctx, "nonexistent-command-12345", nil)
		assert.False(t, res.Success)
		assert.False(t, res.Completed)
		assert.Equal(t, -1, res.ExitCode)
		assert.Equal(t, 1, res.Attempts)
		assert.ErrorIs(t, res.Err, ErrCommandNotFound)
	})

	t.Run("permission denied is not retried", func(t *testing.T) {
		script := filepath.Join(t.TempDir(), "script.sh")
		require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\necho hi\n"), 0o644))

		res := r.Execute(ctx, script, nil)
		assert.False(t, res.Success)
		assert.Equal(t, 1, res.Attempts)
		assert.ErrorIs(t, res.Err, ErrPermissionDenied)
	})

	t.Run("SIGTERM is not retried", func(t *testing.T) {
		res := r.Execute(ctx, "sh", []string{"-c", "kill -TERM $$"})
		assert.False(t, res.Completed)
		assert.Equal(t, -1, res.ExitCode)
		assert.Equal(t, 1, res.Attempts)

		var sigErr *SignalError
		require.ErrorAs(t, res.Err, &sigErr)
	})

	t.Run("caller cancellation stops retries", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		time.AfterFunc(100*time.Millisecond, cancel)

		res := r.Execute(cctx, "sleep", []string{"5"})
		assert.False(t, res.Completed)
		assert.Equal(t, 1, res.Attempts)
		assert.ErrorIs(t, res.Err, context.Canceled)
		assert.Less(t, res.Duration, 3*time.Second)
	})
}

func TestRunner_RetryableErrors(t *testing.T) {
	t.Run("timeouts are retried up to the limit", func(t *testing.T) {
		r := newTestRunner(t, Defaults{
			Retry: RetryPolicy{BaseDelay: 20 * time.Millisecond, MaxDelay: 30 * time.Millisecond},
		})

		res := r.Execute(context.Background(), "sleep", []string{"5"},
			WithTimeout(100*time.Millisecond),
			WithRetries(2),
		)

		assert.False(t, res.Success)
		assert.False(t, res.Completed)
		assert.Equal(t, -1, res.ExitCode)
		assert.Equal(t, 3, res.Attempts)
		assert.ErrorIs(t, res.Err, ErrTimeout)
		assert.ErrorIs(t, res.Err, ErrRetryExhausted)

		// 3 x 100ms attempts + 20ms + 30ms backoff
		assert.GreaterOrEqual(t, res.Duration, 350*time.Millisecond)
		assert.Less(t, res.Duration, 3*time.Second)
	})

	t.Run("non-terminal signal is retried", func(t *testing.T) {
		r := newTestRunner(t, Defaults{
			Retry: RetryPolicy{BaseDelay: time.Millisecond, MaxDelay: time.Millisecond},
		})

		res := r.Execute(context.Background(), "sh", []string{"-c", "kill -USR1 $$"}, WithRetries(1))
		assert.False(t, res.Completed)
		assert.Equal(t, 2, res.Attempts)
		assert.ErrorIs(t, res.Err, ErrRetryExhausted)
	})

	t.Run("zero retries makes a single attempt", func(t *testing.T) {
		r := newTestRunner(t, Defaults{Retry: RetryPolicy{MaxRetries: 5}})

		res := r.Execute(context.Background(), "sleep", []string{"5"},
			WithTimeout(50*time.Millisecond),
			WithRetries(0),
		)
		assert.Equal(t, 1, res.Attempts)
		assert.ErrorIs(t, res.Err, ErrTimeout)
		assert.NotErrorIs(t, res.Err, ErrRetryExhausted)
		assert.NotContains(t, res.Err.Error(), "attempts")
	})
}

func TestRunner_InvalidRequest(t *testing.T) {
	r := newTestRunner(t, Defaults{})

	tests := []struct {
		name string
		cmd  string
		opts []Option
	}{
		{name: "empty command", cmd: "  "},
		{name: "negative timeout", cmd: "echo", opts: []Option{WithTimeout(-time.Second)}},
		{name: "negative retries", cmd: "echo", opts: []Option{WithRetries(-2)}},
		{name: "bad env name", cmd: "echo", opts: []Option{WithEnvVar("A=B", "x")}},
		{name: "missing env file", cmd: "echo", opts: []Option{WithEnvFile("/nonexistent/.env")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := r.Execute(context.Background(), tt.cmd, nil, tt.opts...)
			require.Error(t, res.Err)
			assert.Equal(t, 0, res.Attempts)
			assert.Equal(t, -1, res.ExitCode)
			assert.False(t, res.Success)
		})
	}
}

func TestRunner_OutputCap(t *testing.T) {
	r := newTestRunner(t, Defaults{MaxOutputBytes: 10})

	res := r.Execute(context.Background(), "sh", []string{"-c", "printf '%0100d' 0; printf '%0100d' 0 >&2"})
	require.True(t, res.Success)
	assert.Len(t, res.Stdout, 10)
	assert.Len(t, res.Stderr, 10)
}

func TestRunner_ExecuteStream(t *testing.T) {
	r := newTestRunner(t, Defaults{Timeout: 5 * time.Second})

	t.Run("delivers stdout incrementally", func(t *testing.T) {
		var chunks []string
		res := r.ExecuteStream(context.Background(), func(b []byte) {
			chunks = append(chunks, string(b))
		}, "sh", []string{"-c", "echo one; sleep 0.1; echo two"})

		require.True(t, res.Success)
		assert.Equal(t, "one\ntwo\n", strings.Join(chunks, ""))
		assert.Equal(t, "one\ntwo\n", res.Stdout)
		assert.Equal(t, 1, res.Attempts)
	})

	t.Run("never retries", func(t *testing.T) {
		res := r.ExecuteStream(context.Background(), nil, "sleep", []string{"5"},
			WithTimeout(50*time.Millisecond),
			WithRetries(3),
		)
		assert.False(t, res.Completed)
		assert.Equal(t, 1, res.Attempts)
		assert.ErrorIs(t, res.Err, ErrTimeout)
	})

	t.Run("captures non-zero exit", func(t *testing.T) {
		res := r.ExecuteStream(context.Background(), func([]byte) {}, "sh", []string{"-c", "echo partial; exit 4"})
		assert.True(t, res.Completed)
		assert.False(t, res.Success)
		assert.Equal(t, 4, res.ExitCode)
		assert.Equal(t, "partial\n", res.Stdout)
	})
}

func TestRunner_CommandExists(t *testing.T) {
	r := newTestRunner(t, Defaults{})
	ctx := context.Background()

	assert.True(t, r.CommandExists(ctx, "sh"))
	assert.False(t, r.CommandExists(ctx, "nonexistent-command-12345"))
}

// `which` reports a missing program through its exit code, so the run
// completes without success rather than failing.
func TestRunner_WhichMissingProgramCompletes(t *testing.T) {
	if _, err := exec.LookPath("which"); err != nil {
		t.Skip("which is not installed")
	}

	r := newTestRunner(t, Defaults{Retry: RetryPolicy{MaxRetries: 3}})

	res := r.Execute(context.Background(), "which", []string{"nonexistent-command-12345"}, WithRetries(0))
	assert.True(t, res.Completed)
	assert.False(t, res.Success)
	assert.Equal(t, 1, res.ExitCode)
	assert.Equal(t, 1, res.Attempts)
	assert.NoError(t, res.Err)
}

func TestIsTerminal(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		stderr string
		want   bool
	}{
		{name: "nil error", err: nil, want: false},
		{name: "command not found", err: ErrCommandNotFound, want: true},
		{name: "permission denied", err: ErrPermissionDenied, want: true},
		{name: "timeout", err: ErrTimeout, want: false},
		{name: "cancelled", err: context.Canceled, want: true},
		{name: "sigkill", err: &SignalError{Signal: syscall.SIGKILL}, want: true},
		{name: "sigterm", err: &SignalError{Signal: syscall.SIGTERM}, want: true},
		{name: "sighup", err: &SignalError{Signal: syscall.SIGHUP}, want: false},
		{name: "missing container", err: errors.New("exit"), stderr: "Error: No such container: wp-1", want: true},
		{name: "not found in stderr", err: errors.New("exit"), stderr: "service \"db\" not found", want: true},
		{name: "daemon busy", err: errors.New("exit"), stderr: "Cannot connect to the Docker daemon", want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTerminal(tt.err, tt.stderr))
		})
	}
}
