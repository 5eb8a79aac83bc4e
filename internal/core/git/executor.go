package git

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/wpforge/pkg/executil"
)

// Executor implements Git using the git command-line tool.
type Executor struct {
	gitPath string
	timeout time.Duration
	exec    executil.Executor
}

// NewExecutor creates a new git executor with the specified git binary path.
// A zero timeout uses the runner default.
func NewExecutor(gitPath string, timeout time.Duration, exec executil.Executor) *Executor {
	return &Executor{gitPath: gitPath, timeout: timeout, exec: exec}
}

// run executes git in dir without retries; git failures are not transient.
func (e *Executor) run(ctx context.Context, dir string, args ...string) (string, error) {
	opts := []executil.Option{executil.WithDir(dir), executil.WithRetries(0)}
	if e.timeout > 0 {
		opts = append(opts, executil.WithTimeout(e.timeout))
	}
	return e.exec.Execute(ctx, e.gitPath, args, opts...).Output()
}

func (e *Executor) Clone(ctx context.Context, url, dest string) error {
	if _, err := e.run(ctx, "", "clone", url, dest); err != nil {
		return fmt.Errorf("clone %s to %s: %w", url, dest, err)
	}
	return nil
}

func (e *Executor) Checkout(ctx context.Context, dir, branch string) error {
	if _, err := e.run(ctx, dir, "checkout", branch); err != nil {
		return fmt.Errorf("checkout %s: %w", branch, err)
	}
	return nil
}

func (e *Executor) Pull(ctx context.Context, dir string) error {
	if _, err := e.run(ctx, dir, "pull", "--ff-only"); err != nil {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

func (e *Executor) ResetHard(ctx context.Context, dir string) error {
	if _, err := e.run(ctx, dir, "reset", "--hard"); err != nil {
		return fmt.Errorf("reset --hard: %w", err)
	}
	return nil
}

func (e *Executor) RemoteURL(ctx context.Context, dir string) (string, error) {
	out, err := e.run(ctx, dir, "remote", "get-url", "origin")
	if err != nil {
		return "", fmt.Errorf("get remote url: %w", err)
	}
	return strings.TrimSpace(out), nil
}

func (e *Executor) IsClean(ctx context.Context, dir string) (bool, error) {
	out, err := e.run(ctx, dir, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("git status: %w", err)
	}
	return len(strings.TrimSpace(out)) == 0, nil
}

func (e *Executor) Branch(ctx context.Context, dir string) (string, error) {
	out, err := e.run(ctx, dir, "branch", "--show-current")
	if err != nil {
		return "", fmt.Errorf("git branch: %w", err)
	}

	branch := strings.TrimSpace(out)
	if branch != "" {
		return branch, nil
	}

	// Empty branch name means detached HEAD - get short commit SHA
	out, err = e.run(ctx, dir, "rev-parse", "--short", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git rev-parse: %w", err)
	}

	return strings.TrimSpace(out), nil
}

func (e *Executor) DiffStats(ctx context.Context, dir string) (additions, deletions int, err error) {
	out, err := e.run(ctx, dir, "diff", "--shortstat", "HEAD")
	if err != nil {
		return 0, 0, fmt.Errorf("git diff: %w", err)
	}

	return parseDiffStats(out)
}

// parseDiffStats parses git diff --shortstat output.
// Example: " 3 files changed, 10 insertions(+), 5 deletions(-)"
func parseDiffStats(output string) (additions, deletions int, err error) {
	for part := range strings.SplitSeq(strings.TrimSpace(output), ",") {
		fields := strings.Fields(part)
		if len(fields) < 2 {
			continue
		}

		var n int
		if _, err := fmt.Sscanf(fields[0], "%d", &n); err != nil {
			return 0, 0, fmt.Errorf("parse shortstat %q: %w", output, err)
		}

		switch {
		case strings.HasPrefix(fields[1], "insertion"):
			additions = n
		case strings.HasPrefix(fields[1], "deletion"):
			deletions = n
		}
	}

	return additions, deletions, nil
}
