// Package github wraps the gh CLI.
package github

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/colonyops/wpforge/pkg/executil"
)

// Client runs gh commands through an executil.Executor.
type Client struct {
	path            string
	timeout         time.Duration
	downloadTimeout time.Duration
	exec            executil.Executor
}

// NewClient returns a Client. Zero timeouts use the runner default.
func NewClient(path string, timeout, downloadTimeout time.Duration, exec executil.Executor) *Client {
	if path == "" {
		path = "gh"
	}
	return &Client{path: path, timeout: timeout, downloadTimeout: downloadTimeout, exec: exec}
}

// Run executes gh with args using the GitHub timeout unless opts override it.
func (c *Client) Run(ctx context.Context, args []string, opts ...executil.Option) executil.Result {
	if c.timeout > 0 {
		opts = append([]executil.Option{executil.WithTimeout(c.timeout)}, opts...)
	}
	return c.exec.Execute(ctx, c.path, args, opts...)
}

// Authenticated reports whether gh has a logged in account. The second value
// is gh's own explanation, suitable for showing to the user.
func (c *Client) Authenticated(ctx context.Context) (bool, string) {
	res := c.Run(ctx, []string{"auth", "status"}, executil.WithRetries(0))
	// gh prints its status on stderr in most versions
	msg := strings.TrimSpace(res.Stderr)
	if msg == "" {
		msg = strings.TrimSpace(res.Stdout)
	}
	return res.Success, msg
}

// DownloadRelease downloads the release assets of repo ("owner/name")
// matching pattern into dir and returns the paths of the downloaded files.
// An empty tag means the latest release.
func (c *Client) DownloadRelease(ctx context.Context, repo, tag, pattern, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create download dir: %w", err)
	}

	before, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	args := []string{"release", "download"}
	if tag != "" {
		args = append(args, tag)
	}
	args = append(args, "--repo", repo, "--dir", dir, "--clobber")
	if pattern != "" {
		args = append(args, "--pattern", pattern)
	}

	var opts []executil.Option
	if c.downloadTimeout > 0 {
		opts = append(opts, executil.WithTimeout(c.downloadTimeout))
	}

	if _, err := c.Run(ctx, args, opts...).Output(); err != nil {
		return nil, fmt.Errorf("download release %s %s: %w", repo, tag, err)
	}

	after, err := listFiles(dir)
	if err != nil {
		return nil, err
	}

	var files []string
	for name := range after {
		if !before[name] {
			files = append(files, filepath.Join(dir, name))
		}
	}
	return files, nil
}

func listFiles(dir string) (map[string]bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read download dir: %w", err)
	}
	files := make(map[string]bool, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			files[e.Name()] = true
		}
	}
	return files, nil
}
