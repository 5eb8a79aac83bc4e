// Package git provides an abstraction for git operations on project
// checkouts such as theme and plugin repositories.
package git

import (
	"context"
	"strings"
)

// Git defines git operations needed by wpforge.
type Git interface {
	// Clone clones a repository from url to dest.
	Clone(ctx context.Context, url, dest string) error
	// Checkout switches to the specified branch in dir.
	Checkout(ctx context.Context, dir, branch string) error
	// Pull fetches and merges changes in dir.
	Pull(ctx context.Context, dir string) error
	// ResetHard discards all local changes in dir.
	ResetHard(ctx context.Context, dir string) error
	// RemoteURL returns the origin remote URL for dir.
	RemoteURL(ctx context.Context, dir string) (string, error)
	// IsClean returns true if there are no uncommitted changes in dir.
	IsClean(ctx context.Context, dir string) (bool, error)
	// Branch returns the current branch name, or short commit SHA if in detached HEAD state.
	Branch(ctx context.Context, dir string) (string, error)
	// DiffStats returns the number of lines added and deleted compared to HEAD.
	DiffStats(ctx context.Context, dir string) (additions, deletions int, err error)
}

// Status summarizes a working tree.
type Status struct {
	Remote    string `json:"remote,omitempty"`
	Branch    string `json:"branch"`
	Clean     bool   `json:"clean"`
	Additions int    `json:"additions"`
	Deletions int    `json:"deletions"`
}

// ReadStatus collects branch, cleanliness, diff stats and remote for dir. A
// missing origin remote is not an error.
func ReadStatus(ctx context.Context, g Git, dir string) (Status, error) {
	var (
		st  Status
		err error
	)

	if st.Branch, err = g.Branch(ctx, dir); err != nil {
		return st, err
	}
	if st.Clean, err = g.IsClean(ctx, dir); err != nil {
		return st, err
	}
	if st.Additions, st.Deletions, err = g.DiffStats(ctx, dir); err != nil {
		return st, err
	}
	st.Remote, _ = g.RemoteURL(ctx, dir)

	return st, nil
}

// ExtractRepoName returns the repository name from a remote URL, the default
// directory name for a clone.
func ExtractRepoName(remote string) string {
	remote = strings.TrimSuffix(strings.TrimSpace(remote), "/")
	remote = strings.TrimSuffix(remote, ".git")
	if i := strings.LastIndexAny(remote, "/:"); i != -1 {
		return remote[i+1:]
	}
	return remote
}
