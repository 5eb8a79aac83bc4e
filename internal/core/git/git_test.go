package git

import (
	"context"
	"testing"

	"github.com/colonyops/wpforge/pkg/executil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractRepoName(t *testing.T) {
	tests := []struct {
		remote   string
		wantRepo string
	}{
		{"git@github.com:acme/storefront-theme.git", "storefront-theme"},
		{"https://github.com/acme/storefront-theme.git", "storefront-theme"},
		{"git@github.com:acme/storefront-theme", "storefront-theme"},
		{"https://github.com/acme/storefront-theme/", "storefront-theme"},
		{"plain", "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.remote, func(t *testing.T) {
			repo := ExtractRepoName(tt.remote)
			assert.Equal(t, tt.wantRepo, repo, "ExtractRepoName(%q) = %q, want %q", tt.remote, repo, tt.wantRepo)
		})
	}
}

func TestParseDiffStats(t *testing.T) {
	tests := []struct {
		output  string
		wantAdd int
		wantDel int
	}{
		{"", 0, 0},
		{" 3 files changed, 10 insertions(+), 5 deletions(-)", 10, 5},
		{" 1 file changed, 1 insertion(+)", 1, 0},
		{" 2 files changed, 7 deletions(-)", 0, 7},
	}

	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			add, del, err := parseDiffStats(tt.output)
			require.NoError(t, err)
			assert.Equal(t, tt.wantAdd, add)
			assert.Equal(t, tt.wantDel, del)
		})
	}
}

func TestExecutor_Branch(t *testing.T) {
	ctx := context.Background()

	t.Run("named branch", func(t *testing.T) {
		rec := &executil.RecordingExecutor{
			Results: map[string]executil.Result{
				"git branch --show-current": {Completed: true, Success: true, Stdout: "main\n"},
			},
		}

		branch, err := NewExecutor("git", 0, rec).Branch(ctx, "/srv/theme")
		require.NoError(t, err)
		assert.Equal(t, "main", branch)

		require.Len(t, rec.Commands, 1)
		assert.Equal(t, "/srv/theme", rec.Commands[0].Dir)
		assert.Equal(t, 0, rec.Commands[0].Retries)
	})

	t.Run("detached head", func(t *testing.T) {
		rec := &executil.RecordingExecutor{
			Results: map[string]executil.Result{
				"git branch --show-current":  {Completed: true, Success: true, Stdout: "\n"},
				"git rev-parse --short HEAD": {Completed: true, Success: true, Stdout: "abc1234\n"},
			},
		}

		branch, err := NewExecutor("git", 0, rec).Branch(ctx, "/srv/theme")
		require.NoError(t, err)
		assert.Equal(t, "abc1234", branch)
	})

	t.Run("not a repository", func(t *testing.T) {
		rec := &executil.RecordingExecutor{
			Results: map[string]executil.Result{
				"git": {Completed: true, ExitCode: 128, Stderr: "fatal: not a git repository"},
			},
		}

		_, err := NewExecutor("git", 0, rec).Branch(ctx, "/tmp")
		var exitErr *executil.ExitError
		require.ErrorAs(t, err, &exitErr)
		assert.Equal(t, 128, exitErr.ExitCode)
	})
}

func TestReadStatus(t *testing.T) {
	rec := &executil.RecordingExecutor{
		Results: map[string]executil.Result{
			"git branch --show-current": {Completed: true, Success: true, Stdout: "develop\n"},
			"git status --porcelain":    {Completed: true, Success: true, Stdout: " M style.css\n"},
			"git diff --shortstat HEAD": {Completed: true, Success: true, Stdout: " 1 file changed, 4 insertions(+), 2 deletions(-)\n"},
			"git remote get-url origin": {Completed: true, ExitCode: 2, Stderr: "error: No such remote 'origin'"},
		},
	}

	st, err := ReadStatus(context.Background(), NewExecutor("git", 0, rec), "/srv/theme")
	require.NoError(t, err)
	assert.Equal(t, Status{Branch: "develop", Clean: false, Additions: 4, Deletions: 2}, st)
}

func TestExecutor_Clone(t *testing.T) {
	rec := &executil.RecordingExecutor{}

	err := NewExecutor("/usr/bin/git", 0, rec).Clone(context.Background(), "https://github.com/acme/theme.git", "/srv/theme")
	require.NoError(t, err)

	require.Len(t, rec.Commands, 1)
	assert.Equal(t, "/usr/bin/git", rec.Commands[0].Cmd)
	assert.Equal(t, []string{"clone", "https://github.com/acme/theme.git", "/srv/theme"}, rec.Commands[0].Args)
}

func TestExecutor_Sync(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	g := NewExecutor("git", 0, rec)
	ctx := context.Background()

	require.NoError(t, g.ResetHard(ctx, "/srv/theme"))
	require.NoError(t, g.Checkout(ctx, "/srv/theme", "release"))
	require.NoError(t, g.Pull(ctx, "/srv/theme"))

	lines := make([]string, 0, len(rec.Commands))
	for _, c := range rec.Commands {
		lines = append(lines, c.Line())
		assert.Equal(t, "/srv/theme", c.Dir)
	}
	assert.Equal(t, []string{
		"git reset --hard",
		"git checkout release",
		"git pull --ff-only",
	}, lines)
}
