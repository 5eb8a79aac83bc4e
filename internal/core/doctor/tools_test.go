package doctor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/colonyops/wpforge/internal/core/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProber map[string]bool

func (f fakeProber) CommandExists(_ context.Context, name string) bool { return f[name] }

var testTools = []Tool{
	{Name: "docker", Path: "docker", Required: true},
	{Name: "git", Path: "git", Required: true},
	{Name: "gh", Path: "gh", Purpose: "release downloads"},
}

func TestToolsCheck_AllPresent(t *testing.T) {
	check := NewToolsCheck(fakeProber{"docker": true, "git": true, "gh": true}, testTools)
	result := check.Run(context.Background())

	assert.Equal(t, "Tools", result.Name)
	require.Len(t, result.Items, 3)
	for _, item := range result.Items {
		assert.Equal(t, StatusPass, item.Status, item.Label)
	}
	assert.Equal(t, "docker", result.Items[0].Detail)
}

func TestToolsCheck_Missing(t *testing.T) {
	check := NewToolsCheck(fakeProber{"git": true}, testTools)
	result := check.Run(context.Background())

	require.Len(t, result.Items, 3)
	assert.Equal(t, StatusFail, result.Items[0].Status)
	assert.Equal(t, StatusPass, result.Items[1].Status)
	assert.Equal(t, StatusWarn, result.Items[2].Status)
	assert.Equal(t, "gh not found on PATH (required for release downloads)", result.Items[2].Detail)

	passed, warned, failed := Summary([]Result{result})
	assert.Equal(t, 1, passed)
	assert.Equal(t, 1, warned)
	assert.Equal(t, 1, failed)
}

type fakeDaemon struct {
	detail string
	ok     bool
}

func (f fakeDaemon) DaemonRunning(context.Context) (string, bool) { return f.detail, f.ok }

func TestDockerCheck(t *testing.T) {
	result := NewDockerCheck(fakeDaemon{detail: "27.3.1", ok: true}).Run(context.Background())
	require.Len(t, result.Items, 1)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Equal(t, "server 27.3.1", result.Items[0].Detail)

	result = NewDockerCheck(fakeDaemon{detail: "Cannot connect to the Docker daemon\nIs it running?"}).Run(context.Background())
	assert.Equal(t, StatusFail, result.Items[0].Status)
	assert.Equal(t, "Cannot connect to the Docker daemon", result.Items[0].Detail)
}

type fakeAuth struct {
	ok  bool
	msg string
}

func (f fakeAuth) Authenticated(context.Context) (bool, string) { return f.ok, f.msg }

func TestGitHubCheck(t *testing.T) {
	result := NewGitHubCheck(fakeAuth{ok: true}).Run(context.Background())
	assert.Equal(t, StatusPass, result.Items[0].Status)

	result = NewGitHubCheck(fakeAuth{}).Run(context.Background())
	assert.Equal(t, StatusWarn, result.Items[0].Status)
	assert.Contains(t, result.Items[0].Detail, "gh auth login")
}

func TestDirsCheck(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	dirs := []Dir{
		{Label: "data_dir", Path: root},
		{Label: "projects_dir", Path: filepath.Join(root, "projects")},
		{Label: "downloads", Path: file},
	}

	result := NewDirsCheck(dirs, false).Run(context.Background())
	require.Len(t, result.Items, 3)
	assert.Equal(t, StatusPass, result.Items[0].Status)
	assert.Equal(t, StatusWarn, result.Items[1].Status)
	assert.True(t, result.Items[1].Fixable)
	assert.Equal(t, StatusFail, result.Items[2].Status)
	assert.Equal(t, 1, CountFixable([]Result{result}))

	result = NewDirsCheck(dirs, true).Run(context.Background())
	assert.Equal(t, StatusPass, result.Items[1].Status)
	assert.DirExists(t, filepath.Join(root, "projects"))
	assert.Equal(t, 0, CountFixable([]Result{result}))
}

func TestConfigCheck(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.ProjectsDir = t.TempDir()
	cfg.GitPath = "sh"
	cfg.Docker.Path = "sh"
	cfg.GitHub.Path = "wpforge-no-such-gh"
	cfg.Retry.MaxRetries = 50

	result := NewConfigCheck(&cfg, "").Run(context.Background())

	require.Len(t, result.Items, 2)
	assert.Equal(t, "github.path", result.Items[0].Label)
	assert.Equal(t, StatusFail, result.Items[0].Status)
	assert.Equal(t, StatusWarn, result.Items[1].Status)
}

func TestRunAll(t *testing.T) {
	checks := []Check{
		NewGitHubCheck(fakeAuth{ok: true}),
		NewDockerCheck(fakeDaemon{ok: true, detail: "1"}),
	}

	results := RunAll(context.Background(), checks)
	require.Len(t, results, 2)
	assert.Equal(t, "GitHub", results[0].Name)
	assert.Equal(t, "Docker", results[1].Name)
}
