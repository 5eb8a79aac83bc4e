package forge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/wpforge/internal/core/config"
	"github.com/colonyops/wpforge/internal/core/doctor"
	"github.com/colonyops/wpforge/pkg/executil"
	"github.com/colonyops/wpforge/pkg/ziputil"
)

type fakeProber map[string]bool

func (f fakeProber) CommandExists(_ context.Context, name string) bool { return f[name] }

func newTestApp(t *testing.T, rec *executil.RecordingExecutor, prober Prober) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.ProjectsDir = filepath.Join(cfg.DataDir, "projects")
	return NewAppWith(&cfg, rec, prober, zerolog.Nop())
}

func makeProject(t *testing.T, app *App, name string) string {
	t.Helper()
	dir := app.Config.ProjectDir(name)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

// writeArchive writes a zip of name/body pairs. Names ending in "/" are
// directories.
func writeArchive(t *testing.T, files ...string) string {
	t.Helper()
	require.Zero(t, len(files)%2)

	path := filepath.Join(t.TempDir(), "package.zip")
	f, err := os.Create(path)
	require.NoError(t, err)

	zw := zip.NewWriter(f)
	for i := 0; i < len(files); i += 2 {
		w, err := zw.Create(files[i])
		require.NoError(t, err)
		_, err = w.Write([]byte(files[i+1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func themeArchive(t *testing.T, version string) string {
	return writeArchive(t,
		"mytheme/", "",
		"mytheme/style.css", "/* Theme Name: My Theme "+version+" */",
		"mytheme/index.php", "<?php // silence",
		"mytheme/inc/setup.php", "<?php",
	)
}

func TestInstall_Theme(t *testing.T) {
	app := newTestApp(t, &executil.RecordingExecutor{}, fakeProber{})
	projectDir := makeProject(t, app, "blog")

	res, err := app.Installs.Install(context.Background(), InstallRequest{
		Project: "blog",
		Kind:    ziputil.KindTheme,
		Archive: themeArchive(t, "1.0"),
	})
	require.NoError(t, err)

	dest := filepath.Join(projectDir, "wp-content", "themes", "mytheme")
	assert.Equal(t, dest, res.Dest)
	assert.Equal(t, 3, res.Files)
	assert.True(t, res.Report.Valid)

	data, err := os.ReadFile(filepath.Join(dest, "inc", "setup.php"))
	require.NoError(t, err)
	assert.Equal(t, "<?php", string(data))

	entries, err := os.ReadDir(filepath.Join(projectDir, "wp-content", "themes"))
	require.NoError(t, err)
	require.Len(t, entries, 1, "staging directories are cleaned up")
	assert.Equal(t, "mytheme", entries[0].Name())
}

func TestInstall_ExistingDestination(t *testing.T) {
	app := newTestApp(t, &executil.RecordingExecutor{}, fakeProber{})
	projectDir := makeProject(t, app, "blog")
	dest := filepath.Join(projectDir, "wp-content", "themes", "mytheme")

	req := InstallRequest{Project: "blog", Kind: ziputil.KindTheme, Archive: themeArchive(t, "1.0")}
	_, err := app.Installs.Install(context.Background(), req)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dest, "local.txt"), []byte("mine"), 0o644))

	req.Archive = themeArchive(t, "2.0")
	_, err = app.Installs.Install(context.Background(), req)
	require.ErrorIs(t, err, ErrAlreadyInstalled)

	req.Overwrite = true
	_, err = app.Installs.Install(context.Background(), req)
	require.NoError(t, err)

	style, err := os.ReadFile(filepath.Join(dest, "style.css"))
	require.NoError(t, err)
	assert.Contains(t, string(style), "2.0")
	assert.NoFileExists(t, filepath.Join(dest, "local.txt"), "overwrite replaces the whole directory")
	assert.NoDirExists(t, dest+".old")
}

func TestInstall_InvalidPackage(t *testing.T) {
	app := newTestApp(t, &executil.RecordingExecutor{}, fakeProber{})
	projectDir := makeProject(t, app, "blog")

	res, err := app.Installs.Install(context.Background(), InstallRequest{
		Project: "blog",
		Kind:    ziputil.KindPlugin,
		Archive: writeArchive(t, "myplugin/readme.txt", "hello"),
	})
	require.ErrorIs(t, err, ErrInvalidPackage)
	require.NotNil(t, res.Report)
	assert.False(t, res.Report.Valid)
	assert.NoDirExists(t, filepath.Join(projectDir, "wp-content", "plugins"))
}

func TestInstall_RequestErrors(t *testing.T) {
	app := newTestApp(t, &executil.RecordingExecutor{}, fakeProber{})
	makeProject(t, app, "blog")

	tests := []struct {
		name string
		req  InstallRequest
		want error
	}{
		{name: "unknown project", req: InstallRequest{Project: "nope", Kind: ziputil.KindTheme, Archive: "x.zip"}, want: ErrProjectNotFound},
		{name: "path project", req: InstallRequest{Project: "../etc", Kind: ziputil.KindTheme, Archive: "x.zip"}, want: ErrInvalidProject},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := app.Installs.Install(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.want)
		})
	}

	_, err := app.Installs.Install(context.Background(), InstallRequest{Project: "blog", Kind: ziputil.KindGeneric})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "theme or plugin")

	_, err = app.Installs.Install(context.Background(), InstallRequest{Project: "blog", Kind: ziputil.KindTheme})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "archive or a repository")
}

func TestInstall_FromRelease(t *testing.T) {
	t.Run("download fails", func(t *testing.T) {
		rec := &executil.RecordingExecutor{Results: map[string]executil.Result{
			"gh": {Completed: true, ExitCode: 1, Stderr: "release not found"},
		}}
		app := newTestApp(t, rec, fakeProber{})
		makeProject(t, app, "blog")

		_, err := app.Installs.Install(context.Background(), InstallRequest{
			Project: "blog", Kind: ziputil.KindTheme, Repo: "acme/mytheme", Tag: "v1.0.0",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "release not found")

		require.Len(t, rec.Commands, 1)
		assert.Equal(t, []string{"release", "download", "v1.0.0", "--repo", "acme/mytheme"}, rec.Commands[0].Args[:5])
		assert.Contains(t, rec.Commands[0].Args, "*.zip")
	})

	t.Run("no zip asset", func(t *testing.T) {
		app := newTestApp(t, &executil.RecordingExecutor{}, fakeProber{})
		makeProject(t, app, "blog")

		_, err := app.Installs.Install(context.Background(), InstallRequest{
			Project: "blog", Kind: ziputil.KindTheme, Repo: "acme/mytheme",
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no zip asset")

		entries, err := os.ReadDir(app.Config.DownloadsDir())
		require.NoError(t, err)
		assert.Empty(t, entries, "scratch download dir is removed")
	})
}

func TestProjects_Status(t *testing.T) {
	rec := &executil.RecordingExecutor{Results: map[string]executil.Result{
		"git branch --show-current":                {Completed: true, Success: true, Stdout: "main\n"},
		"git diff --shortstat HEAD":                {Completed: true, Success: true, Stdout: " 1 file changed, 4 insertions(+)\n"},
		"git remote get-url origin":                {Completed: true, ExitCode: 2, Stderr: "error: No such remote 'origin'"},
		"docker compose ps -q wordpress":           {Completed: true, Success: true, Stdout: "abc123\n"},
		"docker inspect --format {{.Name}} abc123": {Completed: true, Success: true, Stdout: "/blog-wordpress-1\n"},
	}}
	app := newTestApp(t, rec, fakeProber{})
	dir := makeProject(t, app, "blog")

	st, err := app.Projects.Status(context.Background(), "blog")
	require.NoError(t, err)

	assert.Equal(t, dir, st.Dir)
	assert.Equal(t, "blog-wordpress-1", st.Container)
	require.NotNil(t, st.Git)
	assert.Equal(t, "main", st.Git.Branch)
	assert.Equal(t, 4, st.Git.Additions)
	assert.Empty(t, st.Git.Remote)
	assert.Empty(t, st.GitError)
}

func TestProjects_StatusNotARepository(t *testing.T) {
	rec := &executil.RecordingExecutor{Results: map[string]executil.Result{
		"git": {Completed: true, ExitCode: 128, Stderr: "fatal: not a git repository"},
	}}
	app := newTestApp(t, rec, fakeProber{})
	makeProject(t, app, "blog")

	st, err := app.Projects.Status(context.Background(), "blog")
	require.NoError(t, err)
	assert.Nil(t, st.Git)
	assert.Contains(t, st.GitError, "not a git repository")

	_, err = app.Projects.Status(context.Background(), "missing")
	require.ErrorIs(t, err, ErrProjectNotFound)
}

func TestProjects_Clone(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	app := newTestApp(t, rec, fakeProber{})

	dir, err := app.Projects.Clone(context.Background(), "git@github.com:acme/shop.git", "")
	require.NoError(t, err)
	assert.Equal(t, app.Config.ProjectDir("shop"), dir)

	require.Len(t, rec.Commands, 1)
	assert.Equal(t, []string{"clone", "git@github.com:acme/shop.git", dir}, rec.Commands[0].Args)

	makeProject(t, app, "shop")
	_, err = app.Projects.Clone(context.Background(), "git@github.com:acme/shop.git", "")
	require.ErrorIs(t, err, ErrProjectExists)
}

func TestProjects_Sync(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	app := newTestApp(t, rec, fakeProber{})
	dir := makeProject(t, app, "blog")

	err := app.Projects.Sync(context.Background(), "blog", SyncOptions{Branch: "develop", Reset: true})
	require.NoError(t, err)

	lines := make([]string, 0, len(rec.Commands))
	for _, c := range rec.Commands {
		assert.Equal(t, dir, c.Dir)
		lines = append(lines, c.Line())
	}
	assert.Equal(t, []string{
		"git reset --hard",
		"git checkout develop",
		"git pull --ff-only",
	}, lines)
}

func TestDoctorService_SkipsProbesForMissingTools(t *testing.T) {
	rec := &executil.RecordingExecutor{}
	app := newTestApp(t, rec, fakeProber{"git": true})

	results := app.Doctor.RunChecks(context.Background(), "", false)

	names := make([]string, 0, len(results))
	for _, r := range results {
		names = append(names, r.Name)
	}
	assert.NotContains(t, names, "Docker")
	assert.NotContains(t, names, "GitHub")
	assert.Empty(t, rec.Commands)

	_, _, failed := doctor.Summary(results)
	assert.Positive(t, failed, "docker is required")
}

func TestDoctorService_ProbesAvailableTools(t *testing.T) {
	rec := &executil.RecordingExecutor{Results: map[string]executil.Result{
		"docker info --format {{.ServerVersion}}": {Completed: true, Success: true, Stdout: "27.1.1\n"},
	}}
	app := newTestApp(t, rec, fakeProber{"docker": true, "git": true, "gh": true})

	results := app.Doctor.RunChecks(context.Background(), "", true)

	var docker *doctor.Result
	for i := range results {
		if results[i].Name == "Docker" {
			docker = &results[i]
		}
	}
	require.NotNil(t, docker)
	require.Len(t, docker.Items, 1)
	assert.Equal(t, doctor.StatusPass, docker.Items[0].Status)

	assert.DirExists(t, app.Config.DownloadsDir(), "autofix creates missing directories")
}
