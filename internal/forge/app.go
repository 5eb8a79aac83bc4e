// Package forge wires wpforge's services together. Commands consume an App
// instead of constructing runners and clients themselves.
package forge

import (
	"context"

	"github.com/colonyops/wpforge/internal/core/config"
	"github.com/colonyops/wpforge/internal/core/docker"
	"github.com/colonyops/wpforge/internal/core/git"
	"github.com/colonyops/wpforge/internal/core/github"
	"github.com/colonyops/wpforge/internal/core/logging"
	"github.com/colonyops/wpforge/pkg/executil"
	"github.com/colonyops/wpforge/pkg/ziputil"
	"github.com/rs/zerolog"
)

// App is the central entry point for all wpforge operations.
type App struct {
	Config *config.Config

	Exec      executil.Executor
	Prober    Prober
	Extractor *ziputil.Extractor
	Docker    *docker.Client
	GitHub    *github.Client
	Git       git.Git

	Doctor   *DoctorService
	Projects *ProjectService
	Installs *InstallService
}

// Prober reports whether a command can be resolved.
type Prober interface {
	CommandExists(ctx context.Context, name string) bool
}

// NewApp builds an App backed by a real process runner.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	runner := executil.NewRunner(cfg.RunnerDefaults(), logging.ComponentOf(logger, "executil"))
	return NewAppWith(cfg, runner, runner, logger)
}

// NewAppWith builds an App on top of the given executor and prober, which
// tests replace with recording fakes.
func NewAppWith(cfg *config.Config, exec executil.Executor, prober Prober, logger zerolog.Logger) *App {
	extractor := ziputil.NewExtractor(cfg.ArchiveLimits(), logging.ComponentOf(logger, "ziputil"))

	dockerClient := docker.NewClient(docker.Config{
		Path:             cfg.Docker.Path,
		ProjectsDir:      cfg.ProjectsDir,
		WordPressService: cfg.Docker.WordPressService,
		Timeout:          cfg.Timeouts.Docker,
	}, exec, logging.ComponentOf(logger, "docker"))

	ghClient := github.NewClient(cfg.GitHub.Path, cfg.Timeouts.GitHub, cfg.Timeouts.Download, exec)
	gitExec := git.NewExecutor(cfg.GitPath, cfg.Timeouts.Process, exec)

	return &App{
		Config:    cfg,
		Exec:      exec,
		Prober:    prober,
		Extractor: extractor,
		Docker:    dockerClient,
		GitHub:    ghClient,
		Git:       gitExec,
		Doctor:    NewDoctorService(cfg, prober, dockerClient, ghClient),
		Projects:  NewProjectService(cfg, gitExec, dockerClient, logging.ComponentOf(logger, "projects")),
		Installs:  NewInstallService(cfg, extractor, ghClient, logging.ComponentOf(logger, "install")),
	}
}
