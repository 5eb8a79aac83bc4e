package forge

import (
	"context"

	"github.com/colonyops/wpforge/internal/core/config"
	"github.com/colonyops/wpforge/internal/core/doctor"
)

// DoctorService runs health checks on the wpforge setup.
type DoctorService struct {
	config *config.Config
	prober Prober
	docker doctor.DaemonProber
	github doctor.AuthProber
}

// NewDoctorService creates a new DoctorService.
func NewDoctorService(cfg *config.Config, prober Prober, docker doctor.DaemonProber, gh doctor.AuthProber) *DoctorService {
	return &DoctorService{config: cfg, prober: prober, docker: docker, github: gh}
}

// RunChecks executes all doctor checks and returns results.
func (d *DoctorService) RunChecks(ctx context.Context, configPath string, autofix bool) []doctor.Result {
	tools := []doctor.Tool{
		{Name: "docker", Path: d.config.Docker.Path, Required: true, Purpose: "WordPress containers"},
		{Name: "git", Path: d.config.GitPath, Purpose: "project repositories"},
		{Name: "gh", Path: d.config.GitHub.Path, Purpose: "release downloads"},
	}

	dirs := []doctor.Dir{
		{Label: "data", Path: d.config.DataDir},
		{Label: "projects", Path: d.config.ProjectsDir},
		{Label: "downloads", Path: d.config.DownloadsDir()},
	}

	checks := []doctor.Check{
		doctor.NewConfigCheck(d.config, configPath),
		doctor.NewToolsCheck(d.prober, tools),
		doctor.NewDirsCheck(dirs, autofix),
	}

	// The tools check already reports a missing binary.
	if d.prober.CommandExists(ctx, d.config.Docker.Path) {
		checks = append(checks, doctor.NewDockerCheck(d.docker))
	}
	if d.prober.CommandExists(ctx, d.config.GitHub.Path) {
		checks = append(checks, doctor.NewGitHubCheck(d.github))
	}

	return doctor.RunAll(ctx, checks)
}
