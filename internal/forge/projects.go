package forge

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/colonyops/wpforge/internal/core/config"
	"github.com/colonyops/wpforge/internal/core/docker"
	"github.com/colonyops/wpforge/internal/core/git"
	"github.com/colonyops/wpforge/internal/core/logging"
	"github.com/colonyops/wpforge/internal/core/validate"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidProject is returned for project names that are not a single
	// path element.
	ErrInvalidProject = errors.New("invalid project name")
	// ErrProjectNotFound is returned when the project directory is missing.
	ErrProjectNotFound = errors.New("project not found")
	// ErrProjectExists is returned by Clone when the destination exists.
	ErrProjectExists = errors.New("project already exists")
)

// ProjectStatus describes a compose project checkout.
type ProjectStatus struct {
	Project   string      `json:"project"`
	Dir       string      `json:"dir"`
	Container string      `json:"container"`
	Git       *git.Status `json:"git,omitempty"`
	GitError  string      `json:"git_error,omitempty"`
}

// SyncOptions controls ProjectService.Sync.
type SyncOptions struct {
	Branch string // checkout before pulling when set
	Reset  bool   // discard local changes first
}

// ProjectService manages project directories under the configured projects
// dir: cloning, syncing and reporting their state.
type ProjectService struct {
	config *config.Config
	git    git.Git
	docker *docker.Client
	log    zerolog.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(cfg *config.Config, g git.Git, d *docker.Client, logger zerolog.Logger) *ProjectService {
	return &ProjectService{config: cfg, git: g, docker: d, log: logger}
}

// Dir returns the directory of an existing project.
func (s *ProjectService) Dir(project string) (string, error) {
	if err := checkProjectName(project); err != nil {
		return "", err
	}
	dir := s.config.ProjectDir(project)
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s", ErrProjectNotFound, project)
	}
	return dir, nil
}

// Status reports the container and working tree state of a project. Git
// failures are reported in the status rather than returned, since many
// projects are not repositories.
func (s *ProjectService) Status(ctx context.Context, project string) (ProjectStatus, error) {
	dir, err := s.Dir(project)
	if err != nil {
		return ProjectStatus{}, err
	}

	st := ProjectStatus{
		Project:   project,
		Dir:       dir,
		Container: s.docker.ContainerName(ctx, project, ""),
	}

	gs, err := git.ReadStatus(ctx, s.git, dir)
	if err != nil {
		st.GitError = err.Error()
		return st, nil
	}
	st.Git = &gs
	return st, nil
}

// Clone clones url into a new project. An empty name uses the repository
// name from the URL.
func (s *ProjectService) Clone(ctx context.Context, url, name string) (string, error) {
	if name == "" {
		name = git.ExtractRepoName(url)
	}
	if err := checkProjectName(name); err != nil {
		return "", err
	}

	dir := s.config.ProjectDir(name)
	if _, err := os.Stat(dir); err == nil {
		return "", fmt.Errorf("%w: %s", ErrProjectExists, dir)
	}
	if err := os.MkdirAll(s.config.ProjectsDir, 0o755); err != nil {
		return "", fmt.Errorf("create projects dir: %w", err)
	}

	s.log.Info().Str("url", url).Str("dir", dir).Msg("cloning project")
	if err := s.git.Clone(ctx, url, dir); err != nil {
		return "", err
	}
	return dir, nil
}

// Sync brings a project checkout up to date with its remote.
func (s *ProjectService) Sync(ctx context.Context, project string, opts SyncOptions) error {
	dir, err := s.Dir(project)
	if err != nil {
		return err
	}

	ctx = logging.WithProject(ctx, project)

	if opts.Reset {
		s.log.Warn().Ctx(ctx).Msg("discarding local changes")
		if err := s.git.ResetHard(ctx, dir); err != nil {
			return err
		}
	}
	if opts.Branch != "" {
		if err := s.git.Checkout(ctx, dir, opts.Branch); err != nil {
			return err
		}
	}
	return s.git.Pull(ctx, dir)
}

func checkProjectName(name string) error {
	if err := validate.ProjectName(name); err != nil {
		return fmt.Errorf("%w %q: %w", ErrInvalidProject, name, err)
	}
	return nil
}
