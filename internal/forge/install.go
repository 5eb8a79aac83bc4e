package forge

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/colonyops/wpforge/internal/core/config"
	"github.com/colonyops/wpforge/internal/core/github"
	"github.com/colonyops/wpforge/internal/core/logging"
	"github.com/colonyops/wpforge/pkg/ziputil"
	"github.com/rs/zerolog"
)

var (
	// ErrInvalidPackage is returned when an archive fails validation.
	ErrInvalidPackage = errors.New("invalid package")
	// ErrAlreadyInstalled is returned when the destination exists and
	// overwriting was not requested.
	ErrAlreadyInstalled = errors.New("already installed")
)

// InstallRequest describes a theme or plugin install into a project.
type InstallRequest struct {
	Project string
	Kind    ziputil.Kind // theme or plugin

	// Archive is a local zip. When empty the archive is downloaded from the
	// GitHub release Tag (latest when empty) of Repo.
	Archive string
	Repo    string
	Tag     string
	Pattern string // release asset glob, defaults to *.zip

	Overwrite bool
	Progress  func(ziputil.Progress)
}

// InstallResult reports what an install did.
type InstallResult struct {
	Project string          `json:"project"`
	Kind    ziputil.Kind    `json:"kind"`
	Archive string          `json:"archive"`
	Dest    string          `json:"dest"`
	Report  *ziputil.Report `json:"report"`
	Files   int             `json:"files"`
	Bytes   int64           `json:"bytes"`
	Skipped int             `json:"skipped"`
}

// InstallService installs theme and plugin archives into a project's
// wp-content directory.
type InstallService struct {
	config    *config.Config
	extractor *ziputil.Extractor
	github    *github.Client
	log       zerolog.Logger
}

// NewInstallService creates a new InstallService.
func NewInstallService(cfg *config.Config, x *ziputil.Extractor, gh *github.Client, logger zerolog.Logger) *InstallService {
	return &InstallService{config: cfg, extractor: x, github: gh, log: logger}
}

// Install validates the archive, extracts its root directory into a staging
// directory next to the destination and then swaps it into place, so a
// failed install never leaves a half-written theme or plugin behind.
func (s *InstallService) Install(ctx context.Context, req InstallRequest) (InstallResult, error) {
	if req.Kind != ziputil.KindTheme && req.Kind != ziputil.KindPlugin {
		return InstallResult{}, fmt.Errorf("install kind must be theme or plugin, got %q", req.Kind)
	}
	if err := checkProjectName(req.Project); err != nil {
		return InstallResult{}, err
	}
	projectDir := s.config.ProjectDir(req.Project)
	if info, err := os.Stat(projectDir); err != nil || !info.IsDir() {
		return InstallResult{}, fmt.Errorf("%w: %s", ErrProjectNotFound, req.Project)
	}

	ctx = logging.WithProject(ctx, req.Project)

	archive := req.Archive
	if archive == "" {
		downloaded, cleanup, err := s.download(ctx, req)
		if err != nil {
			return InstallResult{}, err
		}
		defer cleanup()
		archive = downloaded
	}

	log := s.log.With().Ctx(ctx).Str("kind", string(req.Kind)).Str("archive", archive).Logger()

	report, err := s.extractor.Validate(archive, req.Kind)
	if err != nil {
		return InstallResult{}, err
	}
	result := InstallResult{Project: req.Project, Kind: req.Kind, Archive: archive, Report: report}

	if !report.Valid {
		return result, fmt.Errorf("%w: %s", ErrInvalidPackage, strings.Join(report.Errors, "; "))
	}
	root := report.Metadata.RootDir
	if root == "" {
		return result, fmt.Errorf("%w: archive must contain exactly one top-level directory", ErrInvalidPackage)
	}
	for _, w := range report.Warnings {
		log.Warn().Str("warning", w).Msg("package warning")
	}

	contentDir := filepath.Join(projectDir, "wp-content", string(req.Kind)+"s")
	dest := filepath.Join(contentDir, root)
	result.Dest = dest

	if _, err := os.Lstat(dest); err == nil && !req.Overwrite {
		return result, fmt.Errorf("%w: %s", ErrAlreadyInstalled, dest)
	}
	if err := os.MkdirAll(contentDir, 0o755); err != nil {
		return result, fmt.Errorf("create %s: %w", contentDir, err)
	}

	staging := filepath.Join(contentDir, "."+root+".install")
	if err := os.RemoveAll(staging); err != nil {
		return result, fmt.Errorf("clear staging dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(staging) }()

	opts := ziputil.DefaultOptions()
	opts.Staged = true
	opts.Progress = req.Progress
	opts.Filter = func(e ziputil.Entry) bool {
		name := strings.TrimSuffix(e.Name, "/")
		return name == root || strings.HasPrefix(name, root+"/")
	}

	extracted, err := s.extractor.Extract(ctx, archive, staging, opts)
	result.Skipped = extracted.Skipped
	if err != nil {
		return result, err
	}

	if err := swapInto(filepath.Join(staging, root), dest); err != nil {
		return result, err
	}

	result.Files = extracted.FilesExtracted
	result.Bytes = extracted.TotalBytes

	log.Info().Str("dest", dest).Int("files", result.Files).Msg("package installed")
	return result, nil
}

// download fetches the release archive into a scratch directory under the
// downloads dir. The returned cleanup removes it.
func (s *InstallService) download(ctx context.Context, req InstallRequest) (string, func(), error) {
	if req.Repo == "" {
		return "", nil, errors.New("either an archive or a repository is required")
	}

	if err := os.MkdirAll(s.config.DownloadsDir(), 0o755); err != nil {
		return "", nil, fmt.Errorf("create downloads dir: %w", err)
	}
	dir, err := os.MkdirTemp(s.config.DownloadsDir(), "release-")
	if err != nil {
		return "", nil, fmt.Errorf("create download dir: %w", err)
	}
	cleanup := func() { _ = os.RemoveAll(dir) }

	pattern := req.Pattern
	if pattern == "" {
		pattern = "*.zip"
	}

	files, err := s.github.DownloadRelease(ctx, req.Repo, req.Tag, pattern, dir)
	if err != nil {
		cleanup()
		return "", nil, err
	}

	slices.Sort(files)
	for _, f := range files {
		if strings.EqualFold(filepath.Ext(f), ".zip") {
			return f, cleanup, nil
		}
	}

	cleanup()
	return "", nil, fmt.Errorf("release of %s has no zip asset matching %q", req.Repo, pattern)
}

// swapInto replaces dest with src. An existing dest is moved aside first and
// restored if the final rename fails.
func swapInto(src, dest string) error {
	backup := dest + ".old"
	_ = os.RemoveAll(backup)

	hadDest := false
	if _, err := os.Lstat(dest); err == nil {
		if err := os.Rename(dest, backup); err != nil {
			return fmt.Errorf("move existing %s aside: %w", dest, err)
		}
		hadDest = true
	}

	if err := os.Rename(src, dest); err != nil {
		if hadDest {
			_ = os.Rename(backup, dest)
		}
		return fmt.Errorf("install into %s: %w", dest, err)
	}

	if hadDest {
		return os.RemoveAll(backup)
	}
	return nil
}
