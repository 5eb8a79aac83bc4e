// Package config handles configuration loading and validation for wpforge.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/colonyops/wpforge/internal/core/styles"
	"github.com/colonyops/wpforge/pkg/executil"
	"github.com/colonyops/wpforge/pkg/ziputil"
	"gopkg.in/yaml.v3"
)

// Config holds the application configuration.
type Config struct {
	ProjectsDir string        `yaml:"projects_dir"`
	GitPath     string        `yaml:"git_path"`
	Timeouts    Timeouts      `yaml:"timeouts"`
	Retry       RetryConfig   `yaml:"retry"`
	Process     ProcessConfig `yaml:"process"`
	Archive     ArchiveConfig `yaml:"archive"`
	Docker      DockerConfig  `yaml:"docker"`
	GitHub      GitHubConfig  `yaml:"github"`
	Theme       string        `yaml:"theme"`
	DataDir     string        `yaml:"-"` // set by caller, not from config file
}

// Timeouts are the per-attempt timeouts for each kind of external command.
type Timeouts struct {
	Process  time.Duration `yaml:"process"`
	Docker   time.Duration `yaml:"docker"`
	GitHub   time.Duration `yaml:"github"`
	Download time.Duration `yaml:"download"`
	Probe    time.Duration `yaml:"probe"`
}

// RetryConfig controls how failed command attempts are retried.
type RetryConfig struct {
	MaxRetries int           `yaml:"max_retries"`
	BaseDelay  time.Duration `yaml:"base_delay"`
	MaxDelay   time.Duration `yaml:"max_delay"`
}

// ProcessConfig holds limits applied to every spawned process.
type ProcessConfig struct {
	MaxOutput ByteSize `yaml:"max_output"` // per stream
}

// ArchiveConfig holds the extraction quotas.
type ArchiveConfig struct {
	MaxEntries   int      `yaml:"max_entries"`
	MaxFileSize  ByteSize `yaml:"max_file_size"`
	MaxTotalSize ByteSize `yaml:"max_total_size"`
}

// DockerConfig holds docker-related configuration.
type DockerConfig struct {
	Path             string `yaml:"path"`
	WordPressService string `yaml:"wordpress_service"`
}

// GitHubConfig holds configuration for the GitHub CLI.
type GitHubConfig struct {
	Path string `yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		GitPath: "git",
		Timeouts: Timeouts{
			Process:  30 * time.Second,
			Docker:   60 * time.Second,
			GitHub:   30 * time.Second,
			Download: 5 * time.Minute,
			Probe:    5 * time.Second,
		},
		Retry: RetryConfig{
			MaxRetries: 3,
			BaseDelay:  time.Second,
			MaxDelay:   30 * time.Second,
		},
		Process: ProcessConfig{
			MaxOutput: 16 * MiB,
		},
		Archive: ArchiveConfig{
			MaxEntries:   ziputil.DefaultMaxEntries,
			MaxFileSize:  ziputil.DefaultMaxFileSize,
			MaxTotalSize: ziputil.DefaultMaxTotalSize,
		},
		Docker: DockerConfig{
			Path:             "docker",
			WordPressService: "wordpress",
		},
		GitHub: GitHubConfig{
			Path: "gh",
		},
		Theme: styles.DefaultTheme,
	}
}

// Load reads configuration from the given path and sets the data directory.
// If configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()
	cfg.DataDir = dataDir

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}

			// Re-set dataDir since Unmarshal may have cleared it
			cfg.DataDir = dataDir
		}
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.ProjectsDir == "" && c.DataDir != "" {
		c.ProjectsDir = filepath.Join(c.DataDir, "projects")
	}
	if c.GitPath == "" {
		c.GitPath = defaults.GitPath
	}

	setDuration(&c.Timeouts.Process, defaults.Timeouts.Process)
	setDuration(&c.Timeouts.Docker, defaults.Timeouts.Docker)
	setDuration(&c.Timeouts.GitHub, defaults.Timeouts.GitHub)
	setDuration(&c.Timeouts.Download, defaults.Timeouts.Download)
	setDuration(&c.Timeouts.Probe, defaults.Timeouts.Probe)
	setDuration(&c.Retry.BaseDelay, defaults.Retry.BaseDelay)
	setDuration(&c.Retry.MaxDelay, defaults.Retry.MaxDelay)

	if c.Process.MaxOutput == 0 {
		c.Process.MaxOutput = defaults.Process.MaxOutput
	}
	if c.Archive.MaxEntries == 0 {
		c.Archive.MaxEntries = defaults.Archive.MaxEntries
	}
	if c.Archive.MaxFileSize == 0 {
		c.Archive.MaxFileSize = defaults.Archive.MaxFileSize
	}
	if c.Archive.MaxTotalSize == 0 {
		c.Archive.MaxTotalSize = defaults.Archive.MaxTotalSize
	}
	if c.Docker.Path == "" {
		c.Docker.Path = defaults.Docker.Path
	}
	if c.Docker.WordPressService == "" {
		c.Docker.WordPressService = defaults.Docker.WordPressService
	}
	if c.GitHub.Path == "" {
		c.GitHub.Path = defaults.GitHub.Path
	}
	if c.Theme == "" {
		c.Theme = defaults.Theme
	}
}

func setDuration(d *time.Duration, def time.Duration) {
	if *d == 0 {
		*d = def
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.ProjectsDir == "" {
		return fmt.Errorf("projects_dir cannot be empty")
	}

	if c.GitPath == "" {
		return fmt.Errorf("git_path cannot be empty")
	}

	for name, d := range map[string]time.Duration{
		"timeouts.process":  c.Timeouts.Process,
		"timeouts.docker":   c.Timeouts.Docker,
		"timeouts.github":   c.Timeouts.GitHub,
		"timeouts.download": c.Timeouts.Download,
		"timeouts.probe":    c.Timeouts.Probe,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}

	if c.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative")
	}

	if c.Retry.BaseDelay < 0 || c.Retry.MaxDelay < 0 {
		return fmt.Errorf("retry delays must not be negative")
	}

	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		return fmt.Errorf("retry.max_delay (%s) must be at least retry.base_delay (%s)", c.Retry.MaxDelay, c.Retry.BaseDelay)
	}

	if c.Archive.MaxEntries < 1 {
		return fmt.Errorf("archive.max_entries must be at least 1")
	}

	if _, ok := styles.GetPalette(c.Theme); !ok {
		return fmt.Errorf("unknown theme %q (available: %s)", c.Theme, strings.Join(styles.ThemeNames(), ", "))
	}

	if c.Archive.MaxFileSize > c.Archive.MaxTotalSize {
		return fmt.Errorf("archive.max_file_size (%s) exceeds archive.max_total_size (%s)", c.Archive.MaxFileSize, c.Archive.MaxTotalSize)
	}

	return nil
}

// RunnerDefaults converts the configuration into process runner defaults.
func (c *Config) RunnerDefaults() executil.Defaults {
	return executil.Defaults{
		Timeout:        c.Timeouts.Process,
		ProbeTimeout:   c.Timeouts.Probe,
		MaxOutputBytes: int64(c.Process.MaxOutput),
		Retry: executil.RetryPolicy{
			MaxRetries: c.Retry.MaxRetries,
			BaseDelay:  c.Retry.BaseDelay,
			MaxDelay:   c.Retry.MaxDelay,
		},
	}
}

// ArchiveLimits converts the configuration into extraction quotas.
func (c *Config) ArchiveLimits() ziputil.Limits {
	return ziputil.Limits{
		MaxEntries:   c.Archive.MaxEntries,
		MaxFileSize:  uint64(c.Archive.MaxFileSize),
		MaxTotalSize: uint64(c.Archive.MaxTotalSize),
	}
}

// ProjectDir returns the directory holding the docker compose project with
// the given name.
func (c *Config) ProjectDir(project string) string {
	return filepath.Join(c.ProjectsDir, project)
}

// DownloadsDir returns the scratch directory used for staged archive
// downloads and extractions.
func (c *Config) DownloadsDir() string {
	return filepath.Join(c.DataDir, "downloads")
}
