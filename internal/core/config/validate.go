package config

import (
	"fmt"
	"os"
	"os/exec"

	"github.com/hay-kot/criterio"
)

// ValidationWarning represents a non-fatal configuration issue.
type ValidationWarning struct {
	Category string `json:"category"`
	Item     string `json:"item,omitempty"`
	Message  string `json:"message"`
}

// ValidateDeep performs comprehensive validation of the configuration
// including executable lookup and directory access. The configPath argument
// specifies the config file location to validate (empty string skips config
// file check). This calls Validate() first for basic structural validation,
// then adds I/O checks.
func (c *Config) ValidateDeep(configPath string) error {
	if err := c.Validate(); err != nil {
		return err
	}

	return criterio.ValidateStruct(
		c.validateFileAccess(configPath),
		c.validateExecutables(),
	)
}

// Warnings returns non-fatal configuration issues.
func (c *Config) Warnings() []ValidationWarning {
	var warnings []ValidationWarning

	if c.Retry.MaxRetries > 10 {
		warnings = append(warnings, ValidationWarning{
			Category: "Retry",
			Item:     "max_retries",
			Message:  fmt.Sprintf("%d retries with exponential backoff can stall commands for a long time", c.Retry.MaxRetries),
		})
	}

	if c.Timeouts.Probe > c.Timeouts.Process {
		warnings = append(warnings, ValidationWarning{
			Category: "Timeouts",
			Item:     "probe",
			Message:  "probe timeout is longer than the process timeout",
		})
	}

	if c.Archive.MaxTotalSize > 2*GiB {
		warnings = append(warnings, ValidationWarning{
			Category: "Archive",
			Item:     "max_total_size",
			Message:  fmt.Sprintf("%s is a very large extraction quota", c.Archive.MaxTotalSize),
		})
	}

	return warnings
}

// validateFileAccess checks the config file and the data and projects directories.
func (c *Config) validateFileAccess(configPath string) error {
	return criterio.ValidateStruct(
		validateConfigFile(configPath),
		criterio.Run("data_dir", c.DataDir, isDirectoryOrNotExist),
		criterio.Run("projects_dir", c.ProjectsDir, isDirectoryOrNotExist),
	)
}

// validateExecutables checks that the configured tools resolve on PATH.
func (c *Config) validateExecutables() error {
	return criterio.ValidateStruct(
		criterio.Run("git_path", c.GitPath, executableExists),
		criterio.Run("docker.path", c.Docker.Path, executableExists),
		criterio.Run("github.path", c.GitHub.Path, executableExists),
	)
}

func validateConfigFile(configPath string) error {
	if configPath == "" {
		return nil
	}

	info, err := os.Stat(configPath)
	if os.IsNotExist(err) {
		return nil // not found is fine, using defaults
	}
	if err != nil {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("cannot access: %w", err))
	}
	if info.IsDir() {
		return criterio.NewFieldErrors("config_file", fmt.Errorf("%s is a directory, not a file", configPath))
	}
	return nil
}

// executableExists validates that path resolves to an executable.
func executableExists(path string) error {
	if path == "" {
		return nil
	}
	if _, err := exec.LookPath(path); err != nil {
		return fmt.Errorf("executable not found: %s", path)
	}
	return nil
}

// isDirectoryOrNotExist validates that a path is a directory or doesn't exist.
func isDirectoryOrNotExist(path string) error {
	if path == "" {
		return nil
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return nil // will be created
	}
	if err != nil {
		return fmt.Errorf("cannot access: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("exists but is not a directory")
	}
	return nil
}
