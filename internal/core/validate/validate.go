// Package validate provides shared validation functions.
package validate

import (
	"fmt"
	"strings"

	"github.com/hay-kot/criterio"
)

// ProjectName validates that name can be used as a single directory under
// the projects dir.
func ProjectName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return fmt.Errorf("name is required")
	case name == "." || name == "..":
		return fmt.Errorf("name %q is reserved", name)
	case strings.HasPrefix(name, "."):
		return fmt.Errorf("name must not start with a dot")
	case strings.ContainsAny(name, `/\`):
		return fmt.Errorf("name must not contain path separators")
	case strings.ContainsRune(name, 0):
		return fmt.Errorf("name must not contain NUL")
	}
	return nil
}

// ProjectNameField returns a criterio validator for project names.
func ProjectNameField(field, name string) error {
	return criterio.Run(field, name, ProjectName)
}
