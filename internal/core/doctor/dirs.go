package doctor

import (
	"context"
	"fmt"
	"os"
)

// Dir is a directory wpforge expects to exist.
type Dir struct {
	Label string
	Path  string
}

// DirsCheck verifies that configured directories exist and are accessible.
// Missing directories are fixable; with autofix they are created.
type DirsCheck struct {
	dirs    []Dir
	autofix bool
}

// NewDirsCheck creates a new directories check.
func NewDirsCheck(dirs []Dir, autofix bool) *DirsCheck {
	return &DirsCheck{dirs: dirs, autofix: autofix}
}

func (c *DirsCheck) Name() string {
	return "Directories"
}

func (c *DirsCheck) Run(_ context.Context) Result {
	result := Result{Name: c.Name()}

	for _, dir := range c.dirs {
		info, err := os.Stat(dir.Path)
		switch {
		case os.IsNotExist(err) && c.autofix:
			if err := os.MkdirAll(dir.Path, 0o755); err != nil {
				result.Items = append(result.Items, CheckItem{
					Label:  dir.Label,
					Status: StatusFail,
					Detail: fmt.Sprintf("create %s: %v", dir.Path, err),
				})
				continue
			}
			result.Items = append(result.Items, CheckItem{
				Label:  dir.Label,
				Status: StatusPass,
				Detail: "created " + dir.Path,
			})
		case os.IsNotExist(err):
			result.Items = append(result.Items, CheckItem{
				Label:   dir.Label,
				Status:  StatusWarn,
				Detail:  dir.Path + " does not exist",
				Fixable: true,
			})
		case err != nil:
			result.Items = append(result.Items, CheckItem{
				Label:  dir.Label,
				Status: StatusFail,
				Detail: fmt.Sprintf("inaccessible: %v", err),
			})
		case !info.IsDir():
			result.Items = append(result.Items, CheckItem{
				Label:  dir.Label,
				Status: StatusFail,
				Detail: dir.Path + " is not a directory",
			})
		default:
			result.Items = append(result.Items, CheckItem{
				Label:  dir.Label,
				Status: StatusPass,
				Detail: dir.Path,
			})
		}
	}

	return result
}
