package doctor

import (
	"context"
)

// Prober reports whether a command can be found.
type Prober interface {
	CommandExists(ctx context.Context, name string) bool
}

// Tool is an external program wpforge drives.
type Tool struct {
	Name     string // display name
	Path     string // configured executable
	Required bool
	Purpose  string
}

// ToolsCheck verifies that external tools are available on $PATH.
type ToolsCheck struct {
	prober Prober
	tools  []Tool
}

// NewToolsCheck creates a new tools check.
func NewToolsCheck(prober Prober, tools []Tool) *ToolsCheck {
	return &ToolsCheck{prober: prober, tools: tools}
}

func (c *ToolsCheck) Name() string {
	return "Tools"
}

func (c *ToolsCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	for _, tool := range c.tools {
		if c.prober.CommandExists(ctx, tool.Path) {
			result.Items = append(result.Items, CheckItem{
				Label:  tool.Name,
				Status: StatusPass,
				Detail: tool.Path,
			})
			continue
		}

		status := StatusWarn
		if tool.Required {
			status = StatusFail
		}
		detail := tool.Path + " not found on PATH"
		if tool.Purpose != "" {
			detail += " (required for " + tool.Purpose + ")"
		}
		result.Items = append(result.Items, CheckItem{
			Label:  tool.Name,
			Status: status,
			Detail: detail,
		})
	}

	return result
}
