package doctor

import (
	"context"
	"strings"
)

// DaemonProber reports whether the container runtime answers.
type DaemonProber interface {
	DaemonRunning(ctx context.Context) (string, bool)
}

// DockerCheck verifies the docker daemon is reachable.
type DockerCheck struct {
	docker DaemonProber
}

func NewDockerCheck(docker DaemonProber) *DockerCheck {
	return &DockerCheck{docker: docker}
}

func (c *DockerCheck) Name() string {
	return "Docker"
}

func (c *DockerCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	detail, ok := c.docker.DaemonRunning(ctx)
	if !ok {
		result.Items = append(result.Items, CheckItem{
			Label:  "daemon",
			Status: StatusFail,
			Detail: firstLine(detail),
		})
		return result
	}

	result.Items = append(result.Items, CheckItem{
		Label:  "daemon",
		Status: StatusPass,
		Detail: "server " + detail,
	})
	return result
}

// AuthProber reports whether a CLI has a logged in account.
type AuthProber interface {
	Authenticated(ctx context.Context) (bool, string)
}

// GitHubCheck verifies the gh CLI is logged in. Missing auth is a warning
// since only release downloads need it.
type GitHubCheck struct {
	gh AuthProber
}

func NewGitHubCheck(gh AuthProber) *GitHubCheck {
	return &GitHubCheck{gh: gh}
}

func (c *GitHubCheck) Name() string {
	return "GitHub"
}

func (c *GitHubCheck) Run(ctx context.Context) Result {
	result := Result{Name: c.Name()}

	ok, msg := c.gh.Authenticated(ctx)
	item := CheckItem{Label: "gh auth", Status: StatusPass, Detail: "logged in"}
	if !ok {
		item.Status = StatusWarn
		item.Detail = firstLine(msg)
		if item.Detail == "" {
			item.Detail = "not logged in, run 'gh auth login'"
		}
	}
	result.Items = append(result.Items, item)
	return result
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i != -1 {
		return strings.TrimSpace(s[:i])
	}
	return s
}
