// Package docker wraps the docker CLI for WordPress compose projects.
package docker

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/colonyops/wpforge/pkg/executil"
	"github.com/rs/zerolog"
)

// Config configures a Client.
type Config struct {
	Path             string        // docker executable
	ProjectsDir      string        // parent of compose project directories
	WordPressService string        // compose service running WordPress
	Timeout          time.Duration // per-attempt default; 0 uses the runner default
}

// Client runs docker commands through an executil.Executor.
type Client struct {
	cfg  Config
	exec executil.Executor
	log  zerolog.Logger
}

// NewClient returns a Client.
func NewClient(cfg Config, exec executil.Executor, logger zerolog.Logger) *Client {
	if cfg.Path == "" {
		cfg.Path = "docker"
	}
	if cfg.WordPressService == "" {
		cfg.WordPressService = "wordpress"
	}
	return &Client{cfg: cfg, exec: exec, log: logger}
}

// withDefaults puts the docker timeout ahead of the caller's options so an
// explicit WithTimeout still wins.
func (c *Client) withDefaults(opts []executil.Option) []executil.Option {
	if c.cfg.Timeout <= 0 {
		return opts
	}
	return append([]executil.Option{executil.WithTimeout(c.cfg.Timeout)}, opts...)
}

// Run executes docker with args.
func (c *Client) Run(ctx context.Context, args []string, opts ...executil.Option) executil.Result {
	return c.exec.Execute(ctx, c.cfg.Path, args, c.withDefaults(opts)...)
}

// Stream executes docker with args in a single attempt, handing stdout to
// onStdout as it is produced. Useful for `logs -f` style commands.
func (c *Client) Stream(ctx context.Context, onStdout func([]byte), args []string, opts ...executil.Option) executil.Result {
	return c.exec.ExecuteStream(ctx, onStdout, c.cfg.Path, args, c.withDefaults(opts)...)
}

// WPCLI runs a WP-CLI command inside the project's WordPress container:
//
//	docker exec <container> wp <command...> <args...> --allow-root
//
// command may contain several words, e.g. "plugin list".
func (c *Client) WPCLI(ctx context.Context, project, command string, args []string, opts ...executil.Option) executil.Result {
	container := c.ContainerName(ctx, project, c.cfg.WordPressService)

	argv := make([]string, 0, 4+len(args))
	argv = append(argv, "exec", container, "wp")
	argv = append(argv, strings.Fields(command)...)
	argv = append(argv, args...)
	argv = append(argv, "--allow-root")

	return c.Run(ctx, argv, opts...)
}

// ContainerName resolves the running container for a compose service. It
// asks compose for the container id, then inspects it for the canonical
// name. If either step fails or returns nothing it falls back to the
// "<project>-<service>" convention. An empty service means the WordPress
// service. The project directory is expected to exist.
func (c *Client) ContainerName(ctx context.Context, project, service string) string {
	if service == "" {
		service = c.cfg.WordPressService
	}
	fallback := project + "-" + service
	log := c.log.With().Str("project", project).Str("service", service).Logger()

	res := c.Run(ctx, []string{"compose", "ps", "-q", service},
		executil.WithDir(c.ProjectDir(project)),
		executil.WithRetries(0),
	)
	id, err := res.Output()
	id = firstLine(id)
	if err != nil || id == "" {
		log.Debug().Err(err).Str("container", fallback).Msg("compose has no container id, using naming convention")
		return fallback
	}

	res = c.Run(ctx, []string{"inspect", "--format", "{{.Name}}", id}, executil.WithRetries(0))
	name, err := res.Output()
	name = strings.TrimPrefix(firstLine(name), "/")
	if err != nil || name == "" {
		log.Debug().Err(err).Str("id", id).Str("container", fallback).Msg("inspect failed, using naming convention")
		return fallback
	}

	return name
}

// DaemonRunning reports whether the docker daemon answers.
func (c *Client) DaemonRunning(ctx context.Context) (string, bool) {
	res := c.Run(ctx, []string{"info", "--format", "{{.ServerVersion}}"}, executil.WithRetries(0))
	out, err := res.Output()
	if err != nil {
		return strings.TrimSpace(res.Stderr), false
	}
	return strings.TrimSpace(out), true
}

// ProjectDir returns the compose directory for project.
func (c *Client) ProjectDir(project string) string {
	return filepath.Join(c.cfg.ProjectsDir, project)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i != -1 {
		s = strings.TrimSpace(s[:i])
	}
	return s
}
