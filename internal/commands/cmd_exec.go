package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/colonyops/wpforge/internal/forge"
	"github.com/colonyops/wpforge/pkg/executil"
	"github.com/colonyops/wpforge/pkg/iojson"
	"github.com/urfave/cli/v3"
)

// ExecInput is the JSON request accepted by `wpforge exec -f`.
type ExecInput struct {
	Command  string            `json:"command"`
	Args     []string          `json:"args"`
	Dir      string            `json:"dir"`
	Env      map[string]string `json:"env"`
	EnvFiles []string          `json:"env_files"`
	Timeout  string            `json:"timeout"`
	Retries  *int              `json:"retries"`
}

type ExecCmd struct {
	flags *Flags
	app   *forge.App
	fr    *iojson.FileReader[ExecInput]

	timeout  time.Duration
	retries  int
	dir      string
	env      []string
	envFiles []string
	stream   bool
	json     bool
}

func NewExecCmd(flags *Flags, app *forge.App) *ExecCmd {
	return &ExecCmd{
		flags: flags,
		app:   app,
		fr:    &iojson.FileReader[ExecInput]{},
	}
}

func (cmd *ExecCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "exec",
		Usage: "Run a command with timeouts and retries",
		UsageText: `wpforge exec [options] -- <command> [args...]
wpforge exec -f request.json`,
		Description: `Runs a program directly, without a shell, and reports its outcome.

Each attempt is bounded by --timeout. Attempts that fail to start, time out
or are killed by a signal are retried with exponential backoff, unless the
failure is terminal (missing program, permission denied). A command that
exits with a non-zero code is not retried; its exit code is passed through.

With -f the request is read as JSON:
  {"command": "wp", "args": ["core", "version"], "timeout": "10s", "retries": 0}`,
		Flags: []cli.Flag{
			cmd.fr.Flag(),
			&cli.DurationFlag{
				Name:        "timeout",
				Aliases:     []string{"t"},
				Usage:       "per-attempt timeout (default from config)",
				Destination: &cmd.timeout,
			},
			&cli.IntFlag{
				Name:        "retries",
				Aliases:     []string{"r"},
				Usage:       "retries after the first attempt (default from config)",
				Destination: &cmd.retries,
			},
			&cli.StringFlag{
				Name:        "dir",
				Aliases:     []string{"C"},
				Usage:       "working directory",
				Destination: &cmd.dir,
			},
			&cli.StringSliceFlag{
				Name:        "env",
				Aliases:     []string{"e"},
				Usage:       "environment variable KEY=VALUE (repeatable)",
				Destination: &cmd.env,
			},
			&cli.StringSliceFlag{
				Name:        "env-file",
				Usage:       "dotenv file to load (repeatable)",
				Destination: &cmd.envFiles,
			},
			&cli.BoolFlag{
				Name:        "stream",
				Usage:       "stream stdout as it is produced (single attempt)",
				Destination: &cmd.stream,
			},
			&cli.BoolFlag{
				Name:        "json",
				Usage:       "print the result as JSON",
				Destination: &cmd.json,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ExecCmd) run(ctx context.Context, c *cli.Command) error {
	name, args, opts, err := cmd.request(c)
	if err != nil {
		return err
	}

	var res executil.Result
	if cmd.stream {
		w := c.Root().Writer
		res = cmd.app.Exec.ExecuteStream(ctx, func(p []byte) { _, _ = w.Write(p) }, name, args, opts...)
		writeOutput(c.Root().ErrWriter, res.Stderr)
		return exitStatus(res)
	}

	res = cmd.app.Exec.Execute(ctx, name, args, opts...)
	if cmd.json {
		if err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, toResultJSON(res)); err != nil {
			return err
		}
		return exitStatus(res)
	}

	return passthrough(c, res)
}

// request merges the JSON input, when given, with the command line. Flags
// override JSON fields.
func (cmd *ExecCmd) request(c *cli.Command) (string, []string, []executil.Option, error) {
	var (
		in   ExecInput
		opts []executil.Option
	)

	if cmd.fr.Provided() {
		var err error
		if in, err = cmd.fr.Read(); err != nil {
			return "", nil, nil, fmt.Errorf("read request: %w", err)
		}
	}

	if c.Args().Present() {
		in.Command = c.Args().First()
		in.Args = c.Args().Tail()
	}
	if in.Command == "" {
		return "", nil, nil, errors.New("a command is required")
	}

	if in.Timeout != "" {
		d, err := time.ParseDuration(in.Timeout)
		if err != nil {
			return "", nil, nil, fmt.Errorf("invalid timeout %q: %w", in.Timeout, err)
		}
		opts = append(opts, executil.WithTimeout(d))
	}
	if in.Retries != nil {
		opts = append(opts, executil.WithRetries(*in.Retries))
	}
	if in.Dir != "" {
		opts = append(opts, executil.WithDir(in.Dir))
	}
	for _, f := range in.EnvFiles {
		opts = append(opts, executil.WithEnvFile(f))
	}
	if len(in.Env) > 0 {
		opts = append(opts, executil.WithEnv(in.Env))
	}

	if c.IsSet("timeout") {
		opts = append(opts, executil.WithTimeout(cmd.timeout))
	}
	if c.IsSet("retries") {
		opts = append(opts, executil.WithRetries(cmd.retries))
	}
	if cmd.dir != "" {
		opts = append(opts, executil.WithDir(cmd.dir))
	}
	for _, f := range cmd.envFiles {
		opts = append(opts, executil.WithEnvFile(f))
	}
	for _, kv := range cmd.env {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			return "", nil, nil, fmt.Errorf("invalid --env %q, want KEY=VALUE", kv)
		}
		opts = append(opts, executil.WithEnvVar(key, value))
	}

	return in.Command, in.Args, opts, nil
}
