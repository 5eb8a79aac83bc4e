package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/wpforge/internal/core/logging"
	"github.com/colonyops/wpforge/internal/forge"
	"github.com/urfave/cli/v3"
)

type DockerCmd struct {
	flags *Flags
	app   *forge.App
}

func NewDockerCmd(flags *Flags, app *forge.App) *DockerCmd {
	return &DockerCmd{flags: flags, app: app}
}

func (cmd *DockerCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:            "docker",
			Usage:           "Run docker with the configured timeout and retries",
			UsageText:       "wpforge docker <args...>",
			SkipFlagParsing: true,
			Action:          cmd.runDocker,
		},
		&cli.Command{
			Name:      "wp",
			Usage:     "Run a WP-CLI command in a project's WordPress container",
			UsageText: "wpforge wp <project> <command> [args...]",
			Description: `Resolves the project's WordPress container and runs WP-CLI in it:

  docker exec <container> wp <command> [args...] --allow-root

The command may be quoted to pass several words, e.g. wpforge wp blog "plugin list".`,
			SkipFlagParsing: true,
			ShellComplete:   ProjectNameCompleter(cmd.app),
			Action:          cmd.runWP,
		},
		&cli.Command{
			Name:          "container",
			Usage:         "Print the container running a project's compose service",
			UsageText:     "wpforge container <project> [service]",
			ShellComplete: ProjectNameCompleter(cmd.app),
			Action:        cmd.runContainer,
		},
	)
	return app
}

func (cmd *DockerCmd) runDocker(ctx context.Context, c *cli.Command) error {
	if !c.Args().Present() {
		return errors.New("usage: wpforge docker <args...>")
	}

	w := c.Root().Writer
	res := cmd.app.Docker.Stream(ctx, func(p []byte) { _, _ = w.Write(p) }, c.Args().Slice())
	writeOutput(c.Root().ErrWriter, res.Stderr)
	return exitStatus(res)
}

func (cmd *DockerCmd) runWP(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() < 2 {
		return errors.New("usage: wpforge wp <project> <command> [args...]")
	}

	project := c.Args().Get(0)
	if _, err := cmd.app.Projects.Dir(project); err != nil {
		return err
	}
	ctx = logging.WithProject(ctx, project)

	res := cmd.app.Docker.WPCLI(ctx, project, c.Args().Get(1), c.Args().Slice()[2:])
	return passthrough(c, res)
}

func (cmd *DockerCmd) runContainer(ctx context.Context, c *cli.Command) error {
	if !c.Args().Present() {
		return errors.New("usage: wpforge container <project> [service]")
	}

	project := c.Args().First()
	if _, err := cmd.app.Projects.Dir(project); err != nil {
		return err
	}

	name := cmd.app.Docker.ContainerName(logging.WithProject(ctx, project), project, c.Args().Get(1))
	_, err := fmt.Fprintln(c.Root().Writer, name)
	return err
}
