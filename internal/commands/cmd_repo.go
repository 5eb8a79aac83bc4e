package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/wpforge/internal/core/styles"
	"github.com/colonyops/wpforge/internal/forge"
	"github.com/urfave/cli/v3"
)

type RepoCmd struct {
	flags *Flags
	app   *forge.App

	name   string
	branch string
	reset  bool
}

func NewRepoCmd(flags *Flags, app *forge.App) *RepoCmd {
	return &RepoCmd{flags: flags, app: app}
}

func (cmd *RepoCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "repo",
		Usage: "Manage project repositories",
		Commands: []*cli.Command{
			{
				Name:      "clone",
				Usage:     "Clone a repository as a new project",
				UsageText: "wpforge repo clone [options] <url>",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "name",
						Aliases:     []string{"n"},
						Usage:       "project name (defaults to the repository name)",
						Destination: &cmd.name,
					},
				},
				Action: cmd.runClone,
			},
			{
				Name:          "sync",
				Usage:         "Pull the latest changes into a project",
				UsageText:     "wpforge repo sync [options] <project>",
				ShellComplete: ProjectNameCompleter(cmd.app),
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:        "branch",
						Aliases:     []string{"b"},
						Usage:       "branch to check out before pulling",
						Destination: &cmd.branch,
					},
					&cli.BoolFlag{
						Name:        "reset",
						Usage:       "discard local changes before pulling",
						Destination: &cmd.reset,
					},
				},
				Action: cmd.runSync,
			},
		},
	})
	return app
}

func (cmd *RepoCmd) runClone(ctx context.Context, c *cli.Command) error {
	if !c.Args().Present() {
		return errors.New("usage: wpforge repo clone <url>")
	}

	dir, err := cmd.app.Projects.Clone(ctx, c.Args().First(), cmd.name)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.Root().Writer, "%s cloned into %s\n", styles.TextSuccessStyle.Render("✔"), dir)
	return err
}

func (cmd *RepoCmd) runSync(ctx context.Context, c *cli.Command) error {
	if !c.Args().Present() {
		return errors.New("usage: wpforge repo sync <project>")
	}

	project := c.Args().First()
	if err := cmd.app.Projects.Sync(ctx, project, forge.SyncOptions{Branch: cmd.branch, Reset: cmd.reset}); err != nil {
		return err
	}

	_, err := fmt.Fprintf(c.Root().Writer, "%s %s is up to date\n", styles.TextSuccessStyle.Render("✔"), project)
	return err
}
