package commands

import (
	"context"
	"errors"

	"github.com/colonyops/wpforge/internal/forge"
	"github.com/urfave/cli/v3"
)

type GitHubCmd struct {
	flags *Flags
	app   *forge.App
}

func NewGitHubCmd(flags *Flags, app *forge.App) *GitHubCmd {
	return &GitHubCmd{flags: flags, app: app}
}

func (cmd *GitHubCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:            "gh",
		Usage:           "Run the GitHub CLI with the configured timeout and retries",
		UsageText:       "wpforge gh <args...>",
		SkipFlagParsing: true,
		Action:          cmd.run,
	})
	return app
}

func (cmd *GitHubCmd) run(ctx context.Context, c *cli.Command) error {
	if !c.Args().Present() {
		return errors.New("usage: wpforge gh <args...>")
	}
	return passthrough(c, cmd.app.GitHub.Run(ctx, c.Args().Slice()))
}
