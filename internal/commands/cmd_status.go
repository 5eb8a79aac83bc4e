package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/wpforge/internal/core/styles"
	"github.com/colonyops/wpforge/internal/forge"
	"github.com/colonyops/wpforge/pkg/iojson"
	"github.com/urfave/cli/v3"
)

type StatusCmd struct {
	flags  *Flags
	app    *forge.App
	format string
}

func NewStatusCmd(flags *Flags, app *forge.App) *StatusCmd {
	return &StatusCmd{flags: flags, app: app}
}

func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:          "status",
		Usage:         "Show a project's container and git state",
		UsageText:     "wpforge status [options] <project>",
		ShellComplete: ProjectNameCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	if !c.Args().Present() {
		return errors.New("usage: wpforge status <project>")
	}

	st, err := cmd.app.Projects.Status(ctx, c.Args().First())
	if err != nil {
		return err
	}

	if cmd.format == "json" {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, st)
	}

	w := c.Root().Writer
	_, _ = fmt.Fprintln(w, styles.TextPrimaryBoldStyle.Render(st.Project))
	_, _ = fmt.Fprintf(w, "  %-10s %s\n", "dir", styles.TextMutedStyle.Render(st.Dir))
	_, _ = fmt.Fprintf(w, "  %-10s %s\n", "container", st.Container)

	if st.Git == nil {
		_, _ = fmt.Fprintf(w, "  %-10s %s\n", "git", styles.TextMutedStyle.Render(st.GitError))
		return nil
	}

	state := styles.GitCleanStyle.Render("clean")
	if !st.Git.Clean {
		state = styles.GitDirtyStyle.Render("dirty")
	}
	_, _ = fmt.Fprintf(w, "  %-10s %s %s %s %s\n", "git",
		st.Git.Branch,
		state,
		styles.GitAdditionsStyle.Render(fmt.Sprintf("+%d", st.Git.Additions)),
		styles.GitDeletionsStyle.Render(fmt.Sprintf("-%d", st.Git.Deletions)),
	)
	if st.Git.Remote != "" {
		_, _ = fmt.Fprintf(w, "  %-10s %s\n", "remote", st.Git.Remote)
	}
	return nil
}
