package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/wpforge/internal/core/styles"
	"github.com/colonyops/wpforge/internal/forge"
	"github.com/urfave/cli/v3"
)

type WhichCmd struct {
	flags *Flags
	app   *forge.App
	quiet bool
}

func NewWhichCmd(flags *Flags, app *forge.App) *WhichCmd {
	return &WhichCmd{flags: flags, app: app}
}

func (cmd *WhichCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "which",
		Usage:       "Check whether commands are available",
		UsageText:   "wpforge which [options] <name...>",
		Description: "Exits 1 when any of the named commands cannot be found.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:        "quiet",
				Aliases:     []string{"q"},
				Usage:       "print nothing, only set the exit code",
				Destination: &cmd.quiet,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *WhichCmd) run(ctx context.Context, c *cli.Command) error {
	if !c.Args().Present() {
		return errors.New("usage: wpforge which <name...>")
	}

	w := c.Root().Writer
	missing := 0
	for _, name := range c.Args().Slice() {
		found := cmd.app.Prober.CommandExists(ctx, name)
		if !found {
			missing++
		}
		if cmd.quiet {
			continue
		}
		if found {
			_, _ = fmt.Fprintf(w, "%s %s\n", styles.TextSuccessStyle.Render("✔"), name)
		} else {
			_, _ = fmt.Fprintf(w, "%s %s %s\n", styles.TextErrorStyle.Render("✘"), name, styles.TextMutedStyle.Render("not found"))
		}
	}

	if missing > 0 {
		return cli.Exit("", 1)
	}
	return nil
}
