package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/wpforge/internal/core/styles"
	"github.com/colonyops/wpforge/internal/forge"
	"github.com/colonyops/wpforge/pkg/iojson"
	"github.com/colonyops/wpforge/pkg/ziputil"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

type InstallCmd struct {
	flags *Flags
	app   *forge.App

	kind      string
	archive   string
	repo      string
	tag       string
	pattern   string
	overwrite bool
	format    string
}

func NewInstallCmd(flags *Flags, app *forge.App) *InstallCmd {
	return &InstallCmd{flags: flags, app: app}
}

func (cmd *InstallCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "install",
		Usage: "Install a theme or plugin archive into a project",
		UsageText: `wpforge install [options] <project>

From a local archive:
  wpforge install --kind theme --archive mytheme.zip blog

From the latest GitHub release:
  wpforge install --kind plugin --repo acme/myplugin blog`,
		Description: `Validates the archive against WordPress packaging conventions, extracts its
top-level directory into a staging directory and moves it into
wp-content/themes or wp-content/plugins only when extraction succeeded.`,
		ShellComplete: ProjectNameCompleter(cmd.app),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "kind",
				Aliases:     []string{"k"},
				Usage:       "package kind (theme, plugin)",
				Required:    true,
				Destination: &cmd.kind,
			},
			&cli.StringFlag{
				Name:        "archive",
				Aliases:     []string{"a"},
				Usage:       "path to a local zip archive",
				Destination: &cmd.archive,
			},
			&cli.StringFlag{
				Name:        "repo",
				Usage:       "GitHub repository (owner/name) to download a release from",
				Destination: &cmd.repo,
			},
			&cli.StringFlag{
				Name:        "tag",
				Usage:       "release tag (default: latest)",
				Destination: &cmd.tag,
			},
			&cli.StringFlag{
				Name:        "pattern",
				Usage:       "release asset glob",
				Value:       "*.zip",
				Destination: &cmd.pattern,
			},
			&cli.BoolFlag{
				Name:        "overwrite",
				Usage:       "replace an existing installation",
				Destination: &cmd.overwrite,
			},
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

func (cmd *InstallCmd) run(ctx context.Context, c *cli.Command) error {
	if !c.Args().Present() {
		return errors.New("usage: wpforge install [options] <project>")
	}
	if (cmd.archive == "") == (cmd.repo == "") {
		return errors.New("exactly one of --archive or --repo is required")
	}

	kind, err := ziputil.ParseKind(cmd.kind)
	if err != nil {
		return err
	}

	res, err := cmd.app.Installs.Install(ctx, forge.InstallRequest{
		Project:   c.Args().First(),
		Kind:      kind,
		Archive:   cmd.archive,
		Repo:      cmd.repo,
		Tag:       cmd.tag,
		Pattern:   cmd.pattern,
		Overwrite: cmd.overwrite,
	})

	if cmd.format == "json" {
		if err != nil {
			return iojson.WriteErrorTo(c.Root().ErrWriter, err.Error(), map[string]any{"result": res})
		}
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, res)
	}

	w := c.Root().Writer
	if res.Report != nil {
		for _, warn := range res.Report.Warnings {
			_, _ = fmt.Fprintf(w, "%s %s\n", styles.TextWarningStyle.Render("●"), warn)
		}
	}
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "%s installed %s %s\n  %s\n",
		styles.TextSuccessStyle.Render("✔"),
		res.Kind,
		styles.TextMutedStyle.Render(fmt.Sprintf("(%d files, %s)", res.Files, humanize.IBytes(uint64(res.Bytes)))),
		res.Dest,
	)
	return err
}
