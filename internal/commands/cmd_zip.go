package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/colonyops/wpforge/internal/core/config"
	"github.com/colonyops/wpforge/internal/core/styles"
	"github.com/colonyops/wpforge/internal/forge"
	"github.com/colonyops/wpforge/pkg/iojson"
	"github.com/colonyops/wpforge/pkg/ziputil"
	"github.com/dustin/go-humanize"
	"github.com/urfave/cli/v3"
)

type ZipCmd struct {
	flags *Flags
	app   *forge.App

	format string

	// extract
	overwrite    bool
	noCreateDirs bool
	staged       bool
	progress     bool
	include      []string
	exclude      []string
	maxEntries   int
	maxFileSize  string
	maxTotalSize string

	// validate
	kind string
}

func NewZipCmd(flags *Flags, app *forge.App) *ZipCmd {
	return &ZipCmd{flags: flags, app: app}
}

func (cmd *ZipCmd) formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:        "format",
		Usage:       "output format (text, json)",
		Value:       "text",
		Destination: &cmd.format,
	}
}

func (cmd *ZipCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "zip",
		Usage: "Inspect, validate and safely extract ZIP archives",
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "List the entries of an archive",
				UsageText: "wpforge zip list [options] <archive>",
				Flags:     []cli.Flag{cmd.formatFlag()},
				Action:    cmd.runList,
			},
			{
				Name:      "extract",
				Usage:     "Extract an archive into a directory",
				UsageText: "wpforge zip extract [options] <archive> <dest>",
				Description: `Extracts regular files from the archive. Entries with unsafe names
(absolute paths, parent traversal, NUL bytes, overlong names), entries that
would resolve outside dest, symlink entries and files above the per-file
limit are skipped. Exceeding the entry count or total size quota aborts the
extraction; files already written are kept unless --staged is set.`,
				Flags: []cli.Flag{
					cmd.formatFlag(),
					&cli.BoolFlag{
						Name:        "overwrite",
						Usage:       "replace files that already exist",
						Destination: &cmd.overwrite,
					},
					&cli.BoolFlag{
						Name:        "no-create-dirs",
						Usage:       "skip entries whose parent directory does not exist",
						Destination: &cmd.noCreateDirs,
					},
					&cli.BoolFlag{
						Name:        "staged",
						Usage:       "extract into a staging directory and move it into place only on success (dest must be empty)",
						Destination: &cmd.staged,
					},
					&cli.BoolFlag{
						Name:        "progress",
						Usage:       "write JSON progress records to stderr",
						Destination: &cmd.progress,
					},
					&cli.StringSliceFlag{
						Name:        "include",
						Usage:       "only extract entries matching the glob (repeatable, supports **)",
						Destination: &cmd.include,
					},
					&cli.StringSliceFlag{
						Name:        "exclude",
						Usage:       "skip entries matching the glob (repeatable, supports **)",
						Destination: &cmd.exclude,
					},
					&cli.IntFlag{
						Name:        "max-entries",
						Usage:       "maximum number of entries (default from config)",
						Destination: &cmd.maxEntries,
					},
					&cli.StringFlag{
						Name:        "max-file-size",
						Usage:       "maximum size of a single file, e.g. 50MB (default from config)",
						Destination: &cmd.maxFileSize,
					},
					&cli.StringFlag{
						Name:        "max-total-size",
						Usage:       "maximum bytes written in total, e.g. 1GiB (default from config)",
						Destination: &cmd.maxTotalSize,
					},
				},
				Action: cmd.runExtract,
			},
			{
				Name:      "validate",
				Usage:     "Check an archive against WordPress packaging conventions",
				UsageText: "wpforge zip validate [options] <archive>",
				Flags: []cli.Flag{
					cmd.formatFlag(),
					&cli.StringFlag{
						Name:        "kind",
						Aliases:     []string{"k"},
						Usage:       "expected package kind (theme, plugin, generic)",
						Value:       string(ziputil.KindGeneric),
						Destination: &cmd.kind,
					},
				},
				Action: cmd.runValidate,
			},
		},
	})
	return app
}

func (cmd *ZipCmd) runList(_ context.Context, c *cli.Command) error {
	if !c.Args().Present() {
		return errors.New("usage: wpforge zip list <archive>")
	}

	entries, err := ziputil.Entries(c.Args().First())
	if err != nil {
		return err
	}

	if cmd.format == "json" {
		return iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, entries)
	}

	w := c.Root().Writer
	var total uint64
	for _, e := range entries {
		total += e.UncompressedSize
		size := humanize.IBytes(e.UncompressedSize)
		if e.IsDir {
			size = "-"
		}
		_, _ = fmt.Fprintf(w, "%10s  %s  %s\n", size, e.Modified.Format("2006-01-02 15:04"), e.Name)
	}
	_, _ = fmt.Fprintln(w, styles.TextMutedStyle.Render(fmt.Sprintf("%d entries, %s", len(entries), humanize.IBytes(total))))
	return nil
}

func (cmd *ZipCmd) runExtract(ctx context.Context, c *cli.Command) error {
	if c.Args().Len() != 2 {
		return errors.New("usage: wpforge zip extract <archive> <dest>")
	}

	opts := ziputil.DefaultOptions()
	opts.Overwrite = cmd.overwrite
	opts.CreateDirectories = !cmd.noCreateDirs
	opts.Staged = cmd.staged

	limits, err := cmd.limits()
	if err != nil {
		return err
	}
	opts.Limits = limits

	if len(cmd.include) > 0 || len(cmd.exclude) > 0 {
		filter, err := ziputil.GlobFilter(cmd.include, cmd.exclude)
		if err != nil {
			return err
		}
		opts.Filter = filter
	}

	if cmd.progress {
		ew := c.Root().ErrWriter
		opts.Progress = func(p ziputil.Progress) { _ = iojson.WriteLine(ew, p) }
	}

	res, err := cmd.app.Extractor.Extract(ctx, c.Args().Get(0), c.Args().Get(1), opts)

	if cmd.format == "json" {
		out := struct {
			ziputil.Result
			Error string `json:"error,omitempty"`
		}{Result: res}
		if out.Files == nil {
			out.Files = []ziputil.ExtractedFile{}
		}
		if err != nil {
			out.Error = err.Error()
		}
		if werr := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, out); werr != nil {
			return werr
		}
		if err != nil {
			return cli.Exit("", 1)
		}
		return nil
	}

	if err != nil {
		return err
	}

	summary := fmt.Sprintf("%d files, %s", res.FilesExtracted, humanize.IBytes(uint64(res.TotalBytes)))
	if res.Skipped > 0 {
		summary += styles.TextWarningStyle.Render(fmt.Sprintf(" (%d skipped)", res.Skipped))
	}
	_, err = fmt.Fprintf(c.Root().Writer, "%s extracted %s\n", styles.TextSuccessStyle.Render("✔"), summary)
	return err
}

// limits returns per-call overrides for the flags that were set. Unset
// fields stay zero so the extractor's configured limits apply.
func (cmd *ZipCmd) limits() (ziputil.Limits, error) {
	var l ziputil.Limits
	if cmd.maxEntries < 0 {
		return l, fmt.Errorf("--max-entries must not be negative")
	}
	l.MaxEntries = cmd.maxEntries

	for _, f := range []struct {
		flag  string
		value string
		dst   *uint64
	}{
		{"--max-file-size", cmd.maxFileSize, &l.MaxFileSize},
		{"--max-total-size", cmd.maxTotalSize, &l.MaxTotalSize},
	} {
		if f.value == "" {
			continue
		}
		n, err := config.ParseByteSize(f.value)
		if err != nil {
			return l, fmt.Errorf("%s: %w", f.flag, err)
		}
		*f.dst = uint64(n)
	}
	return l, nil
}

func (cmd *ZipCmd) runValidate(_ context.Context, c *cli.Command) error {
	if !c.Args().Present() {
		return errors.New("usage: wpforge zip validate <archive>")
	}

	kind, err := ziputil.ParseKind(cmd.kind)
	if err != nil {
		return err
	}

	report, err := cmd.app.Extractor.Validate(c.Args().First(), kind)
	if err != nil {
		return err
	}

	if cmd.format == "json" {
		if err := iojson.WriteWith(c.Root().Writer, c.Root().ErrWriter, report); err != nil {
			return err
		}
	} else {
		cmd.printReport(c, report)
	}

	if !report.Valid {
		return cli.Exit("", 1)
	}
	return nil
}

func (cmd *ZipCmd) printReport(c *cli.Command, report *ziputil.Report) {
	w := c.Root().Writer
	m := report.Metadata

	root := m.RootDir
	if root == "" {
		root = "-"
	}
	_, _ = fmt.Fprintf(w, "%s %s\n", styles.TextForegroundBoldStyle.Render(string(m.Kind)), styles.TextMutedStyle.Render(
		fmt.Sprintf("root %s, %d files, %d dirs, %s", root, m.FileCount, m.DirCount, humanize.IBytes(m.TotalSize)),
	))

	for _, e := range report.Errors {
		_, _ = fmt.Fprintf(w, "  %s %s\n", styles.TextErrorStyle.Render("✘"), e)
	}
	for _, warn := range report.Warnings {
		_, _ = fmt.Fprintf(w, "  %s %s\n", styles.TextWarningStyle.Render("●"), warn)
	}
	if report.Valid {
		_, _ = fmt.Fprintf(w, "  %s valid\n", styles.TextSuccessStyle.Render("✔"))
	}
}
