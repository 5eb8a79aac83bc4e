package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/colonyops/wpforge/internal/forge"
	"github.com/urfave/cli/v3"
)

// ProjectNameCompleter returns a ShellCompleteFunc that suggests project
// names, the directories under the configured projects dir, as positional
// completions.
//
// When the user's last typed argument starts with "-", it falls back to the
// default flag completion behavior.
func ProjectNameCompleter(app *forge.App) cli.ShellCompleteFunc {
	return func(ctx context.Context, cmd *cli.Command) {
		// Delegate to default flag completion when typing a flag
		if args := cmd.Args(); args.Present() {
			last := args.Slice()[args.Len()-1]
			if len(last) > 0 && last[0] == '-' {
				cli.DefaultCompleteWithFlags(ctx, cmd)
				return
			}
		}

		if app.Config == nil {
			return
		}

		entries, err := os.ReadDir(app.Config.ProjectsDir)
		if err != nil {
			return
		}

		w := cmd.Root().Writer
		for _, e := range entries {
			if e.IsDir() && e.Name()[0] != '.' {
				_, _ = fmt.Fprintln(w, e.Name())
			}
		}
	}
}
