package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/wpforge/internal/commands"
	"github.com/colonyops/wpforge/internal/core/config"
	"github.com/colonyops/wpforge/internal/core/logging"
	"github.com/colonyops/wpforge/internal/core/styles"
	"github.com/colonyops/wpforge/internal/forge"
	"github.com/colonyops/wpforge/internal/telemetry"
	"github.com/colonyops/wpforge/pkg/logutils"
	"github.com/colonyops/wpforge/pkg/profiler"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, init() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	var (
		logCloser     func()
		traceShutdown telemetry.ShutdownFunc
		profServer    *profiler.Server
		forgeApp      = &forge.App{}
	)

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "wpforge",
		Usage:     "Run and package WordPress projects safely",
		UsageText: "wpforge [global options] command [command options]",
		Description: `wpforge drives the tools around local WordPress development: docker
compose projects, WP-CLI, git checkouts and GitHub releases.

Every external command runs without a shell, with a per-attempt timeout and
bounded retries. Theme and plugin archives are validated and extracted with
path traversal protection and size quotas.`,
		Version:               build(),
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("WPFORGE_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file, - for stderr",
				Sources:     cli.EnvVars("WPFORGE_LOG_FILE"),
				Value:       commands.DefaultLogFile(),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("WPFORGE_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("WPFORGE_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
			&cli.StringFlag{
				Name:        "trace-file",
				Usage:       "write OpenTelemetry spans as JSON to this file",
				Sources:     cli.EnvVars("WPFORGE_TRACE_FILE"),
				Destination: &flags.TraceFile,
			},
			&cli.IntFlag{
				Name:        "profiler-port",
				Usage:       "serve pprof endpoints on localhost at this port (0 disables)",
				Sources:     cli.EnvVars("WPFORGE_PROFILER_PORT"),
				Destination: &flags.ProfilerPort,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logFile := flags.LogFile
			if logFile == "-" {
				logFile = ""
			}

			logger, closer, err := logutils.New(flags.LogLevel, logFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			cfg, err := config.Load(flags.ConfigPath, flags.DataDir)
			if err != nil {
				return ctx, fmt.Errorf("load config: %w", err)
			}
			flags.Config = cfg

			// Apply configured theme (validation ensures name is valid)
			palette, _ := styles.GetPalette(cfg.Theme)
			styles.SetTheme(palette)

			traceShutdown, err = telemetry.NewProvider(flags.TraceFile, version)
			if err != nil {
				return ctx, fmt.Errorf("setup tracing: %w", err)
			}

			if flags.ProfilerPort > 0 {
				profServer = profiler.New(flags.ProfilerPort, logging.ComponentOf(logger, "profiler"))
				if err := profServer.Start(ctx); err != nil {
					return ctx, fmt.Errorf("failed to start profiler: %w", err)
				}
			}

			// Populate the pre-allocated App struct (commands already hold a pointer to it)
			*forgeApp = *forge.NewApp(cfg, logger)

			return logging.WithInvocationID(ctx, uuid.NewString()), nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if profServer != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				if err := profServer.Shutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("failed to shutdown profiler server")
				}
				cancel()
			}

			if traceShutdown != nil {
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := traceShutdown(shutdownCtx); err != nil {
					log.Error().Err(err).Msg("failed to flush traces")
				}
			}

			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewExecCmd(flags, forgeApp).Register(app)
	app = commands.NewWhichCmd(flags, forgeApp).Register(app)
	app = commands.NewDockerCmd(flags, forgeApp).Register(app)
	app = commands.NewGitHubCmd(flags, forgeApp).Register(app)
	app = commands.NewStatusCmd(flags, forgeApp).Register(app)
	app = commands.NewRepoCmd(flags, forgeApp).Register(app)
	app = commands.NewZipCmd(flags, forgeApp).Register(app)
	app = commands.NewInstallCmd(flags, forgeApp).Register(app)
	app = commands.NewDoctorCmd(flags, forgeApp).Register(app)
	app = commands.NewConfigCmd(flags).Register(app)

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		_, _ = fmt.Fprintln(os.Stderr, runErr.Error())
		exitCode = 1
	}

	stop()
	os.Exit(exitCode)
}
