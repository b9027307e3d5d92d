package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"ionhash/internal/appconfig"
	"ionhash/internal/applog"
	"ionhash/internal/appstate"
)

// initializeAppContext prepares the environment before a subcommand runs.
func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if cmd.NArg() == 0 {
		// bare invocation with no subcommand: nothing to set up, let urfave/cli show help.
		return ctx, nil
	}

	env := appstate.EnvFromContext(ctx)

	cfg, err := appconfig.Load(cmd.String("config"))
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	if cmd.Bool("debug") {
		cfg.Logging.Console.Level = "debug"
	}
	env.Cfg = cfg

	log, err := applog.Prepare(cfg.Logging)
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.Log = log
	env.RedirectStdLog()

	env.Log.Debug("program started", zap.Strings("args", os.Args), zap.String("runtime", runtime.Version()))
	return ctx, nil
}

// destroyAppContext tears down the environment after a subcommand runs,
// aggregating independent cleanup failures with multierr.
func destroyAppContext(ctx context.Context, cmd *cli.Command) (err error) {
	env := appstate.EnvFromContext(ctx)
	if env.Log == nil {
		return nil
	}
	env.Log.Debug("program ended", zap.Duration("elapsed", env.Uptime()))

	if syncErr := env.RestoreStdLog(); syncErr != nil {
		err = multierr.Append(err, fmt.Errorf("syncing logger: %w", syncErr))
	}
	return err
}

// errWasHandled tracks whether exitErrHandler already logged the error, so
// main doesn't print it a second time to stderr.
var errWasHandled bool

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	env := appstate.EnvFromContext(ctx)
	if env.Log != nil {
		env.Log.Error("program ended with error", zap.Error(err))
		errWasHandled = true
	}
}

func usageErrorHandler(_ context.Context, _ *cli.Command, err error, _ bool) error {
	return err
}

func subcommandNotFoundHandler(ctx context.Context, _ *cli.Command, name string) {
	env := appstate.EnvFromContext(ctx)
	if env.Log != nil {
		env.Log.Warn("unknown command, nothing to do", zap.String("command", name))
	}
}

func main() {
	ctx, stop := signal.NotifyContext(appstate.ContextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)

	app := &cli.Command{
		Name:            "ionhash",
		Usage:           "compute Amazon Ion Hash digests",
		Version:         "1.0.0 (" + runtime.Version() + ")",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		OnUsageError:    usageErrorHandler,
		ExitErrHandler:  exitErrHandler,
		CommandNotFound: subcommandNotFoundHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: "load configuration from `FILE` (YAML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "enable debug-level console logging"},
		},
		Commands: []*cli.Command{
			{
				Name:         "hash",
				Usage:        "compute the Ion Hash digest of one or more files",
				OnUsageError: usageErrorHandler,
				Action:       runHash,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "alg", Usage: "hash `ALGORITHM(S)`, comma-separated (sha256, sha1, md5, sha512, blake2b256); defaults to the configured algorithm"},
					&cli.StringFlag{Name: "pattern", Usage: "for .zip inputs, only hash entries whose name has this `PREFIX`"},
				},
				ArgsUsage: "FILE...",
			},
			{
				Name:         "selftest",
				Usage:        "run the Ion Hash concrete test vectors in-process",
				OnUsageError: usageErrorHandler,
				Action:       runSelftest,
			},
		},
	}

	var err error
	defer func() {
		stop()
		if err != nil {
			if !errWasHandled {
				fmt.Fprintf(os.Stderr, "ionhash: %v\n", err)
			}
			os.Exit(1)
		}
	}()
	err = app.Run(ctx, os.Args)
}
