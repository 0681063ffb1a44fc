package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/log"
	"github.com/honeycombio/otel-config-go/otelconfig"
	"github.com/urfave/cli/v2"

	pkgtest "github.com/debci/pkgtest"
	"github.com/debci/pkgtest/exitcodes"
	"github.com/debci/pkgtest/flags"
	"github.com/debci/pkgtest/service"
)

var (
	Version   = "v0.1.0"
	GitCommit = ""
	GitDate   = ""
)

func main() {
	app := cli.NewApp()
	app.Version = fmt.Sprintf("%s-%s-%s", Version, GitCommit, GitDate)
	app.Name = "pkgtest"
	app.Usage = "Package test-execution harness"
	app.Description = "pkgtest discovers declaratively-specified test groups and runs each test as an isolated subprocess"
	app.ArgsUsage = "[test name ...]"
	app.Flags = flags.Flags
	app.Action = run
	app.ExitErrHandler = func(c *cli.Context, err error) {
		var exitErr cli.ExitCoder
		if errors.As(err, &exitErr) {
			cli.HandleExitCoder(exitErr)
		} else if err != nil {
			if pkgtest.IsRuntimeError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			} else if pkgtest.IsTestFailureError(err) {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.TestFailure))
			} else {
				cli.HandleExitCoder(cli.Exit(err.Error(), exitcodes.RuntimeErr))
			}
		}
	}

	// Start telemetry
	shutdown, err := otelconfig.ConfigureOpenTelemetry(
		otelconfig.WithServiceName(app.Name),
		otelconfig.WithServiceVersion(app.Version),
	)
	if err != nil {
		log.Crit("Failed to setup open telemetry", "message", err)
	}
	defer shutdown()

	if err := app.Run(os.Args); err != nil {
		// ExitErrHandler already mapped the error to an exit code; this is
		// only reached if it declined to exit.
		log.Crit("Application failed", "message", err)
	}
}

func run(ctx *cli.Context) error {
	logLevel := log.LevelInfo
	if ctx.Bool(flags.Verbose.Name) {
		logLevel = log.LevelDebug
	}
	logger := log.NewLogger(log.NewTerminalHandlerWithLevel(os.Stderr, logLevel, true))
	log.SetDefault(logger)

	cfg, err := pkgtest.NewConfig(ctx, logger)
	if err != nil {
		return pkgtest.NewRuntimeError(fmt.Errorf("failed to create config: %w", err))
	}
	logger.Debug("Config",
		"control", cfg.Control,
		"sources", cfg.Sources,
		"tree", cfg.Tree,
		"selectedTests", cfg.SelectedTests)

	if cfg.Serve {
		svc := service.New()
		svc.Start(ctx.Context)
		defer svc.Shutdown()
	}

	harness, err := pkgtest.New(cfg)
	if err != nil {
		return pkgtest.NewRuntimeError(fmt.Errorf("failed to create harness: %w", err))
	}

	totals, err := harness.Run(ctx.Context)
	if err != nil {
		return pkgtest.NewRuntimeError(err)
	}
	if !totals.OK() {
		return pkgtest.NewTestFailureError(fmt.Sprintf("%d of %d tests failed", totals.Failed, totals.Total))
	}
	return nil
}
