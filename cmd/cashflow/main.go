package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cashflow/internal/cli"
	applog "cashflow/internal/log"
	"cashflow/internal/remote"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// Diagnostics go to stderr so command output stays pipeable.
	logger := cli.SetupLogger(os.Stderr, cfg.LogLevel, applog.ComponentApp)

	client, err := remote.NewClient(cfg.APIURL, remote.WithTimeout(cfg.RequestTimeout))
	if err != nil {
		logger.ErrorContext(context.Background(), "Invalid API endpoint", applog.FieldError, err)
		os.Exit(1)
	}
	prefs, err := cli.OpenPrefs(cfg.PrefsPath)
	if err != nil {
		logger.ErrorContext(context.Background(), "Failed to open preferences", applog.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], env{
		gateway: client,
		prefs:   prefs,
		stdin:   os.Stdin,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
		logger:  logger,
	})
	stop()
	if err := prefs.Close(); err != nil {
		logger.WarnContext(context.Background(), "Failed to close preferences", applog.FieldError, err)
	}
	os.Exit(code)
}
