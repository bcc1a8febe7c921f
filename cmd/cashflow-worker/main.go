package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"cashflow/internal/amqp"
	"cashflow/internal/backend"
	"cashflow/internal/cli"
	applog "cashflow/internal/log"
	"cashflow/internal/sheets"
	gsheet "cashflow/internal/sheets/google"
	"cashflow/internal/worker"
)

func main() {
	resync := flag.String("resync", "", "comma separated owner emails to resync into the mirror at start-up")
	flag.Parse()

	cli.LoadEnvFile()
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(os.Stdout, cfg.LogLevel, applog.ComponentAMQP)
	ctx := context.Background()

	if cfg.AMQPURL == "" {
		logger.ErrorContext(ctx, "AMQP_URL is required by the worker")
		os.Exit(1)
	}

	// The worker reads the store the API writes; it never publishes.
	beCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.ErrorContext(ctx, "Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	beCfg.AMQPURL = ""
	be, err := backend.NewFactory(logger.Logger).CreateBackend(ctx, beCfg)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	defer be.Close()

	var mirror sheets.TransactionRepository
	if cfg.GoogleSpreadsheetID != "" && beCfg.Type != backend.SheetsBackend {
		m, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			TransactionsSheet:  cfg.GoogleTransactionsSheet,
			UsersSheet:         cfg.GoogleUsersSheet,
		})
		if err != nil {
			logger.ErrorContext(ctx, "Failed to initialize Google Sheets mirror", applog.FieldError, err)
			os.Exit(1)
		}
		mirror = m
		logger.InfoContext(ctx, "Mirroring transactions to Google Sheets", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		logger.InfoContext(ctx, "No mirror configured, logging events only")
	}

	w := worker.NewMirrorWorker(be.Transactions, mirror, logger.WithComponent("worker"))

	for _, owner := range strings.Split(*resync, ",") {
		if owner = strings.TrimSpace(owner); owner == "" {
			continue
		}
		if _, err := w.Resync(ctx, owner); err != nil {
			logger.ErrorContext(ctx, "Start-up resync failed", applog.FieldOwner, owner, applog.FieldError, err)
		}
	}

	client, err := amqp.NewClient(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.ErrorContext(ctx, "Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}

	runCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if err := client.Close(); err != nil {
			logger.WarnContext(ctx, "AMQP close error", applog.FieldError, err)
		}
	})

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error {
		err := client.Consume(gctx, w.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if err := g.Wait(); err != nil {
		logger.ErrorContext(ctx, "Event consumption failed", applog.FieldError, err)
		os.Exit(1)
	}
	<-done
	logger.InfoContext(ctx, "Worker stopped")
}
