package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/backend"
	"ledger/internal/cli"
	"ledger/internal/export"
	applog "ledger/internal/log"
	"ledger/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.MustLoadConfig()
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)

	logger.Info("Starting ledger-worker")

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	// The worker only reads; it must not publish change events of its own.
	backendCfg.AMQPURL = ""
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer res.Cleanup()

	format, err := export.ParseFormat(cfg.ExportFormat)
	if err != nil {
		logger.Error("Invalid export format", "error", err)
		os.Exit(1)
	}
	codec, err := export.ForFormat(format)
	if err != nil {
		logger.Error("Invalid export format", "error", err)
		os.Exit(1)
	}
	exportWorker := worker.NewExportWorker(res.Ledger, cfg.ExportPath, codec)

	var consumer *amqp.Client
	if cfg.AMQPURL != "" {
		consumer, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer consumer.Close()
	} else {
		logger.Info("AMQP disabled, relying on periodic export only")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	logger.Info("Performing startup export...", "path", cfg.ExportPath, "format", string(format))
	if err := exportWorker.StartupExport(ctx); err != nil {
		logger.Error("Failed startup export", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if consumer != nil {
		g.Go(func() error {
			return consumer.Consume(gctx, exportWorker.HandleChangeMessage)
		})
	}
	g.Go(func() error {
		return exportWorker.RunPeriodic(gctx, cfg.ExportInterval)
	})

	err = g.Wait()
	if ctx.Err() == nil {
		// A goroutine failed before any shutdown signal.
		logger.Error("Worker stopped with error", "error", err)
		consumerClose(consumer)
		res.Cleanup()
		os.Exit(1)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", "error", err)
	}

	cli.WaitForShutdown(ctx, done)
	st := exportWorker.Status()
	logger.Info("Worker shutdown complete", "exports", st.Exports, "last_export", st.LastExport)
}

func consumerClose(c *amqp.Client) {
	if c != nil {
		c.Close()
	}
}
