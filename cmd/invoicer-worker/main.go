package main

import (
	"context"
	"os"
	"time"

	"invoicer/internal/cli"
	"invoicer/internal/log"
	"invoicer/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger("info", "text", "invoicer-worker")
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentWorker)

	logger.Info("Starting invoicer-worker", "mirror", cfg.MirrorBackend)

	if cfg.AMQPURL == "" {
		// Without AMQP the API server mirrors in-process.
		logger.Error("AMQP_URL is required to run the worker")
		os.Exit(1)
	}

	// Reconcile and the overdue sweep belong to the API server.
	app, err := cli.NewApp(context.Background(), cfg, logger, cli.AppOptions{WithAMQP: true, WithMirror: true})
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close application", "error", err)
		}
	}()

	w := worker.NewSyncWorker(app.Sync, app.AMQP)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	if err := w.StartupSync(ctx); err != nil {
		// Don't exit - live changes are still mirrored
		logger.Error("Startup sync failed", "error", err)
	}

	if err := w.Run(ctx); err != nil {
		logger.Error("Worker stopped", "error", err)
		_ = app.Close()
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
