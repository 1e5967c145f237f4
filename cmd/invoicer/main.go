package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"invoicer/internal/cli"
	"invoicer/internal/core"
	apphttp "invoicer/internal/http"
	"invoicer/internal/log"
	"invoicer/internal/notify"
	"invoicer/internal/worker"
)

const (
	notifyBuffer = 64
	syncBuffer   = 256
)

func main() {
	cli.LoadEnvFile()

	bootLogger := cli.SetupLogger("info", "text", log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(bootLogger)
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat, log.ComponentApp)

	logger.Info("Starting invoicer server", "port", cfg.Port)

	// The expense mirror runs in-process only when no AMQP worker exists.
	// Reconcile and the overdue sweep always run here.
	inProcessSync := cfg.AMQPURL == ""
	app, err := cli.NewApp(context.Background(), cfg, logger, cli.AppOptions{
		WithAMQP:    true,
		WithMirror:  inProcessSync,
		Maintenance: true,
	})
	if err != nil {
		logger.Error("Failed to initialize application", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Failed to close application", "error", err)
		}
	}()

	feed := notify.NewFeed(notify.DefaultCapacity)
	hub := notify.NewHub(feed, app.Search, notify.WithCheckOrigin(apphttp.OriginChecker(cfg.CORSAllowedOrigins)))

	srv := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		AllowedOrigins:     cfg.CORSAllowedOrigins,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	}, apphttp.Deps{
		Clients:  app.Clients,
		Invoices: app.Invoices,
		Expenses: app.Expenses,
		Settings: app.Settings,
		Reports:  app.Reports,
		Search:   app.Search,
		Feed:     feed,
		Hub:      hub,
		Ready:    app.Ready,
		Logger:   logger.WithComponent(log.ComponentHTTP),
	})

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	go feed.Consume(ctx, app.Broker.Subscribe("notifications", notifyBuffer), func(ctx context.Context) (core.NotificationPrefs, error) {
		s, err := app.Settings.Get(ctx)
		return s.Notifications, err
	})

	if inProcessSync {
		w := worker.NewSyncWorker(app.Sync, worker.BrokerSource{Sub: app.Broker.Subscribe("sync", syncBuffer)})
		if err := w.StartupSync(ctx); err != nil {
			logger.Error("Startup sync failed", "error", err)
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				logger.Error("Sync worker stopped", "error", err)
			}
		}()
	} else {
		if err := app.Sync.Start(ctx); err != nil {
			logger.Error("Failed to start reconcile loop", "error", err)
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := app.Sync.Stop(stopCtx); err != nil {
				logger.Error("Failed to stop reconcile loop", "error", err)
			}
		}()
	}

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
