// Package cli provides common initialization shared by cmd/invoicer,
// cmd/invoicer-worker and cmd/invoicerctl, plus the invoicerctl commands.
package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"invoicer/internal/config"
	"invoicer/internal/log"
)

// SetupLogger initializes structured logging at the given level and format
// and sets it as the default logger.
func SetupLogger(level, format, component string) *log.Logger {
	logger := log.New(log.Config{Level: log.ParseLevel(level), Format: format, Component: component})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads a .env file when one exists; production reads the real
// environment.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig reads the environment and exits the process when
// the configuration is invalid.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

// GracefulShutdown waits for SIGINT or SIGTERM, then runs cleanup bounded by
// timeout. The returned context is cancelled once cleanup returns; done is
// closed after the outcome is logged.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	signalled, stopSignals := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		<-signalled.Done()
		stopSignals()
		logger.Info("Shutting down", "timeout", timeout)

		shutdownCtx, cancelTimeout := context.WithTimeout(context.Background(), timeout)
		defer cancelTimeout()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		cancel()

		if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
			logger.Warn("Shutdown timed out before cleanup finished")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until ctx is cancelled and the shutdown goroutine
// has returned.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
