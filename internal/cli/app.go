package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"invoicer/internal/amqp"
	"invoicer/internal/cache"
	"invoicer/internal/config"
	"invoicer/internal/events"
	"invoicer/internal/log"
	"invoicer/internal/metrics"
	"invoicer/internal/services"
	"invoicer/internal/sheets"
	gsheet "invoicer/internal/sheets/google"
	"invoicer/internal/sheets/memory"
	"invoicer/internal/storage"
)

const (
	reportCacheSize = 256
	// Only expense changes are mirrored, so the queue skips the rest.
	mirroredChanges      = "expense.*"
	cacheCleanupInterval = 10 * time.Minute
)

// App holds the wired services shared by the server, the worker and the
// admin CLI.
type App struct {
	Config *config.Config
	Logger *log.Logger

	Store  *storage.SQLiteRepository
	Broker *events.Broker
	AMQP   *amqp.Client // nil unless AMQP_URL is set
	Redis  *redis.Client
	Mirror sheets.ExpenseMirror // nil when MIRROR_BACKEND=none

	Clients  *services.ClientService
	Invoices *services.InvoiceService
	Expenses *services.ExpenseService
	Settings *services.SettingsService
	Reports  *services.ReportService
	Search   *services.SearchService
	Overdue  *services.OverdueProcessor
	Sync     *services.SyncProcessor

	// Generation versions cached reports.
	Generation cache.Generation

	cacheManager *cache.Manager
}

// AppOptions selects the optional pieces a binary needs.
type AppOptions struct {
	// WithAMQP connects to AMQP_URL when set and publishes changes there.
	WithAMQP bool
	// WithMirror builds the expense mirror from MIRROR_BACKEND.
	WithMirror bool
	// Maintenance lets Sync run the periodic reconcile and overdue sweep.
	// Only the API server sets it: the sweep publishes invoice events that
	// its notification feed and report generation have to see.
	Maintenance bool
}

// NewApp opens the store and wires every service. Close releases everything
// NewApp acquired, also when NewApp fails halfway.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, opts AppOptions) (_ *App, err error) {
	app := &App{Config: cfg, Logger: logger}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	app.Store, err = storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	app.Broker = events.NewBroker(events.WithDropHook(func(subscriber string) {
		metrics.EventsDropped.WithLabelValues(subscriber).Inc()
	}))
	publishers := events.Multi{app.Broker}

	if opts.WithAMQP && cfg.AMQPURL != "" {
		app.AMQP, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, mirroredChanges)
		if err != nil {
			return nil, fmt.Errorf("connect amqp: %w", err)
		}
		client := app.AMQP
		publishers = append(publishers, events.PublisherFunc(func(ctx context.Context, e events.Event) error {
			if err := client.Publish(ctx, e); err != nil {
				metrics.AMQPPublishFailures.Inc()
				return err
			}
			return nil
		}))
		logger.InfoContext(ctx, "AMQP bridge enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}

	var (
		gen         cache.Generation
		reportCache cache.Cache[[]byte]
	)
	if cfg.RedisURL != "" {
		app.Redis, err = cache.ConnectRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		gen = cache.NewRedisGeneration(app.Redis, "invoicer:reports:generation")
		reportCache = cache.NewRedisCache[[]byte](app.Redis, "invoicer:reports:", cfg.ReportCacheTTL)
		logger.InfoContext(ctx, "Report cache backed by Redis")
	} else {
		lru := cache.NewLRUCache[[]byte](reportCacheSize, cfg.ReportCacheTTL)
		app.cacheManager = cache.NewManager(lru)
		app.cacheManager.Start(context.WithoutCancel(ctx), cacheCleanupInterval)
		gen = &cache.LocalGeneration{}
		reportCache = lru
	}

	app.Clients = services.NewClientService(app.Store, publishers, gen)
	app.Invoices = services.NewInvoiceService(app.Store, publishers, gen)
	app.Expenses = services.NewExpenseService(app.Store, publishers, gen)
	app.Settings = services.NewSettingsService(app.Store, publishers, gen)
	app.Reports = services.NewReportService(app.Store, reportCache, gen)
	app.Search = services.NewSearchService(app.Store)
	app.Overdue = services.NewOverdueProcessor(app.Store, app.Invoices)

	if opts.WithMirror {
		app.Mirror, err = NewMirror(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}
	app.Generation = gen
	syncCfg := services.DefaultSyncProcessorConfig()
	syncCfg.Generation = gen
	var sweep *services.OverdueProcessor
	if opts.Maintenance {
		syncCfg.ReconcileInterval = cfg.ReconcileInterval
		sweep = app.Overdue
	} else {
		syncCfg.ReconcileInterval = 0
	}
	app.Sync = services.NewSyncProcessor(app.Store, app.Mirror, sweep, syncCfg)

	return app, nil
}

// NewMirror builds the expense mirror named by MIRROR_BACKEND. It returns a
// nil mirror for "none".
func NewMirror(ctx context.Context, cfg *config.Config) (sheets.ExpenseMirror, error) {
	switch cfg.MirrorBackend {
	case "memory":
		return memory.New(), nil
	case "sheets":
		client, err := gsheet.New(ctx, SheetsOptions(cfg))
		if err != nil {
			return nil, fmt.Errorf("create sheets mirror: %w", err)
		}
		if err := client.EnsureHeader(ctx); err != nil {
			return nil, fmt.Errorf("prepare sheets mirror: %w", err)
		}
		return client, nil
	default:
		return nil, nil
	}
}

// SheetsOptions maps the Google settings of cfg.
func SheetsOptions(cfg *config.Config) gsheet.Options {
	return gsheet.Options{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
		ClientJSON:    cfg.GoogleOAuthClientJSON,
		ClientFile:    cfg.GoogleOAuthClientFile,
		TokenJSON:     cfg.GoogleOAuthTokenJSON,
		TokenFile:     cfg.GoogleOAuthTokenFile,
	}
}

// Ready reports whether the store answers.
func (a *App) Ready(ctx context.Context) error {
	return a.Store.Ping(ctx)
}

// Close releases the store, broker, AMQP and Redis connections.
func (a *App) Close() error {
	var errs []error
	if a.cacheManager != nil {
		a.cacheManager.Stop()
	}
	if a.Broker != nil {
		a.Broker.Close()
	}
	if a.AMQP != nil {
		if err := a.AMQP.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close amqp: %w", err))
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close store: %w", err))
		}
	}
	return errors.Join(errs...)
}
