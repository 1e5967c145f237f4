package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"invoicer/internal/config"
	"invoicer/internal/log"
)

// rootOptions carries flag values resolved through viper: a flag wins over
// its environment variable, which wins over the config default.
type rootOptions struct {
	v      *viper.Viper
	logger *log.Logger
	cfg    *config.Config
}

// NewRootCommand builds the invoicerctl command tree.
func NewRootCommand() *cobra.Command {
	o := &rootOptions{v: viper.New()}

	root := &cobra.Command{
		Use:   "invoicerctl",
		Short: "Administer an invoicer database",
		Long: `invoicerctl runs maintenance tasks against the invoicer record store:
schema migrations, category seeding, counter reconciliation, exports,
reports and the optional Google Sheets expense mirror.

Configuration comes from flags, then environment variables (and .env),
then defaults.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return o.init()
		},
	}

	flags := root.PersistentFlags()
	flags.String("db", "", "SQLite database path (env SQLITE_DB_PATH)")
	flags.String("log-level", "", "log level: debug, info, warn, error (env LOG_LEVEL)")
	_ = o.v.BindPFlag("db", flags.Lookup("db"))
	_ = o.v.BindPFlag("log_level", flags.Lookup("log-level"))
	_ = o.v.BindEnv("db", "SQLITE_DB_PATH")
	_ = o.v.BindEnv("log_level", "LOG_LEVEL")

	root.AddCommand(
		newMigrateCommand(o),
		newSeedCategoriesCommand(o),
		newReconcileCommand(o),
		newExportCommand(o),
		newInvoicePDFCommand(o),
		newReportCommand(o),
		newMirrorCommand(o),
		newSheetsAuthCommand(o),
	)
	return root
}

// Execute runs invoicerctl and exits non-zero on failure.
func Execute() {
	LoadEnvFile()
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (o *rootOptions) init() error {
	cfg := config.Load()
	if db := o.v.GetString("db"); db != "" {
		cfg.SQLiteDBPath = db
	}
	if level := o.v.GetString("log_level"); level != "" {
		cfg.LogLevel = level
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	o.cfg = cfg
	// Logs go to stderr so command output on stdout stays machine-readable.
	o.logger = log.New(log.Config{
		Level:     log.ParseLevel(cfg.LogLevel),
		Format:    cfg.LogFormat,
		Output:    os.Stderr,
		Component: log.ComponentCLI,
	})
	log.SetDefault(o.logger)
	return nil
}

// withApp wires the application for one command and closes it afterwards.
func (o *rootOptions) withApp(ctx context.Context, opts AppOptions, fn func(ctx context.Context, app *App) error) error {
	app, err := NewApp(ctx, o.cfg, o.logger, opts)
	if err != nil {
		return err
	}
	runErr := fn(ctx, app)
	if err := app.Close(); err != nil && runErr == nil {
		return err
	}
	return runErr
}
