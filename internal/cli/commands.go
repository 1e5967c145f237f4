package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"invoicer/internal/analytics"
	"invoicer/internal/core"
	"invoicer/internal/export"
	"invoicer/internal/services"
	"invoicer/internal/storage"
)

func newMigrateCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and print the schema version",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the store applies pending migrations.
			store, err := storage.NewSQLiteRepository(o.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			if err := store.Close(); err != nil {
				return err
			}
			version, dirty, err := storage.MigrationVersion(o.cfg.SQLiteDBPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
}

func newSeedCategoriesCommand(o *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-categories",
		Short: "Install the default expense categories into an empty catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd.Context(), AppOptions{}, func(ctx context.Context, app *App) error {
				n, err := app.Settings.SeedCategories(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "seeded %d categories\n", n)
				return nil
			})
		},
	}
}

type reconcileOutput struct {
	storage.ReconcileReport
	MarkedOverdue int `json:"marked_overdue"`
}

func newReconcileCommand(o *rootOptions) *cobra.Command {
	var skipOverdue bool
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Rebuild client counters and the balance summary, then sweep overdue invoices",
		Example: `  invoicerctl reconcile
  invoicerctl reconcile --skip-overdue`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd.Context(), AppOptions{}, func(ctx context.Context, app *App) error {
				report, err := app.Store.Reconcile(ctx)
				if err != nil {
					return err
				}
				if report.ClientsFixed > 0 || report.BalanceFixed {
					app.Generation.Bump(ctx)
				}
				out := reconcileOutput{ReconcileReport: report}
				if !skipOverdue {
					out.MarkedOverdue, err = app.Overdue.MarkOverdue(ctx, time.Now())
					if err != nil {
						return err
					}
				}
				return writeJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().BoolVar(&skipOverdue, "skip-overdue", false, "do not move past-due invoices to Overdue")
	return cmd
}

func newExportCommand(o *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:       "export {expenses|invoices|clients}",
		Short:     "Export a table as CSV",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"expenses", "invoices", "clients"},
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := args[0]
			return o.withApp(cmd.Context(), AppOptions{}, func(ctx context.Context, app *App) error {
				var buf bytes.Buffer
				var err error
				switch kind {
				case "expenses":
					var rows []core.Expense
					if rows, err = app.Expenses.List(ctx, storage.ExpenseFilter{}); err == nil {
						err = export.WriteExpenses(&buf, rows)
					}
				case "invoices":
					var rows []core.Invoice
					if rows, err = app.Invoices.List(ctx, storage.InvoiceFilter{}); err == nil {
						err = export.WriteInvoices(&buf, rows)
					}
				case "clients":
					var rows []core.Client
					if rows, err = app.Clients.List(ctx, storage.ClientFilter{}); err == nil {
						err = export.WriteClients(&buf, rows)
					}
				}
				if err != nil {
					return fmt.Errorf("export %s: %w", kind, err)
				}
				if out == "-" {
					_, err = cmd.OutOrStdout().Write(buf.Bytes())
					return err
				}
				if out == "" {
					out = export.CSVFilename(kind, time.Now())
				}
				return writeFile(cmd, out, buf.Bytes())
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", `output file ("-" for stdout; default <kind>_<date>.csv)`)
	return cmd
}

func newInvoicePDFCommand(o *rootOptions) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "invoice-pdf <invoice-id>",
		Short: "Render an invoice as PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd.Context(), AppOptions{}, func(ctx context.Context, app *App) error {
				inv, err := app.Invoices.Get(ctx, args[0])
				if err != nil {
					return err
				}
				settings, err := app.Settings.Get(ctx)
				if err != nil {
					return err
				}
				data, err := export.InvoicePDF(inv, settings)
				if err != nil {
					return err
				}
				if out == "" {
					out = export.PDFFilename(inv.ID)
				}
				return writeFile(cmd, out, data)
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default Invoice_<id>.pdf)")
	return cmd
}

func newReportCommand(o *rootOptions) *cobra.Command {
	var from, to, period string
	cmd := &cobra.Command{
		Use:       "report {dashboard|revenue|expenses|profit}",
		Short:     "Print a report as JSON",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"dashboard", "revenue", "expenses", "profit"},
		Example: `  invoicerctl report dashboard
  invoicerctl report revenue --from 2025-01-01 --to 2025-12-31 --period quarterly`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rng, err := parseRange(from, to, period)
			if err != nil {
				return err
			}
			return o.withApp(cmd.Context(), AppOptions{}, func(ctx context.Context, app *App) error {
				var report any
				var err error
				switch args[0] {
				case "dashboard":
					report, err = app.Reports.Dashboard(ctx)
				case "revenue":
					report, err = app.Reports.Revenue(ctx, rng)
				case "expenses":
					report, err = app.Reports.Expenses(ctx, rng)
				case "profit":
					report, err = app.Reports.Profit(ctx, rng)
				}
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), report)
			})
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "first day, YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "last day, YYYY-MM-DD")
	cmd.Flags().StringVar(&period, "period", "monthly", "bucket size: monthly, quarterly or yearly")
	return cmd
}

func newMirrorCommand(o *rootOptions) *cobra.Command {
	mirror := &cobra.Command{
		Use:   "mirror",
		Short: "Manage the external expense mirror",
	}
	mirror.AddCommand(&cobra.Command{
		Use:   "resync",
		Short: "Push every stored expense to the mirror named by MIRROR_BACKEND",
		RunE: func(cmd *cobra.Command, args []string) error {
			return o.withApp(cmd.Context(), AppOptions{WithMirror: true}, func(ctx context.Context, app *App) error {
				if !app.Sync.Mirrored() {
					return errors.New("no mirror configured (set MIRROR_BACKEND)")
				}
				n, err := app.Sync.Resync(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "mirrored %d expenses\n", n)
				return nil
			})
		},
	})
	return mirror
}

func parseRange(from, to, period string) (services.Range, error) {
	var r services.Range
	var err error
	if from != "" {
		if r.From, err = core.ParseDate(from); err != nil {
			return r, fmt.Errorf("invalid --from: %w", err)
		}
	}
	if to != "" {
		if r.To, err = core.ParseDate(to); err != nil {
			return r, fmt.Errorf("invalid --to: %w", err)
		}
	}
	r.Period = analytics.Period(period)
	if !r.Period.IsValid() {
		return r, fmt.Errorf("invalid --period %q: must be monthly, quarterly or yearly", period)
	}
	if !r.From.IsZero() && !r.To.IsZero() && r.To.Before(r.From.Time) {
		return r, errors.New("--to must not be before --from")
	}
	return r, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeFile(cmd *cobra.Command, path string, data []byte) error {
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d bytes)\n", path, len(data))
	return nil
}
