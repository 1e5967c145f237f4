package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"invoicer/internal/core"
)

const paidEarnings = "(SELECT COALESCE(SUM(amount_cents), 0) FROM invoices WHERE status = 'Paid')"
const allExpenses = "(SELECT COALESCE(SUM(amount_cents), 0) FROM expenses)"

// refreshBalance re-sums paid invoices and expenses into the summary row.
func refreshBalance(ctx context.Context, tx dbtx, ts string) error {
	_, err := tx.ExecContext(ctx, `UPDATE balance_summary SET
		total_earnings_cents = `+paidEarnings+`,
		total_expenses_cents = `+allExpenses+`,
		current_balance_cents = `+paidEarnings+` - `+allExpenses+`,
		last_calculated_at = ?
		WHERE id = 1`, ts)
	if err != nil {
		return fmt.Errorf("refresh balance summary: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetBalance(ctx context.Context) (core.BalanceSummary, error) {
	var b core.BalanceSummary
	var calculated string
	err := r.db.QueryRowContext(ctx, `SELECT total_earnings_cents, total_expenses_cents, current_balance_cents,
		last_calculated_at FROM balance_summary WHERE id = 1`).Scan(
		&b.TotalEarnings.Cents, &b.TotalExpenses.Cents, &b.CurrentBalance.Cents, &calculated)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("get balance summary: %w", err)
	}
	b.LastCalculatedAt = parseTime(calculated)
	return b, nil
}

// RecomputeBalance rebuilds the balance summary from scratch.
func (r *SQLiteRepository) RecomputeBalance(ctx context.Context) (core.BalanceSummary, error) {
	ts := r.timestamp()
	if err := r.withTx(ctx, func(tx *sql.Tx) error { return refreshBalance(ctx, tx, ts) }); err != nil {
		return core.BalanceSummary{}, err
	}
	return r.GetBalance(ctx)
}

// ReconcileReport describes the drift healed by Reconcile.
type ReconcileReport struct {
	ClientsFixed int                 `json:"clients_fixed"`
	BalanceFixed bool                `json:"balance_fixed"`
	Balance      core.BalanceSummary `json:"balance"`
}

// Reconcile recomputes every denormalized counter from the source rows.
func (r *SQLiteRepository) Reconcile(ctx context.Context) (ReconcileReport, error) {
	var rep ReconcileReport
	ts := r.timestamp()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients c WHERE
			c.total_invoices != (SELECT COUNT(*) FROM invoices i WHERE i.client_id = c.id) OR
			c.total_amount_cents != (SELECT COALESCE(SUM(amount_cents), 0) FROM invoices i WHERE i.client_id = c.id)`).
			Scan(&rep.ClientsFixed)
		if err != nil {
			return fmt.Errorf("count drifted clients: %w", err)
		}
		if rep.ClientsFixed > 0 {
			_, err = tx.ExecContext(ctx, `UPDATE clients SET
				total_invoices = (SELECT COUNT(*) FROM invoices WHERE client_id = clients.id),
				total_amount_cents = (SELECT COALESCE(SUM(amount_cents), 0) FROM invoices WHERE client_id = clients.id),
				updated_at = ?`, ts)
			if err != nil {
				return fmt.Errorf("reconcile clients: %w", err)
			}
		}

		var drifted int
		err = tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM balance_summary WHERE id = 1 AND (
			total_earnings_cents != `+paidEarnings+` OR total_expenses_cents != `+allExpenses+`)`).Scan(&drifted)
		if err != nil {
			return fmt.Errorf("check balance drift: %w", err)
		}
		rep.BalanceFixed = drifted > 0
		return refreshBalance(ctx, tx, ts)
	})
	if err != nil {
		return ReconcileReport{}, err
	}
	if rep.Balance, err = r.GetBalance(ctx); err != nil {
		return ReconcileReport{}, err
	}
	if rep.ClientsFixed > 0 || rep.BalanceFixed {
		slog.WarnContext(ctx, "Reconcile healed drifted counters", "clients", rep.ClientsFixed, "balance", rep.BalanceFixed)
	}
	return rep, nil
}
