package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"invoicer/internal/core"
)

const invoiceColumns = `id, client_id, client_name, client_address, client_email, issue_date, due_date, status,
	items, subtotal_cents, tax_rate, tax_cents, amount_cents, notes, created_at, updated_at`

func scanInvoice(s scanner) (core.Invoice, error) {
	var inv core.Invoice
	var issue, due, status, items, created, updated string
	err := s.Scan(&inv.ID, &inv.ClientID, &inv.ClientName, &inv.ClientAddress, &inv.ClientEmail, &issue, &due, &status,
		&items, &inv.Subtotal.Cents, &inv.TaxRate, &inv.Tax.Cents, &inv.Amount.Cents, &inv.Notes, &created, &updated)
	if err != nil {
		return core.Invoice{}, err
	}
	inv.IssueDate, _ = core.ParseDate(issue)
	inv.DueDate, _ = core.ParseDate(due)
	inv.Status = core.InvoiceStatus(status)
	if err := json.Unmarshal([]byte(items), &inv.Items); err != nil {
		return core.Invoice{}, fmt.Errorf("decode items of %s: %w", inv.ID, err)
	}
	inv.CreatedAt = parseTime(created)
	inv.UpdatedAt = parseTime(updated)
	return inv, nil
}

func (r *SQLiteRepository) ListInvoices(ctx context.Context, f InvoiceFilter) ([]core.Invoice, error) {
	var w where
	if f.Status != "" {
		w.eq("status", string(f.Status))
	}
	if f.ClientID != "" {
		w.eq("client_id", f.ClientID)
	}
	w.dateRange("issue_date", f.From, f.To)
	w.like(f.Search, "id", "client_name")
	limit, args := limitClause(f.Limit, w.args)

	rows, err := r.db.QueryContext(ctx, "SELECT "+invoiceColumns+" FROM invoices"+w.String()+" ORDER BY issue_date DESC, id DESC"+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	defer rows.Close()

	invoices := []core.Invoice{}
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, fmt.Errorf("scan invoice: %w", err)
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func (r *SQLiteRepository) GetInvoice(ctx context.Context, id string) (core.Invoice, error) {
	return getInvoice(ctx, r.db, id)
}

func getInvoice(ctx context.Context, q dbtx, id string) (core.Invoice, error) {
	inv, err := scanInvoice(q.QueryRowContext(ctx, "SELECT "+invoiceColumns+" FROM invoices WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Invoice{}, fmt.Errorf("invoice %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

// CreateInvoice allocates the next invoice number from settings, copies the
// client's contact fields onto the invoice and stores it. Client counters
// and the balance summary are refreshed in the same transaction.
func (r *SQLiteRepository) CreateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	ts := r.timestamp()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var prefix string
		var number int
		err := tx.QueryRowContext(ctx, `UPDATE settings SET invoice_next_number = invoice_next_number + 1
			WHERE id = 1 RETURNING invoice_prefix, invoice_next_number - 1`).Scan(&prefix, &number)
		if err != nil {
			return fmt.Errorf("allocate invoice number: %w", err)
		}
		inv.ID = core.FormatInvoiceID(prefix, number)

		if err := denormalizeClient(ctx, tx, &inv); err != nil {
			return err
		}
		if err := insertInvoice(ctx, tx, inv, ts); err != nil {
			return err
		}
		if err := refreshClientCounters(ctx, tx, inv.ClientID, ts); err != nil {
			return err
		}
		return refreshBalance(ctx, tx, ts)
	})
	if err != nil {
		return core.Invoice{}, err
	}
	slog.InfoContext(ctx, "Invoice saved", "id", inv.ID, "client_id", inv.ClientID, "amount_cents", inv.Amount.Cents)
	return r.GetInvoice(ctx, inv.ID)
}

func denormalizeClient(ctx context.Context, tx dbtx, inv *core.Invoice) error {
	c, err := getClient(ctx, tx, inv.ClientID)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("client %s: %w", inv.ClientID, ErrUnknownClient)
	}
	if err != nil {
		return err
	}
	inv.ClientName = c.Name
	inv.ClientEmail = c.Email
	inv.ClientAddress = c.Address
	return nil
}

func insertInvoice(ctx context.Context, tx dbtx, inv core.Invoice, ts string) error {
	items, err := json.Marshal(nonNilItems(inv.Items))
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO invoices (id, client_id, client_name, client_address, client_email,
		issue_date, due_date, status, items, subtotal_cents, tax_rate, tax_cents, amount_cents, notes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.ID, inv.ClientID, inv.ClientName, inv.ClientAddress, inv.ClientEmail,
		inv.IssueDate.String(), inv.DueDate.String(), string(inv.Status), string(items),
		inv.Subtotal.Cents, inv.TaxRate, inv.Tax.Cents, inv.Amount.Cents, inv.Notes, ts, ts)
	if err != nil {
		return fmt.Errorf("insert invoice: %w", translate(err))
	}
	return nil
}

func nonNilItems(items []core.LineItem) []core.LineItem {
	if items == nil {
		return []core.LineItem{}
	}
	return items
}

// UpdateInvoice overwrites an invoice. When the client changes both the old
// and the new client's counters are refreshed.
func (r *SQLiteRepository) UpdateInvoice(ctx context.Context, inv core.Invoice) (core.Invoice, error) {
	ts := r.timestamp()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		prev, err := getInvoice(ctx, tx, inv.ID)
		if err != nil {
			return err
		}
		if err := denormalizeClient(ctx, tx, &inv); err != nil {
			return err
		}
		items, err := json.Marshal(nonNilItems(inv.Items))
		if err != nil {
			return fmt.Errorf("encode items: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE invoices SET client_id = ?, client_name = ?, client_address = ?,
			client_email = ?, issue_date = ?, due_date = ?, status = ?, items = ?, subtotal_cents = ?, tax_rate = ?,
			tax_cents = ?, amount_cents = ?, notes = ?, updated_at = ? WHERE id = ?`,
			inv.ClientID, inv.ClientName, inv.ClientAddress, inv.ClientEmail, inv.IssueDate.String(),
			inv.DueDate.String(), string(inv.Status), string(items), inv.Subtotal.Cents, inv.TaxRate,
			inv.Tax.Cents, inv.Amount.Cents, inv.Notes, ts, inv.ID)
		if err != nil {
			return fmt.Errorf("update invoice: %w", translate(err))
		}
		if err := refreshClientCounters(ctx, tx, inv.ClientID, ts); err != nil {
			return err
		}
		if prev.ClientID != inv.ClientID {
			if err := refreshClientCounters(ctx, tx, prev.ClientID, ts); err != nil {
				return err
			}
		}
		return refreshBalance(ctx, tx, ts)
	})
	if err != nil {
		return core.Invoice{}, err
	}
	return r.GetInvoice(ctx, inv.ID)
}

// UpdateInvoiceStatus sets the status label. Any status may follow any other.
func (r *SQLiteRepository) UpdateInvoiceStatus(ctx context.Context, id string, status core.InvoiceStatus) (core.Invoice, error) {
	ts := r.timestamp()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var clientID string
		err := tx.QueryRowContext(ctx, "UPDATE invoices SET status = ?, updated_at = ? WHERE id = ? RETURNING client_id",
			string(status), ts, id).Scan(&clientID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("invoice %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("update invoice status: %w", err)
		}
		if err := refreshClientCounters(ctx, tx, clientID, ts); err != nil {
			return err
		}
		return refreshBalance(ctx, tx, ts)
	})
	if err != nil {
		return core.Invoice{}, err
	}
	return r.GetInvoice(ctx, id)
}

// DeleteInvoice removes an invoice and refreshes its client's counters.
func (r *SQLiteRepository) DeleteInvoice(ctx context.Context, id string) error {
	ts := r.timestamp()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		var clientID string
		err := tx.QueryRowContext(ctx, "DELETE FROM invoices WHERE id = ? RETURNING client_id", id).Scan(&clientID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("invoice %s: %w", id, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("delete invoice: %w", err)
		}
		if err := refreshClientCounters(ctx, tx, clientID, ts); err != nil {
			return err
		}
		return refreshBalance(ctx, tx, ts)
	})
}
