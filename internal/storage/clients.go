package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"invoicer/internal/core"
)

const clientColumns = `id, name, email, phone, company, address, contact_name, payment_terms,
	total_invoices, total_amount_cents, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(s scanner) (core.Client, error) {
	var c core.Client
	var terms, created, updated string
	err := s.Scan(&c.ID, &c.Name, &c.Email, &c.Phone, &c.Company, &c.Address, &c.ContactName, &terms,
		&c.TotalInvoices, &c.TotalAmount.Cents, &created, &updated)
	if err != nil {
		return core.Client{}, err
	}
	c.PaymentTerms = core.PaymentTerms(terms)
	c.CreatedAt = parseTime(created)
	c.UpdatedAt = parseTime(updated)
	return c, nil
}

func (r *SQLiteRepository) ListClients(ctx context.Context, f ClientFilter) ([]core.Client, error) {
	var w where
	w.like(f.Search, "name", "email", "company")
	limit, args := limitClause(f.Limit, w.args)

	rows, err := r.db.QueryContext(ctx, "SELECT "+clientColumns+" FROM clients"+w.String()+" ORDER BY name COLLATE NOCASE, id"+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	clients := []core.Client{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (r *SQLiteRepository) GetClient(ctx context.Context, id string) (core.Client, error) {
	return getClient(ctx, r.db, id)
}

func getClient(ctx context.Context, q dbtx, id string) (core.Client, error) {
	c, err := scanClient(q.QueryRowContext(ctx, "SELECT "+clientColumns+" FROM clients WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Client{}, fmt.Errorf("client %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Client{}, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

// CreateClient stores a new client with zeroed counters and returns it.
func (r *SQLiteRepository) CreateClient(ctx context.Context, c core.Client) (core.Client, error) {
	c.ID = uuid.NewString()
	ts := r.timestamp()
	_, err := r.db.ExecContext(ctx, `INSERT INTO clients (id, name, email, phone, company, address, contact_name,
		payment_terms, total_invoices, total_amount_cents, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?)`,
		c.ID, c.Name, c.Email, c.Phone, c.Company, c.Address, c.ContactName, string(c.PaymentTerms), ts, ts)
	if err != nil {
		return core.Client{}, fmt.Errorf("insert client: %w", translate(err))
	}
	slog.InfoContext(ctx, "Client saved", "id", c.ID, "name", c.Name)
	return r.GetClient(ctx, c.ID)
}

// UpdateClient overwrites the editable fields. Counters are left alone.
func (r *SQLiteRepository) UpdateClient(ctx context.Context, c core.Client) (core.Client, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE clients SET name = ?, email = ?, phone = ?, company = ?, address = ?,
		contact_name = ?, payment_terms = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Email, c.Phone, c.Company, c.Address, c.ContactName, string(c.PaymentTerms), r.timestamp(), c.ID)
	if err != nil {
		return core.Client{}, fmt.Errorf("update client: %w", translate(err))
	}
	if err := affectedOrNotFound(res, "client", c.ID); err != nil {
		return core.Client{}, err
	}
	return r.GetClient(ctx, c.ID)
}

// DeleteClient removes a client. Clients that still own invoices cannot be
// deleted and yield ErrConflict.
func (r *SQLiteRepository) DeleteClient(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM clients WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete client: %w", translate(err))
	}
	return affectedOrNotFound(res, "client", id)
}

// refreshClientCounters re-derives one client's totals from its invoices.
func refreshClientCounters(ctx context.Context, tx dbtx, clientID, ts string) error {
	_, err := tx.ExecContext(ctx, `UPDATE clients SET
		total_invoices = (SELECT COUNT(*) FROM invoices WHERE client_id = clients.id),
		total_amount_cents = (SELECT COALESCE(SUM(amount_cents), 0) FROM invoices WHERE client_id = clients.id),
		updated_at = ?
		WHERE id = ?`, ts, clientID)
	if err != nil {
		return fmt.Errorf("refresh client counters: %w", err)
	}
	return nil
}
