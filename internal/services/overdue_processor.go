package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"invoicer/internal/core"
	"invoicer/internal/storage"
)

// OverdueProcessor flips Pending invoices whose due date has passed to
// Overdue. Status changes go through the invoice service so counters,
// notifications and the change stream see them like any user edit.
type OverdueProcessor struct {
	storage  *storage.SQLiteRepository
	invoices *InvoiceService
}

func NewOverdueProcessor(storage *storage.SQLiteRepository, invoices *InvoiceService) *OverdueProcessor {
	return &OverdueProcessor{storage: storage, invoices: invoices}
}

// MarkOverdue returns the number of invoices moved to Overdue. An invoice
// due today is not yet overdue.
func (p *OverdueProcessor) MarkOverdue(ctx context.Context, now time.Time) (int, error) {
	if p.storage == nil || p.invoices == nil {
		return 0, fmt.Errorf("processor not properly initialized")
	}

	pending, err := p.storage.ListInvoices(ctx, storage.InvoiceFilter{Status: core.StatusPending})
	if err != nil {
		return 0, fmt.Errorf("list pending invoices: %w", err)
	}

	y, m, d := now.Date()
	today := core.NewDate(y, int(m), d)
	processed := 0
	for _, inv := range pending {
		if !isOverdue(inv, today) {
			continue
		}
		if _, err := p.invoices.SetStatus(ctx, inv.ID, core.StatusOverdue); err != nil {
			slog.ErrorContext(ctx, "Failed to mark invoice overdue",
				"id", inv.ID,
				"error", err)
			continue
		}
		processed++
		slog.InfoContext(ctx, "Invoice marked overdue",
			"id", inv.ID,
			"client_id", inv.ClientID,
			"due_date", inv.DueDate.String())
	}

	if processed > 0 {
		slog.InfoContext(ctx, "Overdue sweep complete",
			"processed", processed,
			"total_checked", len(pending))
	}
	return processed, nil
}

func isOverdue(inv core.Invoice, today core.Date) bool {
	return inv.Status == core.StatusPending && !inv.DueDate.IsZero() && inv.DueDate.Before(today.Time)
}
