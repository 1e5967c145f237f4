package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"invoicer/internal/cache"
	"invoicer/internal/core"
	"invoicer/internal/events"
	"invoicer/internal/storage"
)

// InvoiceInput is the caller-editable part of an invoice. Omitted due date
// and tax rate are filled from the client's payment terms and the settings.
type InvoiceInput struct {
	ClientID  string             `json:"client_id"`
	IssueDate core.Date          `json:"issue_date"`
	DueDate   core.Date          `json:"due_date"`
	Status    core.InvoiceStatus `json:"status"`
	Items     []core.LineItem    `json:"items"`
	TaxRate   *float64           `json:"tax_rate"`
	Notes     string             `json:"notes"`
}

// InvoiceService prices, numbers and stores invoices.
type InvoiceService struct {
	store *storage.SQLiteRepository
	now   func() time.Time
	changeNotifier
}

func NewInvoiceService(store *storage.SQLiteRepository, pub events.Publisher, gen cache.Generation) *InvoiceService {
	return &InvoiceService{store: store, now: time.Now, changeNotifier: changeNotifier{publisher: pub, generation: gen}}
}

func (s *InvoiceService) List(ctx context.Context, f storage.InvoiceFilter) ([]core.Invoice, error) {
	invoices, err := s.store.ListInvoices(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list invoices: %w", err)
	}
	return invoices, nil
}

func (s *InvoiceService) Get(ctx context.Context, id string) (core.Invoice, error) {
	inv, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("get invoice: %w", err)
	}
	return inv, nil
}

func (s *InvoiceService) Create(ctx context.Context, in InvoiceInput) (core.Invoice, error) {
	inv, err := s.build(ctx, in)
	if err != nil {
		return core.Invoice{}, err
	}
	saved, err := s.store.CreateInvoice(ctx, inv)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("create invoice: %w", asFieldError(err))
	}
	s.notify(ctx, events.New(events.Created, events.EntityInvoice, saved.ID, saved))
	return saved, nil
}

func (s *InvoiceService) Update(ctx context.Context, id string, in InvoiceInput) (core.Invoice, error) {
	inv, err := s.build(ctx, in)
	if err != nil {
		return core.Invoice{}, err
	}
	inv.ID = id
	prev, err := s.store.GetInvoice(ctx, id)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice: %w", err)
	}
	saved, err := s.store.UpdateInvoice(ctx, inv)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice: %w", asFieldError(err))
	}
	s.notify(ctx, events.Replacing(events.EntityInvoice, saved.ID, saved, prev))
	return saved, nil
}

// SetStatus moves an invoice to any status; transitions are not restricted.
func (s *InvoiceService) SetStatus(ctx context.Context, id string, status core.InvoiceStatus) (core.Invoice, error) {
	if !status.IsValid() {
		var v core.ValidationError
		v.Add("status", "unknown status")
		return core.Invoice{}, v.Err()
	}
	saved, err := s.store.UpdateInvoiceStatus(ctx, id, status)
	if err != nil {
		return core.Invoice{}, fmt.Errorf("update invoice status: %w", err)
	}
	s.notify(ctx, events.New(events.StatusChanged, events.EntityInvoice, saved.ID, saved))
	return saved, nil
}

func (s *InvoiceService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteInvoice(ctx, id); err != nil {
		return fmt.Errorf("delete invoice: %w", err)
	}
	s.notify(ctx, events.New(events.Deleted, events.EntityInvoice, id, nil))
	return nil
}

// build applies defaults, validates and prices the input.
func (s *InvoiceService) build(ctx context.Context, in InvoiceInput) (core.Invoice, error) {
	inv := core.Invoice{
		ClientID:  strings.TrimSpace(in.ClientID),
		IssueDate: in.IssueDate,
		DueDate:   in.DueDate,
		Status:    in.Status,
		Items:     in.Items,
		Notes:     strings.TrimSpace(in.Notes),
	}
	if inv.IssueDate.IsZero() {
		y, m, d := s.now().Date()
		inv.IssueDate = core.NewDate(y, int(m), d)
	}
	if inv.Status == "" {
		inv.Status = core.StatusDraft
	}

	if in.TaxRate == nil || (inv.DueDate.IsZero() && inv.ClientID != "") {
		settings, err := s.store.GetSettings(ctx)
		if err != nil {
			return core.Invoice{}, fmt.Errorf("load settings: %w", err)
		}
		if in.TaxRate == nil {
			inv.TaxRate = settings.Invoicing.DefaultTaxRate
		}
		if inv.DueDate.IsZero() && inv.ClientID != "" {
			terms := settings.Invoicing.DefaultPaymentTerms
			client, err := s.store.GetClient(ctx, inv.ClientID)
			switch {
			case errors.Is(err, storage.ErrNotFound):
				var v core.ValidationError
				v.Add("client_id", "unknown client")
				return core.Invoice{}, v.Err()
			case err != nil:
				return core.Invoice{}, fmt.Errorf("load client: %w", err)
			case client.PaymentTerms != "":
				terms = client.PaymentTerms
			}
			inv.DueDate = core.DueDate(inv.IssueDate, terms)
		}
	}
	if in.TaxRate != nil {
		inv.TaxRate = *in.TaxRate
	}

	if err := inv.Validate(); err != nil {
		return core.Invoice{}, err
	}
	inv.ApplyTotals()
	return inv, nil
}
