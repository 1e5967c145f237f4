package services

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"invoicer/internal/cache"
	"invoicer/internal/core"
	"invoicer/internal/events"
	"invoicer/internal/storage"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) kinds() []events.Kind {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Kind, len(p.events))
	for i, e := range p.events {
		out[i] = e.Kind
	}
	return out
}

type fixture struct {
	path     string
	store    *storage.SQLiteRepository
	pub      *recordingPublisher
	gen      *cache.LocalGeneration
	clients  *ClientService
	invoices *InvoiceService
	expenses *ExpenseService
	settings *SettingsService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	store, err := storage.NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	f := &fixture{path: path, store: store, pub: &recordingPublisher{}, gen: &cache.LocalGeneration{}}
	f.clients = NewClientService(store, f.pub, f.gen)
	f.invoices = NewInvoiceService(store, f.pub, f.gen)
	f.expenses = NewExpenseService(store, f.pub, f.gen)
	f.settings = NewSettingsService(store, f.pub, f.gen)
	return f
}

func (f *fixture) client(t *testing.T, name string, terms core.PaymentTerms) core.Client {
	t.Helper()
	c, err := f.clients.Create(context.Background(), core.Client{Name: name, Email: "ap@example.com", PaymentTerms: terms})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	return c
}

func (f *fixture) invoice(t *testing.T, clientID string, issue core.Date, status core.InvoiceStatus, rate int64) core.Invoice {
	t.Helper()
	inv, err := f.invoices.Create(context.Background(), InvoiceInput{
		ClientID:  clientID,
		IssueDate: issue,
		Status:    status,
		Items:     []core.LineItem{{Description: "Consulting", Quantity: 1, Rate: core.Money{Cents: rate}}},
	})
	if err != nil {
		t.Fatalf("create invoice: %v", err)
	}
	return inv
}

func (f *fixture) expense(t *testing.T, desc string, date core.Date, cents int64) core.Expense {
	t.Helper()
	e, err := f.expenses.Create(context.Background(), core.Expense{Description: desc, Date: date, Amount: core.Money{Cents: cents}})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return e
}

func validationFields(t *testing.T, err error) map[string]string {
	t.Helper()
	var v *core.ValidationError
	if !errors.As(err, &v) {
		t.Fatalf("expected validation error, got %v", err)
	}
	return v.Fields
}
