package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"invoicer/internal/amqp"
	"invoicer/internal/cache"
	"invoicer/internal/core"
	"invoicer/internal/events"
	"invoicer/internal/services"
	"invoicer/internal/sheets/memory"
	"invoicer/internal/storage"
)

type setup struct {
	store    *storage.SQLiteRepository
	broker   *events.Broker
	mirror   *memory.Store
	expenses *services.ExpenseService
	worker   *SyncWorker
}

func newSetup(t *testing.T) *setup {
	t.Helper()
	store, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	if err != nil {
		t.Fatalf("open repo: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	s := &setup{store: store, broker: events.NewBroker(), mirror: memory.New()}
	t.Cleanup(s.broker.Close)
	s.expenses = services.NewExpenseService(store, s.broker, &cache.LocalGeneration{})

	cfg := services.DefaultSyncProcessorConfig()
	cfg.RetryDelay = time.Millisecond
	processor := services.NewSyncProcessor(store, s.mirror, nil, cfg)
	s.worker = NewSyncWorker(processor, BrokerSource{Sub: s.broker.Subscribe("mirror", 16)})
	return s
}

func (s *setup) expense(t *testing.T, desc string) core.Expense {
	t.Helper()
	e, err := s.expenses.Create(context.Background(), core.Expense{
		Amount: core.Money{Cents: 1500}, Description: desc, Date: core.NewDate(2025, 3, 1), PaymentMethod: core.PayCash,
	})
	if err != nil {
		t.Fatalf("create expense: %v", err)
	}
	return e
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestWorkerMirrorsBrokerEvents(t *testing.T) {
	s := newSetup(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.worker.Run(ctx) }()

	e := s.expense(t, "Printer paper")
	eventually(t, func() bool { return len(s.mirror.Rows()) == 1 })
	if got := s.mirror.Rows()[0]; got.ID != e.ID || got.Description != "Printer paper" {
		t.Errorf("mirrored %+v", got)
	}

	if err := s.expenses.Delete(context.Background(), e.ID); err != nil {
		t.Fatal(err)
	}
	eventually(t, func() bool { return len(s.mirror.Rows()) == 0 })

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v on shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestHandleMessageIgnoresOtherEntities(t *testing.T) {
	s := newSetup(t)
	err := s.worker.HandleMessage(context.Background(), &amqp.ChangeMessage{
		Kind: events.Created, Entity: events.EntityInvoice, ID: "INV-0001",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(s.mirror.Rows()) != 0 {
		t.Error("invoices must not be mirrored")
	}
}

func TestStartupSync(t *testing.T) {
	s := newSetup(t)
	s.expense(t, "Rent")
	s.expense(t, "Internet")
	if err := s.worker.StartupSync(context.Background()); err != nil {
		t.Fatal(err)
	}
	if n := len(s.mirror.Rows()); n != 2 {
		t.Errorf("mirror has %d rows, want 2", n)
	}

	bare := NewSyncWorker(services.NewSyncProcessor(s.store, nil, nil, services.DefaultSyncProcessorConfig()), nil)
	if err := bare.StartupSync(context.Background()); err != nil {
		t.Errorf("startup sync without a mirror should be a no-op, got %v", err)
	}
}

type failingSource struct{ err error }

func (f failingSource) Consume(context.Context, amqp.Handler) error { return f.err }

func TestRunReportsSourceFailure(t *testing.T) {
	s := newSetup(t)
	boom := errors.New("access refused")
	w := NewSyncWorker(services.NewSyncProcessor(s.store, nil, nil, services.DefaultSyncProcessorConfig()), failingSource{boom})
	if err := w.Run(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Run = %v, want %v", err, boom)
	}
}
