package notify

import (
	"context"
	"errors"
	"testing"
	"time"

	"invoicer/internal/core"
	"invoicer/internal/events"
)

func TestFeedIsBoundedNewestFirst(t *testing.T) {
	f := NewFeed(3)
	for _, id := range []string{"INV-0001", "INV-0002", "INV-0003", "INV-0004"} {
		f.Add(Notification{Kind: InvoiceCreated, EntityID: id})
	}
	got := f.List()
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].EntityID != "INV-0004" || got[2].EntityID != "INV-0002" {
		t.Errorf("unexpected order %v %v", got[0].EntityID, got[2].EntityID)
	}
	if got[0].ID == "" || got[0].CreatedAt.IsZero() {
		t.Error("Add should stamp id and time")
	}
}

func TestFeedReadState(t *testing.T) {
	f := NewFeed(0)
	a := f.Add(Notification{Kind: InvoiceCreated})
	f.Add(Notification{Kind: InvoicePaid})
	f.Add(Notification{Kind: ExpenseAdded})

	if f.Unread() != 3 {
		t.Fatalf("unread = %d, want 3", f.Unread())
	}
	if err := f.MarkRead(a.ID); err != nil {
		t.Fatal(err)
	}
	if f.Unread() != 2 {
		t.Errorf("unread = %d, want 2", f.Unread())
	}
	if err := f.MarkRead("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if n := f.MarkAllRead(); n != 2 {
		t.Errorf("MarkAllRead changed %d, want 2", n)
	}
	if f.Unread() != 0 {
		t.Errorf("unread = %d, want 0", f.Unread())
	}
}

func TestFromEvent(t *testing.T) {
	all := core.DefaultSettings().Notifications
	paid := core.Invoice{ID: "INV-0001", ClientName: "Acme", Status: core.StatusPaid, Amount: core.Money{Cents: 1000}}
	overdue := paid
	overdue.Status = core.StatusOverdue
	pending := paid
	pending.Status = core.StatusPending

	tests := []struct {
		name  string
		event events.Event
		prefs core.NotificationPrefs
		want  Kind
		ok    bool
	}{
		{"invoice created", events.New(events.Created, events.EntityInvoice, "INV-0001", pending), all, InvoiceCreated, true},
		{"invoice paid", events.New(events.StatusChanged, events.EntityInvoice, "INV-0001", paid), all, InvoicePaid, true},
		{"invoice overdue", events.New(events.StatusChanged, events.EntityInvoice, "INV-0001", overdue), all, InvoiceOverdue, true},
		{"status back to pending", events.New(events.StatusChanged, events.EntityInvoice, "INV-0001", pending), all, "", false},
		{"invoice updated", events.New(events.Updated, events.EntityInvoice, "INV-0001", pending), all, "", false},
		{"update marks paid", events.Replacing(events.EntityInvoice, "INV-0001", paid, pending), all, InvoicePaid, true},
		{"update marks overdue", events.Replacing(events.EntityInvoice, "INV-0001", overdue, pending), all, InvoiceOverdue, true},
		{"update keeps paid", events.Replacing(events.EntityInvoice, "INV-0001", paid, paid), all, "", false},
		{"update marks paid toggle off", events.Replacing(events.EntityInvoice, "INV-0001", paid, pending),
			core.NotificationPrefs{InvoiceCreated: true}, "", false},
		{"expense created", events.New(events.Created, events.EntityExpense, "e1", core.Expense{Description: "Rent"}), all, ExpenseAdded, true},
		{"client created", events.New(events.Created, events.EntityClient, "c1", nil), all, "", false},
		{"created toggle off", events.New(events.Created, events.EntityInvoice, "INV-0001", pending),
			core.NotificationPrefs{InvoicePaid: true}, "", false},
		{"paid toggle off", events.New(events.StatusChanged, events.EntityInvoice, "INV-0001", paid),
			core.NotificationPrefs{InvoiceCreated: true}, "", false},
		{"expense toggle off", events.New(events.Created, events.EntityExpense, "e1", nil),
			core.NotificationPrefs{}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, ok := FromEvent(tt.event, tt.prefs)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && (n.Kind != tt.want || n.EntityID != tt.event.ID) {
				t.Errorf("got %+v", n)
			}
		})
	}
}

func TestConsumeHonoursPrefs(t *testing.T) {
	b := events.NewBroker()
	sub := b.Subscribe("feed", 8)
	f := NewFeed(0)
	added := make(chan Notification, 8)
	f.OnAdd(func(n Notification) { added <- n })

	prefs := func(context.Context) (core.NotificationPrefs, error) {
		return core.NotificationPrefs{InvoicePaid: true}, nil
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		f.Consume(ctx, sub, prefs)
		close(done)
	}()

	inv := core.Invoice{ClientName: "Acme", Status: core.StatusPaid}
	_ = b.Publish(ctx, events.New(events.Created, events.EntityInvoice, "INV-0001", inv))
	_ = b.Publish(ctx, events.New(events.StatusChanged, events.EntityInvoice, "INV-0001", inv))

	select {
	case n := <-added:
		if n.Kind != InvoicePaid {
			t.Errorf("kind = %s, want %s", n.Kind, InvoicePaid)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no notification added")
	}

	b.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Consume should return once the subscription closes")
	}
	if len(f.List()) != 1 {
		t.Errorf("feed has %d entries, want 1", len(f.List()))
	}
}
