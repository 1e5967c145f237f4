// Package notify turns committed invoice and expense changes into user
// notifications and pushes them to connected websocket clients.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"invoicer/internal/core"
	"invoicer/internal/events"
)

// DefaultCapacity bounds the feed; the oldest entries fall off first.
const DefaultCapacity = 50

var ErrNotFound = errors.New("notification not found")

type Kind string

const (
	InvoiceCreated Kind = "invoice_created"
	InvoicePaid    Kind = "invoice_paid"
	InvoiceOverdue Kind = "invoice_overdue"
	ExpenseAdded   Kind = "expense_added"
)

type Notification struct {
	ID        string    `json:"id"`
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	EntityID  string    `json:"entity_id"`
	CreatedAt time.Time `json:"created_at"`
	Read      bool      `json:"read"`
}

// Feed is an in-memory, newest-first list of notifications.
type Feed struct {
	mu        sync.RWMutex
	items     []Notification
	capacity  int
	listeners []func(Notification)
	now       func() time.Time
}

func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Feed{capacity: capacity, now: time.Now}
}

// OnAdd registers fn to be called after every Add, outside the feed lock.
func (f *Feed) OnAdd(fn func(Notification)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listeners = append(f.listeners, fn)
}

// Add stamps n with an id and time, prepends it and trims the feed.
func (f *Feed) Add(n Notification) Notification {
	n.ID = uuid.NewString()
	n.Read = false
	f.mu.Lock()
	n.CreatedAt = f.now()
	f.items = append([]Notification{n}, f.items...)
	if len(f.items) > f.capacity {
		f.items = f.items[:f.capacity]
	}
	listeners := make([]func(Notification), len(f.listeners))
	copy(listeners, f.listeners)
	f.mu.Unlock()

	for _, fn := range listeners {
		fn(n)
	}
	return n
}

// List returns a copy of the feed, newest first.
func (f *Feed) List() []Notification {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return append([]Notification{}, f.items...)
}

func (f *Feed) Unread() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	n := 0
	for _, it := range f.items {
		if !it.Read {
			n++
		}
	}
	return n
}

func (f *Feed) MarkRead(id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.items {
		if f.items[i].ID == id {
			f.items[i].Read = true
			return nil
		}
	}
	return fmt.Errorf("notification %s: %w", id, ErrNotFound)
}

// MarkAllRead marks everything read and returns how many entries changed.
func (f *Feed) MarkAllRead() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for i := range f.items {
		if !f.items[i].Read {
			f.items[i].Read = true
			n++
		}
	}
	return n
}

// PrefsFunc returns the current notification toggles.
type PrefsFunc func(ctx context.Context) (core.NotificationPrefs, error)

// Consume feeds notifications from sub until the subscription closes or ctx
// is done. Toggles are read per event so changes apply immediately.
func (f *Feed) Consume(ctx context.Context, sub *events.Subscription, prefs PrefsFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			p := core.DefaultSettings().Notifications
			if prefs != nil {
				got, err := prefs(ctx)
				if err != nil {
					slog.WarnContext(ctx, "Failed to load notification settings, using defaults", "error", err)
				} else {
					p = got
				}
			}
			if n, ok := FromEvent(e, p); ok {
				f.Add(n)
			}
		}
	}
}

// FromEvent maps a change event to a notification. Only invoice creation,
// invoice status changes to Paid or Overdue and new expenses qualify, each
// behind its toggle. A full invoice update counts as a status change when
// the status differs from the previous one.
func FromEvent(e events.Event, p core.NotificationPrefs) (Notification, bool) {
	switch e.Entity {
	case events.EntityInvoice:
		inv, _ := e.Payload.(core.Invoice)
		statusChanged := e.Kind == events.StatusChanged
		if e.Kind == events.Updated {
			prev, ok := e.Previous.(core.Invoice)
			statusChanged = ok && prev.Status != inv.Status
		}
		switch {
		case e.Kind == events.Created && p.InvoiceCreated:
			return Notification{
				Kind:     InvoiceCreated,
				Title:    "Invoice created",
				Message:  fmt.Sprintf("Invoice %s for %s (%s)", e.ID, orDash(inv.ClientName), inv.Amount),
				EntityID: e.ID,
			}, true
		case statusChanged && inv.Status == core.StatusPaid && p.InvoicePaid:
			return Notification{
				Kind:     InvoicePaid,
				Title:    "Invoice paid",
				Message:  fmt.Sprintf("%s paid invoice %s (%s)", orDash(inv.ClientName), e.ID, inv.Amount),
				EntityID: e.ID,
			}, true
		case statusChanged && inv.Status == core.StatusOverdue && p.OverdueReminders:
			return Notification{
				Kind:     InvoiceOverdue,
				Title:    "Invoice overdue",
				Message:  fmt.Sprintf("Invoice %s for %s was due on %s", e.ID, orDash(inv.ClientName), inv.DueDate),
				EntityID: e.ID,
			}, true
		}
	case events.EntityExpense:
		if e.Kind == events.Created && p.ExpenseAlerts {
			exp, _ := e.Payload.(core.Expense)
			return Notification{
				Kind:     ExpenseAdded,
				Title:    "Expense recorded",
				Message:  fmt.Sprintf("%s (%s)", orDash(exp.Description), exp.Amount),
				EntityID: e.ID,
			}, true
		}
	}
	return Notification{}, false
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
