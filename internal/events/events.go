// Package events carries change notifications from the write path to
// interested consumers (notification feed, websocket hub, AMQP bridge).
//
// Delivery is at-most-once: a subscriber that cannot keep up loses events
// rather than slowing down writers.
package events

import (
	"context"
	"errors"
	"time"
)

type Kind string

const (
	Created       Kind = "created"
	Updated       Kind = "updated"
	Deleted       Kind = "deleted"
	StatusChanged Kind = "status_changed"
)

type Entity string

const (
	EntityClient   Entity = "client"
	EntityInvoice  Entity = "invoice"
	EntityExpense  Entity = "expense"
	EntityCategory Entity = "category"
	EntitySettings Entity = "settings"
)

// Event describes one committed change. Payload optionally carries the
// entity as it was written and Previous the entity before an update; neither
// leaves the process.
type Event struct {
	Kind       Kind      `json:"kind"`
	Entity     Entity    `json:"entity"`
	ID         string    `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"-"`
	Previous   any       `json:"-"`
}

// New stamps an event with the current time.
func New(kind Kind, entity Entity, id string, payload any) Event {
	return Event{Kind: kind, Entity: entity, ID: id, OccurredAt: time.Now().UTC(), Payload: payload}
}

type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Replacing stamps an update event that remembers the prior state.
func Replacing(entity Entity, id string, payload, previous any) Event {
	e := New(Updated, entity, id, payload)
	e.Previous = previous
	return e
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, e Event) error

func (f PublisherFunc) Publish(ctx context.Context, e Event) error { return f(ctx, e) }

// Multi fans one event out to several publishers.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, p := range m {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Discard drops every event.
var Discard Publisher = PublisherFunc(func(context.Context, Event) error { return nil })
