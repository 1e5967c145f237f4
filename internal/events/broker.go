package events

import (
	"context"
	"log/slog"
	"sync"
)

const defaultBuffer = 64

// Broker is an in-process fan-out. Publish never blocks: when a
// subscriber's buffer is full the event is dropped for that subscriber.
type Broker struct {
	mu     sync.RWMutex
	subs   map[*Subscription]struct{}
	closed bool
	onDrop func(subscriber string)
}

type BrokerOption func(*Broker)

// WithDropHook registers a callback invoked for every dropped delivery.
func WithDropHook(fn func(subscriber string)) BrokerOption {
	return func(b *Broker) { b.onDrop = fn }
}

func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{subs: make(map[*Subscription]struct{})}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Subscription receives events on C until Close is called.
type Subscription struct {
	name   string
	ch     chan Event
	broker *Broker
	once   sync.Once
}

func (s *Subscription) C() <-chan Event { return s.ch }

func (s *Subscription) Name() string { return s.name }

// Close unsubscribes and closes C.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.broker.mu.Lock()
		if _, ok := s.broker.subs[s]; ok {
			delete(s.broker.subs, s)
			close(s.ch)
		}
		s.broker.mu.Unlock()
	})
}

// Subscribe registers a named subscriber with the given buffer size.
func (b *Broker) Subscribe(name string, buffer int) *Subscription {
	if buffer <= 0 {
		buffer = defaultBuffer
	}
	s := &Subscription{name: name, ch: make(chan Event, buffer), broker: b}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	b.subs[s] = struct{}{}
	return s
}

func (b *Broker) Publish(ctx context.Context, e Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return nil
	}
	for s := range b.subs {
		select {
		case s.ch <- e:
		default:
			slog.WarnContext(ctx, "Dropped event for slow subscriber",
				"subscriber", s.name,
				"entity", e.Entity,
				"kind", e.Kind,
				"id", e.ID)
			if b.onDrop != nil {
				b.onDrop(s.name)
			}
		}
	}
	return nil
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Close closes every subscription. Later publishes are ignored.
func (b *Broker) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for s := range b.subs {
		close(s.ch)
		delete(b.subs, s)
	}
}
