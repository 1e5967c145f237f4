package events

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker()
	a := b.Subscribe("a", 4)
	c := b.Subscribe("c", 4)
	defer a.Close()
	defer c.Close()

	ev := New(Created, EntityInvoice, "INV-0001", nil)
	if err := b.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	for _, s := range []*Subscription{a, c} {
		select {
		case got := <-s.C():
			if got.ID != "INV-0001" || got.Kind != Created {
				t.Fatalf("unexpected event %+v", got)
			}
		case <-time.After(time.Second):
			t.Fatalf("subscriber %s did not receive event", s.Name())
		}
	}
}

func TestBrokerDropsInsteadOfBlocking(t *testing.T) {
	var dropped int64
	b := NewBroker(WithDropHook(func(string) { atomic.AddInt64(&dropped, 1) }))
	slow := b.Subscribe("slow", 1)
	defer slow.Close()

	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			_ = b.Publish(context.Background(), New(Updated, EntityExpense, "e", nil))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a full subscriber")
	}
	if got := atomic.LoadInt64(&dropped); got != 9 {
		t.Fatalf("dropped = %d, want 9", got)
	}
	if len(slow.C()) != 1 {
		t.Fatalf("buffer should hold exactly one event")
	}
}

func TestSubscriptionClose(t *testing.T) {
	b := NewBroker()
	s := b.Subscribe("x", 1)
	s.Close()
	s.Close()
	if b.Subscribers() != 0 {
		t.Fatalf("expected no subscribers")
	}
	if _, ok := <-s.C(); ok {
		t.Fatal("channel should be closed")
	}
	b.Close()
	late := b.Subscribe("late", 1)
	if _, ok := <-late.C(); ok {
		t.Fatal("subscribing to a closed broker yields a closed channel")
	}
	late.Close()
}

func TestMultiJoinsErrors(t *testing.T) {
	var calls int
	ok := PublisherFunc(func(context.Context, Event) error { calls++; return nil })
	boom := errors.New("boom")
	bad := PublisherFunc(func(context.Context, Event) error { calls++; return boom })

	err := Multi{ok, nil, bad, ok}.Publish(context.Background(), Event{})
	if !errors.Is(err, boom) {
		t.Fatalf("expected joined error, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("every publisher must be called, got %d", calls)
	}
}
