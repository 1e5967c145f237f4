// Package search debounces interactive queries and drops results that a
// newer query has superseded.
package search

import (
	"context"
	"sync"
	"time"
)

// DefaultDelay is the inactivity window before a query is dispatched.
const DefaultDelay = 300 * time.Millisecond

// Func runs one query. It must honour ctx cancellation.
type Func[R any] func(ctx context.Context, query string) (R, error)

// Result is delivered for the latest dispatched query only.
type Result[R any] struct {
	Seq   uint64
	Query string
	Value R
	Err   error
}

// Debouncer waits for typing to pause before running a query. Every dispatch
// carries a sequence number; when a newer query is dispatched the older one
// is cancelled and its result, if it still arrives, is discarded.
type Debouncer[R any] struct {
	delay   time.Duration
	run     Func[R]
	deliver func(Result[R])

	mu      sync.Mutex
	timer   *time.Timer
	seq     uint64
	latest  uint64
	cancel  context.CancelFunc
	closed  bool
	pending sync.WaitGroup
}

// NewDebouncer calls deliver from a background goroutine with the result of
// each query that is still current when it completes.
func NewDebouncer[R any](delay time.Duration, run Func[R], deliver func(Result[R])) *Debouncer[R] {
	if delay <= 0 {
		delay = DefaultDelay
	}
	return &Debouncer[R]{delay: delay, run: run, deliver: deliver}
}

// Submit (re)starts the inactivity timer for query.
func (d *Debouncer[R]) Submit(ctx context.Context, query string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.dispatch(ctx, query) })
}

// Flush dispatches query immediately, skipping the timer.
func (d *Debouncer[R]) Flush(ctx context.Context, query string) {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.mu.Unlock()
	d.dispatch(ctx, query)
}

func (d *Debouncer[R]) dispatch(parent context.Context, query string) {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.seq++
	seq := d.seq
	d.latest = seq
	ctx, cancel := context.WithCancel(parent)
	d.cancel = cancel
	d.pending.Add(1)
	d.mu.Unlock()

	go func() {
		defer d.pending.Done()
		defer cancel()
		v, err := d.run(ctx, query)
		if !d.current(seq) {
			return
		}
		d.deliver(Result[R]{Seq: seq, Query: query, Value: v, Err: err})
	}()
}

func (d *Debouncer[R]) current(seq uint64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return !d.closed && seq == d.latest
}

// Close stops the timer, cancels the running query and waits for it to
// return. No result is delivered after Close.
func (d *Debouncer[R]) Close() {
	d.mu.Lock()
	d.closed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	if d.cancel != nil {
		d.cancel()
	}
	d.mu.Unlock()
	d.pending.Wait()
}
