package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"invoicer/internal/cache"
	"invoicer/internal/events"
	"invoicer/internal/metrics"
	"invoicer/internal/sheets"
	"invoicer/internal/storage"
)

// SyncProcessorConfig holds configuration for the sync processor
type SyncProcessorConfig struct {
	// ReconcileInterval is how often counters are rebuilt and overdue
	// invoices are swept (default: 15m). Zero disables the loop.
	ReconcileInterval time.Duration

	// Generation is bumped when Reconcile heals drift, so cached reports
	// built on the drifted counters are dropped. May be nil.
	Generation cache.Generation

	// MaxRetries is the number of attempts per mirror operation (default: 3)
	MaxRetries int

	// RetryDelay is the pause between attempts, multiplied by the attempt number (default: 1s)
	RetryDelay time.Duration
}

// DefaultSyncProcessorConfig returns sensible defaults
func DefaultSyncProcessorConfig() SyncProcessorConfig {
	return SyncProcessorConfig{
		ReconcileInterval: 15 * time.Minute,
		MaxRetries:        3,
		RetryDelay:        time.Second,
	}
}

// SyncProcessor applies committed expense changes to the external mirror and
// periodically heals denormalized counters.
type SyncProcessor struct {
	storage *storage.SQLiteRepository
	mirror  sheets.ExpenseMirror
	overdue *OverdueProcessor
	config  SyncProcessorConfig

	// Lifecycle management
	mu       sync.Mutex
	running  bool
	stopCh   chan struct{}
	stopOnce *sync.Once
	doneCh   chan struct{}
}

// NewSyncProcessor creates a new sync processor. mirror and overdue may be nil.
func NewSyncProcessor(
	storage *storage.SQLiteRepository,
	mirror sheets.ExpenseMirror,
	overdue *OverdueProcessor,
	config SyncProcessorConfig,
) *SyncProcessor {
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	return &SyncProcessor{
		storage: storage,
		mirror:  mirror,
		overdue: overdue,
		config:  config,
	}
}

// Start begins the reconcile loop. Returns an error if already running.
func (p *SyncProcessor) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("sync processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.stopOnce = &sync.Once{}
	p.doneCh = make(chan struct{})
	p.mu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Sync processor started",
		"reconcile_interval", p.config.ReconcileInterval,
		"mirror", p.mirror != nil)

	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *SyncProcessor) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	stopCh, once, doneCh := p.stopCh, p.stopOnce, p.doneCh
	p.mu.Unlock()

	// Concurrent callers share one close and all wait for the loop.
	once.Do(func() { close(stopCh) })

	select {
	case <-doneCh:
		slog.InfoContext(ctx, "Sync processor stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Sync processor stop timed out")
		return ctx.Err()
	}

	p.mu.Lock()
	p.running = false
	p.mu.Unlock()

	return nil
}

// Mirrored reports whether an expense mirror is configured.
func (p *SyncProcessor) Mirrored() bool { return p.mirror != nil }

// IsRunning returns whether the processor is currently running
func (p *SyncProcessor) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.running
}

func (p *SyncProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	if p.config.ReconcileInterval <= 0 {
		select {
		case <-p.stopCh:
		case <-ctx.Done():
		}
		return
	}

	ticker := time.NewTicker(p.config.ReconcileInterval)
	defer ticker.Stop()

	// Reconcile immediately on startup
	p.Reconcile(ctx)

	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Reconcile(ctx)
		}
	}
}

// Reconcile rebuilds counters and sweeps overdue invoices. Failures are
// logged; the next tick tries again.
func (p *SyncProcessor) Reconcile(ctx context.Context) {
	report, err := p.storage.Reconcile(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Reconcile failed", "error", err)
	} else if fixed := report.ClientsFixed + boolToCount(report.BalanceFixed); fixed > 0 {
		metrics.ReconcileFixes.Add(float64(fixed))
		if p.config.Generation != nil {
			p.config.Generation.Bump(ctx)
		}
		slog.InfoContext(ctx, "Reconcile healed drift",
			"clients_fixed", report.ClientsFixed,
			"balance_fixed", report.BalanceFixed)
	}

	if p.overdue != nil {
		if _, err := p.overdue.MarkOverdue(ctx, time.Now()); err != nil {
			slog.ErrorContext(ctx, "Overdue sweep failed", "error", err)
		}
	}
}

// HandleChange applies one committed change to the mirror. Only expense
// changes are mirrored; everything else is acknowledged untouched.
func (p *SyncProcessor) HandleChange(ctx context.Context, kind events.Kind, entity events.Entity, id string) error {
	if entity != events.EntityExpense {
		return nil
	}
	if p.mirror == nil {
		slog.DebugContext(ctx, "No mirror configured, skipping change", "id", id)
		return nil
	}

	if kind == events.Deleted {
		return p.retry(ctx, "delete", id, func() error { return p.mirror.Delete(ctx, id) })
	}

	expense, err := p.storage.GetExpense(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted after the change was published; converge on the current state.
		return p.retry(ctx, "delete", id, func() error { return p.mirror.Delete(ctx, id) })
	}
	if err != nil {
		return fmt.Errorf("get expense %s: %w", id, err)
	}

	return p.retry(ctx, "upsert", id, func() error {
		ref, err := p.mirror.Upsert(ctx, expense)
		if err == nil {
			slog.InfoContext(ctx, "Mirrored expense", "expense_id", id, "mirror_ref", ref)
		}
		return err
	})
}

// Resync pushes every stored expense to the mirror and returns how many
// rows were written.
func (p *SyncProcessor) Resync(ctx context.Context) (int, error) {
	if p.mirror == nil {
		return 0, errors.New("no mirror configured")
	}
	expenses, err := p.storage.ListExpenses(ctx, storage.ExpenseFilter{})
	if err != nil {
		return 0, fmt.Errorf("list expenses: %w", err)
	}
	n := 0
	for _, e := range expenses {
		if _, err := p.mirror.Upsert(ctx, e); err != nil {
			metrics.MirrorOperations.WithLabelValues("upsert", "error").Inc()
			return n, fmt.Errorf("mirror expense %s: %w", e.ID, err)
		}
		metrics.MirrorOperations.WithLabelValues("upsert", "ok").Inc()
		n++
	}
	return n, nil
}

func (p *SyncProcessor) retry(ctx context.Context, op, id string, fn func() error) error {
	var err error
	for attempt := 1; attempt <= p.config.MaxRetries; attempt++ {
		err = fn()
		metrics.MirrorOperations.WithLabelValues(op, metrics.Result(err)).Inc()
		if err == nil {
			return nil
		}
		slog.WarnContext(ctx, "Mirror operation failed",
			"operation", op,
			"expense_id", id,
			"attempt", attempt,
			"error", err)
		if attempt == p.config.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * p.config.RetryDelay):
		}
	}
	return fmt.Errorf("%s expense %s: %w", op, id, err)
}

func boolToCount(b bool) int {
	if b {
		return 1
	}
	return 0
}
