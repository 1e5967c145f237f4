// Package worker drives the expense mirror and the periodic reconcile job
// from a stream of change messages.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"invoicer/internal/amqp"
	"invoicer/internal/events"
	"invoicer/internal/services"
)

// Source delivers change messages to handler until ctx is done. The AMQP
// client is the production source; BrokerSource serves single-process
// deployments.
type Source interface {
	Consume(ctx context.Context, handler amqp.Handler) error
}

// BrokerSource adapts an in-process broker subscription to Source. Handler
// errors are logged; there is nothing to requeue to.
type BrokerSource struct {
	Sub *events.Subscription
}

func (s BrokerSource) Consume(ctx context.Context, handler amqp.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case e, ok := <-s.Sub.C():
			if !ok {
				return nil
			}
			if err := handler(ctx, amqp.NewChangeMessage(e)); err != nil {
				slog.ErrorContext(ctx, "Failed to handle change event",
					"entity", e.Entity, "id", e.ID, "error", err)
			}
		}
	}
}

// SyncWorker applies change messages to the expense mirror and runs the
// reconcile loop of the processor while it consumes.
type SyncWorker struct {
	processor *services.SyncProcessor
	source    Source
}

func NewSyncWorker(processor *services.SyncProcessor, source Source) *SyncWorker {
	return &SyncWorker{processor: processor, source: source}
}

// HandleMessage processes a single change message
func (w *SyncWorker) HandleMessage(ctx context.Context, msg *amqp.ChangeMessage) error {
	slog.DebugContext(ctx, "Processing change message",
		"entity", msg.Entity,
		"kind", msg.Kind,
		"id", msg.ID,
		"occurred_at", msg.OccurredAt)

	if err := w.processor.HandleChange(ctx, msg.Kind, msg.Entity, msg.ID); err != nil {
		return fmt.Errorf("handle %s %s: %w", msg.Entity, msg.ID, err)
	}
	return nil
}

// StartupSync pushes every expense to the mirror so rows missed while the
// worker was down are recovered. It is a no-op without a mirror.
func (w *SyncWorker) StartupSync(ctx context.Context) error {
	if !w.processor.Mirrored() {
		slog.InfoContext(ctx, "No expense mirror configured, skipping startup sync")
		return nil
	}
	start := time.Now()
	n, err := w.processor.Resync(ctx)
	if err != nil {
		return fmt.Errorf("startup sync: %w", err)
	}
	slog.InfoContext(ctx, "Startup sync completed", "synced", n, "duration", time.Since(start))
	return nil
}

// Run starts the reconcile loop and consumes the source until ctx is done.
// A cancelled context is a clean shutdown and returns nil.
func (w *SyncWorker) Run(ctx context.Context) error {
	if err := w.processor.Start(ctx); err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := w.processor.Stop(stopCtx); err != nil {
			slog.Error("Failed to stop sync processor", "error", err)
		}
	}()

	var err error
	if w.source == nil {
		<-ctx.Done()
	} else {
		err = w.source.Consume(ctx, w.HandleMessage)
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("consume change messages: %w", err)
	}
	return nil
}
