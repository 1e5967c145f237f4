package services

import (
	"context"
	"log/slog"

	"invoicer/internal/cache"
	"invoicer/internal/events"
)

// changeNotifier runs the after-commit side effects shared by every write:
// publish a change event and invalidate cached reports. Both are best-effort;
// the write has already succeeded when they run.
type changeNotifier struct {
	publisher  events.Publisher
	generation cache.Generation
}

func (n changeNotifier) notify(ctx context.Context, e events.Event) {
	if n.generation != nil {
		n.generation.Bump(ctx)
	}
	if n.publisher == nil {
		return
	}
	if err := n.publisher.Publish(ctx, e); err != nil {
		slog.WarnContext(ctx, "Failed to publish change event",
			"kind", e.Kind, "entity", e.Entity, "id", e.ID, "error", err)
		// Don't fail the request - the change is committed
	}
}
