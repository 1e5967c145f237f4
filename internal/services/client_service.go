package services

import (
	"context"
	"fmt"
	"log/slog"

	"invoicer/internal/cache"
	"invoicer/internal/core"
	"invoicer/internal/events"
	"invoicer/internal/storage"
)

// ClientService validates client writes and keeps subscribers informed.
type ClientService struct {
	store *storage.SQLiteRepository
	changeNotifier
}

func NewClientService(store *storage.SQLiteRepository, pub events.Publisher, gen cache.Generation) *ClientService {
	return &ClientService{store: store, changeNotifier: changeNotifier{publisher: pub, generation: gen}}
}

func (s *ClientService) List(ctx context.Context, f storage.ClientFilter) ([]core.Client, error) {
	clients, err := s.store.ListClients(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	return clients, nil
}

func (s *ClientService) Get(ctx context.Context, id string) (core.Client, error) {
	c, err := s.store.GetClient(ctx, id)
	if err != nil {
		return core.Client{}, fmt.Errorf("get client: %w", err)
	}
	return c, nil
}

func (s *ClientService) Create(ctx context.Context, c core.Client) (core.Client, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}
	saved, err := s.store.CreateClient(ctx, c)
	if err != nil {
		return core.Client{}, fmt.Errorf("create client: %w", err)
	}
	s.notify(ctx, events.New(events.Created, events.EntityClient, saved.ID, saved))
	return saved, nil
}

// Update replaces the editable fields. Counters are owned by the store and
// are never taken from the caller.
func (s *ClientService) Update(ctx context.Context, c core.Client) (core.Client, error) {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return core.Client{}, err
	}
	saved, err := s.store.UpdateClient(ctx, c)
	if err != nil {
		return core.Client{}, fmt.Errorf("update client: %w", err)
	}
	s.notify(ctx, events.New(events.Updated, events.EntityClient, saved.ID, saved))
	return saved, nil
}

func (s *ClientService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteClient(ctx, id); err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	slog.InfoContext(ctx, "Client deleted", "id", id)
	s.notify(ctx, events.New(events.Deleted, events.EntityClient, id, nil))
	return nil
}
