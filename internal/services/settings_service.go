package services

import (
	"context"
	"fmt"
	"strings"

	"invoicer/internal/cache"
	"invoicer/internal/core"
	"invoicer/internal/events"
	"invoicer/internal/storage"
)

// SettingsService owns the singleton records: settings, the category
// catalog and the balance summary.
type SettingsService struct {
	store *storage.SQLiteRepository
	changeNotifier
}

func NewSettingsService(store *storage.SQLiteRepository, pub events.Publisher, gen cache.Generation) *SettingsService {
	return &SettingsService{store: store, changeNotifier: changeNotifier{publisher: pub, generation: gen}}
}

func (s *SettingsService) Get(ctx context.Context) (core.Settings, error) {
	settings, err := s.store.GetSettings(ctx)
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	return settings, nil
}

func (s *SettingsService) Save(ctx context.Context, settings core.Settings) (core.Settings, error) {
	settings.Invoicing.Prefix = strings.TrimSpace(settings.Invoicing.Prefix)
	settings.Invoicing.Currency = strings.ToUpper(strings.TrimSpace(settings.Invoicing.Currency))
	if settings.Invoicing.DefaultPaymentTerms == "" {
		settings.Invoicing.DefaultPaymentTerms = core.Net30
	}
	if err := settings.Validate(); err != nil {
		return core.Settings{}, err
	}
	saved, err := s.store.SaveSettings(ctx, settings)
	if err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	s.notify(ctx, events.New(events.Updated, events.EntitySettings, "settings", saved))
	return saved, nil
}

func (s *SettingsService) Categories(ctx context.Context) ([]core.ExpenseCategory, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (s *SettingsService) CreateCategory(ctx context.Context, c core.ExpenseCategory) (core.ExpenseCategory, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Description = strings.TrimSpace(c.Description)
	c.IsDefault = false
	if err := c.Validate(); err != nil {
		return core.ExpenseCategory{}, err
	}
	saved, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.ExpenseCategory{}, fmt.Errorf("create category: %w", err)
	}
	s.notify(ctx, events.New(events.Created, events.EntityCategory, saved.ID, saved))
	return saved, nil
}

func (s *SettingsService) DeleteCategory(ctx context.Context, id string) error {
	if err := s.store.DeleteCategory(ctx, id); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	s.notify(ctx, events.New(events.Deleted, events.EntityCategory, id, nil))
	return nil
}

// SeedCategories installs the default catalog on an empty table.
func (s *SettingsService) SeedCategories(ctx context.Context) (int, error) {
	n, err := s.store.EnsureDefaultCategories(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed categories: %w", err)
	}
	return n, nil
}

func (s *SettingsService) Balance(ctx context.Context) (core.BalanceSummary, error) {
	b, err := s.store.GetBalance(ctx)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("get balance: %w", err)
	}
	return b, nil
}

// RecomputeBalance rebuilds the summary from all invoices and expenses.
func (s *SettingsService) RecomputeBalance(ctx context.Context) (core.BalanceSummary, error) {
	b, err := s.store.RecomputeBalance(ctx)
	if err != nil {
		return core.BalanceSummary{}, fmt.Errorf("recompute balance: %w", err)
	}
	if s.generation != nil {
		s.generation.Bump(ctx)
	}
	return b, nil
}
