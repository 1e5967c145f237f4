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

// ExpenseService validates expenses, stores them and announces the change.
// The AMQP bridge and the expense mirror hang off the announcement.
type ExpenseService struct {
	store *storage.SQLiteRepository
	changeNotifier
}

func NewExpenseService(store *storage.SQLiteRepository, pub events.Publisher, gen cache.Generation) *ExpenseService {
	return &ExpenseService{store: store, changeNotifier: changeNotifier{publisher: pub, generation: gen}}
}

func (s *ExpenseService) List(ctx context.Context, f storage.ExpenseFilter) ([]core.Expense, error) {
	expenses, err := s.store.ListExpenses(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	return expenses, nil
}

func (s *ExpenseService) Get(ctx context.Context, id string) (core.Expense, error) {
	e, err := s.store.GetExpense(ctx, id)
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// Create saves an expense locally; the balance is refreshed in the same
// transaction by the store.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	saved, err := s.store.CreateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", asFieldError(err))
	}
	s.notify(ctx, events.New(events.Created, events.EntityExpense, saved.ID, saved))
	return saved, nil
}

func (s *ExpenseService) Update(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.Normalize()
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	saved, err := s.store.UpdateExpense(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", asFieldError(err))
	}
	s.notify(ctx, events.New(events.Updated, events.EntityExpense, saved.ID, saved))
	return saved, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteExpense(ctx, id); err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	slog.InfoContext(ctx, "Expense deleted", "id", id)
	s.notify(ctx, events.New(events.Deleted, events.EntityExpense, id, nil))
	return nil
}
