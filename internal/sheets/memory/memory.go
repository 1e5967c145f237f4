// Package memory is an in-process ExpenseMirror used in development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"invoicer/internal/core"
	"invoicer/internal/sheets"
)

var _ sheets.ExpenseMirror = (*Store)(nil)

type Store struct {
	mu    sync.Mutex
	index map[string]int
	items []core.Expense
}

func New() *Store {
	return &Store{index: make(map[string]int)}
}

// Upsert stores the expense and returns a synthetic row reference.
func (s *Store) Upsert(_ context.Context, e core.Expense) (string, error) {
	if err := sheets.Validate(e); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[e.ID]; ok {
		s.items[i] = e
		return fmt.Sprintf("mem:%d", i+1), nil
	}
	s.items = append(s.items, e)
	s.index[e.ID] = len(s.items) - 1
	return fmt.Sprintf("mem:%d", len(s.items)), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.items); j++ {
		s.index[s.items[j].ID] = j
	}
	return nil
}

// Rows returns a copy of the mirrored expenses in insertion order.
func (s *Store) Rows() []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Expense(nil), s.items...)
}
