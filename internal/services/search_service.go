package services

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"invoicer/internal/core"
	"invoicer/internal/storage"
)

const searchLimit = 5

// SearchResults groups global search hits per entity type.
type SearchResults struct {
	Query    string         `json:"query"`
	Clients  []core.Client  `json:"clients"`
	Invoices []core.Invoice `json:"invoices"`
	Expenses []core.Expense `json:"expenses"`
}

// Total is the number of hits across all types.
func (r SearchResults) Total() int {
	return len(r.Clients) + len(r.Invoices) + len(r.Expenses)
}

type SearchService struct {
	store *storage.SQLiteRepository
}

func NewSearchService(store *storage.SQLiteRepository) *SearchService {
	return &SearchService{store: store}
}

// Search runs one filtered read per entity type concurrently and caps each
// list. A blank query yields empty lists without touching the store.
func (s *SearchService) Search(ctx context.Context, query string) (SearchResults, error) {
	q := strings.TrimSpace(query)
	res := SearchResults{Query: q, Clients: []core.Client{}, Invoices: []core.Invoice{}, Expenses: []core.Expense{}}
	if q == "" {
		return res, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		res.Clients, err = s.store.ListClients(gctx, storage.ClientFilter{Search: q, Limit: searchLimit})
		return err
	})
	g.Go(func() error {
		var err error
		res.Invoices, err = s.store.ListInvoices(gctx, storage.InvoiceFilter{Search: q, Limit: searchLimit})
		return err
	})
	g.Go(func() error {
		var err error
		res.Expenses, err = s.store.ListExpenses(gctx, storage.ExpenseFilter{Search: q, Limit: searchLimit})
		return err
	})
	if err := g.Wait(); err != nil {
		return SearchResults{}, fmt.Errorf("search %q: %w", q, err)
	}
	return res, nil
}
