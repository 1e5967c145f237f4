package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"invoicer/internal/analytics"
	"invoicer/internal/cache"
	"invoicer/internal/core"
	"invoicer/internal/metrics"
	"invoicer/internal/storage"
)

const (
	dashboardMonths     = 6
	dashboardTopClients = 5
	tableTopClients     = 10
)

// Range scopes a report to [From, To] (both inclusive, either optional)
// and picks the bucket size of its series.
type Range struct {
	From   core.Date
	To     core.Date
	Period analytics.Period
}

func (r Range) key() string {
	return r.From.String() + ".." + r.To.String() + ":" + string(r.period())
}

func (r Range) period() analytics.Period {
	if r.Period.IsValid() {
		return r.Period
	}
	return analytics.Monthly
}

// seed pre-creates the monthly buckets of a bounded range so empty months
// show up as zero.
func (r Range) seed() []string {
	if r.period() != analytics.Monthly || r.From.IsZero() || r.To.IsZero() {
		return nil
	}
	return analytics.SeedMonths(r.From, r.To.AddDays(1))
}

type Dashboard struct {
	Revenue          analytics.Change          `json:"revenue"`
	Expenses         analytics.Change          `json:"expenses"`
	Outstanding      core.Money                `json:"outstanding"`
	OutstandingCount int                       `json:"outstanding_count"`
	RevenueSeries    []analytics.Bucket        `json:"revenue_series"`
	ExpenseSeries    []analytics.Bucket        `json:"expense_series"`
	TopClients       []analytics.ClientRevenue `json:"top_clients"`
	Statuses         []analytics.StatusCount   `json:"statuses"`
	TopCategory      analytics.CategoryAmount  `json:"top_category"`
	AvgPaymentDays   float64                   `json:"avg_payment_days"`
	Balance          core.BalanceSummary       `json:"balance"`
}

type ExpenseReport struct {
	Total      core.Money                 `json:"total"`
	Count      int                        `json:"count"`
	ByCategory []analytics.CategoryAmount `json:"by_category"`
	ByVendor   []analytics.CategoryAmount `json:"by_vendor"`
	Series     []analytics.Bucket         `json:"series"`
	Trend      analytics.Direction        `json:"trend"`
}

type RevenueReport struct {
	Total            core.Money          `json:"total"`
	Series           []analytics.Bucket  `json:"series"`
	Trend            analytics.Direction `json:"trend"`
	Outstanding      core.Money          `json:"outstanding"`
	OutstandingCount int                 `json:"outstanding_count"`
	AvgPaymentDays   float64             `json:"avg_payment_days"`
}

type ProfitReport struct {
	Summary analytics.ProfitSummary  `json:"summary"`
	Series  []analytics.ProfitBucket `json:"series"`
	Trend   analytics.Direction      `json:"trend"`
}

// ReportService assembles read-only reports from the store. Results are
// cached under the current generation, so any committed write makes them
// unreachable.
type ReportService struct {
	store      *storage.SQLiteRepository
	cache      cache.Cache[[]byte]
	generation cache.Generation
	now        func() time.Time
}

func NewReportService(store *storage.SQLiteRepository, c cache.Cache[[]byte], gen cache.Generation) *ReportService {
	if gen == nil {
		gen = &cache.LocalGeneration{}
	}
	return &ReportService{store: store, cache: c, generation: gen, now: time.Now}
}

// Dashboard compares this month with last month and charts the last six.
func (s *ReportService) Dashboard(ctx context.Context) (Dashboard, error) {
	now := s.now().UTC()
	return cached(ctx, s, cache.Key(ctx, s.generation, "dashboard", analytics.PeriodKey(core.Date{Time: now}, analytics.Monthly)),
		func() (Dashboard, error) {
			d, err := s.load(ctx, Range{}, true)
			if err != nil {
				return Dashboard{}, err
			}

			thisMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
			lastMonth := thisMonth.AddDate(0, -1, 0)
			nextMonth := thisMonth.AddDate(0, 1, 0)

			out := Dashboard{
				Revenue: analytics.PeriodChange(
					analytics.SumPaid(invoicesIn(d.invoices, thisMonth, nextMonth)),
					analytics.SumPaid(invoicesIn(d.invoices, lastMonth, thisMonth))),
				Expenses: analytics.PeriodChange(
					analytics.SumExpenses(expensesIn(d.expenses, thisMonth, nextMonth)),
					analytics.SumExpenses(expensesIn(d.expenses, lastMonth, thisMonth))),
				TopClients:     analytics.ClientRanking(d.invoices, dashboardTopClients),
				Statuses:       analytics.StatusHistogram(d.invoices, false),
				TopCategory:    analytics.TopCategory(analytics.CategoryBreakdown(d.expenses, d.categories)),
				AvgPaymentDays: analytics.AveragePaymentDays(d.invoices),
				Balance:        d.balance,
			}
			out.Outstanding, out.OutstandingCount = analytics.Outstanding(d.invoices)

			months := analytics.LastNMonths(now, dashboardMonths)
			out.RevenueSeries = within(analytics.RevenueSeries(d.invoices, analytics.Monthly, months...), months)
			out.ExpenseSeries = within(analytics.ExpenseSeries(d.expenses, analytics.Monthly, months...), months)
			return out, nil
		})
}

func (s *ReportService) Expenses(ctx context.Context, r Range) (ExpenseReport, error) {
	return cached(ctx, s, cache.Key(ctx, s.generation, "expenses", r.key()), func() (ExpenseReport, error) {
		d, err := s.load(ctx, r, false)
		if err != nil {
			return ExpenseReport{}, err
		}
		series := analytics.ExpenseSeries(d.expenses, r.period(), r.seed()...)
		return ExpenseReport{
			Total:      analytics.SumExpenses(d.expenses),
			Count:      len(d.expenses),
			ByCategory: analytics.CategoryBreakdown(d.expenses, d.categories),
			ByVendor:   analytics.VendorBreakdown(d.expenses),
			Series:     series,
			Trend:      analytics.Trend(series),
		}, nil
	})
}

func (s *ReportService) Revenue(ctx context.Context, r Range) (RevenueReport, error) {
	return cached(ctx, s, cache.Key(ctx, s.generation, "revenue", r.key()), func() (RevenueReport, error) {
		d, err := s.load(ctx, r, false)
		if err != nil {
			return RevenueReport{}, err
		}
		series := analytics.RevenueSeries(d.invoices, r.period(), r.seed()...)
		out := RevenueReport{
			Total:          analytics.SumPaid(d.invoices),
			Series:         series,
			Trend:          analytics.Trend(series),
			AvgPaymentDays: analytics.AveragePaymentDays(d.invoices),
		}
		out.Outstanding, out.OutstandingCount = analytics.Outstanding(d.invoices)
		return out, nil
	})
}

// Clients ranks clients by Paid revenue; limit <= 0 uses the table size.
func (s *ReportService) Clients(ctx context.Context, r Range, limit int) ([]analytics.ClientRevenue, error) {
	if limit <= 0 {
		limit = tableTopClients
	}
	return cached(ctx, s, cache.Key(ctx, s.generation, "clients", r.key(), fmt.Sprint(limit)), func() ([]analytics.ClientRevenue, error) {
		d, err := s.load(ctx, r, false)
		if err != nil {
			return nil, err
		}
		return analytics.ClientRanking(d.invoices, limit), nil
	})
}

func (s *ReportService) InvoiceStatus(ctx context.Context, r Range, includeCancelled bool) ([]analytics.StatusCount, error) {
	return cached(ctx, s, cache.Key(ctx, s.generation, "status", r.key(), fmt.Sprint(includeCancelled)), func() ([]analytics.StatusCount, error) {
		d, err := s.load(ctx, r, false)
		if err != nil {
			return nil, err
		}
		return analytics.StatusHistogram(d.invoices, includeCancelled), nil
	})
}

func (s *ReportService) Profit(ctx context.Context, r Range) (ProfitReport, error) {
	return cached(ctx, s, cache.Key(ctx, s.generation, "profit", r.key()), func() (ProfitReport, error) {
		d, err := s.load(ctx, r, false)
		if err != nil {
			return ProfitReport{}, err
		}
		seed := r.seed()
		series := analytics.ProfitSeries(
			analytics.RevenueSeries(d.invoices, r.period(), seed...),
			analytics.ExpenseSeries(d.expenses, r.period(), seed...))
		return ProfitReport{
			Summary: analytics.Profit(analytics.SumPaid(d.invoices), analytics.SumExpenses(d.expenses)),
			Series:  series,
			Trend:   analytics.Trend(analytics.NetSeries(series)),
		}, nil
	})
}

type reportData struct {
	invoices   []core.Invoice
	expenses   []core.Expense
	categories []core.ExpenseCategory
	balance    core.BalanceSummary
}

// load reads everything a report needs concurrently.
func (s *ReportService) load(ctx context.Context, r Range, withBalance bool) (reportData, error) {
	var d reportData
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.invoices, err = s.store.ListInvoices(gctx, storage.InvoiceFilter{From: r.From, To: r.To})
		return err
	})
	g.Go(func() error {
		var err error
		d.expenses, err = s.store.ListExpenses(gctx, storage.ExpenseFilter{From: r.From, To: r.To})
		return err
	})
	g.Go(func() error {
		var err error
		d.categories, err = s.store.ListCategories(gctx)
		return err
	})
	if withBalance {
		g.Go(func() error {
			var err error
			d.balance, err = s.store.GetBalance(gctx)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return reportData{}, fmt.Errorf("load report data: %w", err)
	}
	return d, nil
}

// cached serves a report from the cache or builds and stores it. Cache
// failures only cost a rebuild.
func cached[T any](ctx context.Context, s *ReportService, key string, build func() (T, error)) (T, error) {
	if s.cache != nil {
		if b, ok := s.cache.Get(ctx, key); ok {
			var v T
			if err := json.Unmarshal(b, &v); err == nil {
				metrics.CacheHit()
				return v, nil
			}
			s.cache.Delete(ctx, key)
		}
		metrics.CacheMiss()
	}
	v, err := build()
	if err != nil {
		return v, err
	}
	if s.cache != nil {
		if b, err := json.Marshal(v); err != nil {
			slog.WarnContext(ctx, "Failed to encode report for cache", "key", key, "error", err)
		} else {
			s.cache.Set(ctx, key, b)
		}
	}
	return v, nil
}

func invoicesIn(invoices []core.Invoice, from, to time.Time) []core.Invoice {
	var out []core.Invoice
	for _, inv := range invoices {
		if !inv.IssueDate.Before(from) && inv.IssueDate.Before(to) {
			out = append(out, inv)
		}
	}
	return out
}

func expensesIn(expenses []core.Expense, from, to time.Time) []core.Expense {
	var out []core.Expense
	for _, e := range expenses {
		if !e.Date.Before(from) && e.Date.Before(to) {
			out = append(out, e)
		}
	}
	return out
}

// within keeps only the buckets whose key is listed.
func within(series []analytics.Bucket, keys []string) []analytics.Bucket {
	keep := make(map[string]bool, len(keys))
	for _, k := range keys {
		keep[k] = true
	}
	out := series[:0]
	for _, b := range series {
		if keep[b.Key] {
			out = append(out, b)
		}
	}
	return out
}
