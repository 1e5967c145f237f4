package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"invoicer/internal/analytics"
	"invoicer/internal/cache"
	"invoicer/internal/core"
)

func newReportService(f *fixture, now time.Time) *ReportService {
	s := NewReportService(f.store, cache.NewLRUCache[[]byte](100, time.Minute), f.gen)
	s.now = func() time.Time { return now }
	return s
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	acme := f.client(t, "Acme", core.Net30)
	globex := f.client(t, "Globex", core.Net15)

	f.invoice(t, acme.ID, core.NewDate(2025, 6, 3), core.StatusPaid, 30000)
	f.invoice(t, globex.ID, core.NewDate(2025, 5, 10), core.StatusPaid, 20000)
	f.invoice(t, globex.ID, core.NewDate(2025, 6, 12), core.StatusPending, 5000)
	f.invoice(t, acme.ID, core.NewDate(2025, 6, 14), core.StatusCancelled, 9999)
	f.expense(t, "Rent", core.NewDate(2025, 6, 1), 10000)
	f.expense(t, "Rent", core.NewDate(2025, 5, 1), 10000)

	d, err := newReportService(f, time.Date(2025, 6, 20, 9, 0, 0, 0, time.UTC)).Dashboard(ctx)
	if err != nil {
		t.Fatal(err)
	}

	if d.Revenue.Current.Cents != 30000 || d.Revenue.Previous.Cents != 20000 || d.Revenue.Percent != 50 || d.Revenue.Direction != analytics.Up {
		t.Errorf("unexpected revenue card %+v", d.Revenue)
	}
	if d.Expenses.Direction != analytics.Flat || d.Expenses.Percent != 0 {
		t.Errorf("unexpected expense card %+v", d.Expenses)
	}
	if d.Outstanding.Cents != 5000 || d.OutstandingCount != 1 {
		t.Errorf("outstanding = %d (%d)", d.Outstanding.Cents, d.OutstandingCount)
	}
	if len(d.RevenueSeries) != 6 || d.RevenueSeries[0].Key != "2025-01" || d.RevenueSeries[5].Key != "2025-06" {
		t.Errorf("revenue series should cover six months ending in June, got %+v", d.RevenueSeries)
	}
	if len(d.TopClients) != 2 || d.TopClients[0].ClientName != "Acme" {
		t.Errorf("unexpected top clients %+v", d.TopClients)
	}
	if len(d.Statuses) != 4 {
		t.Errorf("dashboard histogram excludes Cancelled, got %d rows", len(d.Statuses))
	}
	if d.TopCategory.Name != analytics.Uncategorized || d.TopCategory.Amount.Cents != 20000 {
		t.Errorf("unexpected top category %+v", d.TopCategory)
	}
	if d.Balance.TotalEarnings.Cents != 50000 || d.Balance.TotalExpenses.Cents != 20000 {
		t.Errorf("unexpected balance %+v", d.Balance)
	}
}

func TestReportsAreCachedUntilAWrite(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := newReportService(f, time.Date(2025, 6, 20, 0, 0, 0, 0, time.UTC))
	f.expense(t, "Coffee", core.NewDate(2025, 6, 2), 500)

	r := Range{From: core.NewDate(2025, 6, 1), To: core.NewDate(2025, 6, 30)}
	first, err := s.Expenses(ctx, r)
	if err != nil {
		t.Fatal(err)
	}

	// A write that bypasses the services does not bump the generation, so
	// the cached report is served.
	if _, err := f.store.CreateExpense(ctx, core.Expense{Description: "Tea", Date: core.NewDate(2025, 6, 3),
		Amount: core.Money{Cents: 700}, PaymentMethod: core.PayCash}); err != nil {
		t.Fatal(err)
	}
	cached, _ := s.Expenses(ctx, r)
	if cached.Total != first.Total {
		t.Fatalf("expected cached total %d, got %d", first.Total.Cents, cached.Total.Cents)
	}

	f.expense(t, "Cake", core.NewDate(2025, 6, 4), 800)
	fresh, _ := s.Expenses(ctx, r)
	if fresh.Total.Cents != 2000 || fresh.Count != 3 {
		t.Errorf("expected fresh report after a service write, got %+v", fresh)
	}
}

func TestProfitReportRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	c := f.client(t, "Acme", core.Net30)
	f.invoice(t, c.ID, core.NewDate(2025, 1, 15), core.StatusPaid, 10000)
	f.invoice(t, c.ID, core.NewDate(2025, 3, 15), core.StatusPaid, 40000)
	f.expense(t, "Hosting", core.NewDate(2025, 3, 1), 10000)
	f.expense(t, "Old", core.NewDate(2024, 12, 31), 99999)

	p, err := newReportService(f, time.Now()).Profit(ctx, Range{From: core.NewDate(2025, 1, 1), To: core.NewDate(2025, 3, 31)})
	if err != nil {
		t.Fatal(err)
	}
	if p.Summary.Net.Cents != 40000 || p.Summary.Margin != 80 {
		t.Errorf("unexpected summary %+v", p.Summary)
	}
	if len(p.Series) != 3 {
		t.Fatalf("expected Jan..Mar buckets, got %+v", p.Series)
	}
	if p.Series[1].Key != "2025-02" || p.Series[1].Net.Cents != 0 {
		t.Errorf("empty February should be present, got %+v", p.Series[1])
	}
	if p.Trend != analytics.Up {
		t.Errorf("trend = %s, want up", p.Trend)
	}
}

func TestClientsAndStatusReports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := newReportService(f, time.Now())
	for i := 0; i < 12; i++ {
		c := f.client(t, fmt.Sprintf("Client %02d", i), core.Net30)
		f.invoice(t, c.ID, core.NewDate(2025, 2, 1), core.StatusPaid, int64(1000*(i+1)))
	}
	ranking, err := s.Clients(ctx, Range{}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(ranking) != 10 || ranking[0].ClientName != "Client 11" {
		t.Errorf("unexpected ranking: %d rows, first %+v", len(ranking), ranking[0])
	}

	statuses, err := s.InvoiceStatus(ctx, Range{}, true)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 5 || statuses[0].Status != core.StatusPaid || statuses[0].Count != 12 {
		t.Errorf("unexpected histogram %+v", statuses)
	}
}
