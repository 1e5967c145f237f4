package analytics

import (
	"testing"
	"time"

	"invoicer/internal/core"
)

func TestPeriodKey(t *testing.T) {
	tests := []struct {
		date core.Date
		p    Period
		want string
	}{
		{core.NewDate(2025, 1, 1), Monthly, "2025-01"},
		{core.NewDate(2025, 12, 31), Monthly, "2025-12"},
		{core.NewDate(2025, 1, 15), Quarterly, "2025-Q1"},
		{core.NewDate(2025, 3, 31), Quarterly, "2025-Q1"},
		{core.NewDate(2025, 4, 1), Quarterly, "2025-Q2"},
		{core.NewDate(2025, 12, 1), Quarterly, "2025-Q4"},
		{core.NewDate(2025, 7, 4), Yearly, "2025"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := PeriodKey(tt.date, tt.p); got != tt.want {
				t.Errorf("PeriodKey(%s, %s) = %s, want %s", tt.date, tt.p, got, tt.want)
			}
		})
	}
}

func TestSameMonthSameBucket(t *testing.T) {
	for day := 1; day <= 31; day++ {
		if got := PeriodKey(core.NewDate(2024, 1, day), Monthly); got != "2024-01" {
			t.Fatalf("day %d mapped to %s", day, got)
		}
	}
}

func TestSeedMonthsOneYear(t *testing.T) {
	keys := SeedMonths(core.NewDate(2024, 3, 15), core.NewDate(2025, 3, 15))
	// both partial Marches are touched
	if len(keys) != 13 {
		t.Fatalf("mid-month range: expected 13 keys, got %d (%v)", len(keys), keys)
	}
	keys = SeedMonths(core.NewDate(2024, 1, 1), core.NewDate(2025, 1, 1))
	if len(keys) != 12 || keys[0] != "2024-01" || keys[11] != "2024-12" {
		t.Fatalf("unexpected keys %v", keys)
	}
	if SeedMonths(core.NewDate(2025, 1, 1), core.NewDate(2025, 1, 1)) != nil {
		t.Fatal("empty range must seed nothing")
	}
}

func TestSeriesSeedsEmptyMonths(t *testing.T) {
	now := time.Date(2025, 6, 20, 10, 0, 0, 0, time.UTC)
	seed := LastNMonths(now, 6)
	if len(seed) != 6 || seed[0] != "2025-01" || seed[5] != "2025-06" {
		t.Fatalf("unexpected seed %v", seed)
	}
	invoices := []core.Invoice{
		{Status: core.StatusPaid, IssueDate: core.NewDate(2025, 2, 3), Amount: core.Money{Cents: 1000}},
		{Status: core.StatusPaid, IssueDate: core.NewDate(2025, 2, 28), Amount: core.Money{Cents: 500}},
		{Status: core.StatusPending, IssueDate: core.NewDate(2025, 3, 1), Amount: core.Money{Cents: 9999}},
	}
	got := RevenueSeries(invoices, Monthly, seed...)
	if len(got) != 6 {
		t.Fatalf("expected 6 buckets, got %d", len(got))
	}
	if got[1].Key != "2025-02" || got[1].Amount.Cents != 1500 || got[1].Count != 2 {
		t.Errorf("unexpected February bucket %+v", got[1])
	}
	if got[2].Amount.Cents != 0 {
		t.Errorf("pending invoices must not count as revenue: %+v", got[2])
	}
}

func TestExpenseSeriesQuarterly(t *testing.T) {
	got := ExpenseSeries([]core.Expense{exp("a", 100), {Date: core.NewDate(2025, 5, 1), Amount: core.Money{Cents: 50}}}, Quarterly)
	if len(got) != 2 || got[0].Key != "2025-Q1" || got[1].Key != "2025-Q2" {
		t.Fatalf("unexpected series %+v", got)
	}
	if len(ExpenseSeries(nil, Yearly)) != 0 {
		t.Fatal("empty input must give empty series")
	}
}
