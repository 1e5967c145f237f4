package analytics

import (
	"fmt"
	"sort"
	"time"

	"invoicer/internal/core"
)

type Period string

const (
	Monthly   Period = "monthly"
	Quarterly Period = "quarterly"
	Yearly    Period = "yearly"
)

func (p Period) IsValid() bool {
	return p == Monthly || p == Quarterly || p == Yearly
}

// Point is a dated amount fed into a series.
type Point struct {
	Date   core.Date
	Amount core.Money
}

// Bucket is one period of a series.
type Bucket struct {
	Key    string     `json:"key"`
	Amount core.Money `json:"amount"`
	Count  int        `json:"count"`
}

// PeriodKey returns YYYY-MM, YYYY-Qn or YYYY.
func PeriodKey(d core.Date, p Period) string {
	switch p {
	case Quarterly:
		return fmt.Sprintf("%04d-Q%d", d.Year(), (int(d.Month())-1)/3+1)
	case Yearly:
		return fmt.Sprintf("%04d", d.Year())
	default:
		return fmt.Sprintf("%04d-%02d", d.Year(), int(d.Month()))
	}
}

// Series sums points per period key. Keys listed in seed are present
// even when no point falls in them. Buckets are sorted by key, which is
// chronological given the key format.
func Series(points []Point, p Period, seed ...string) []Bucket {
	acc := make(map[string]*Bucket, len(seed))
	for _, k := range seed {
		acc[k] = &Bucket{Key: k}
	}
	for _, pt := range points {
		if pt.Date.IsZero() {
			continue
		}
		k := PeriodKey(pt.Date, p)
		b, ok := acc[k]
		if !ok {
			b = &Bucket{Key: k}
			acc[k] = b
		}
		b.Amount.Cents += pt.Amount.Cents
		b.Count++
	}
	out := make([]Bucket, 0, len(acc))
	for _, b := range acc {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SeedMonths lists every month key intersecting [from, to).
func SeedMonths(from, to core.Date) []string {
	if from.IsZero() || to.IsZero() || !from.Before(to.Time) {
		return nil
	}
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	var keys []string
	for cur.Before(to.Time) {
		keys = append(keys, PeriodKey(core.Date{Time: cur}, Monthly))
		cur = cur.AddDate(0, 1, 0)
	}
	return keys
}

// LastNMonths lists the n month keys ending with the month of now.
func LastNMonths(now time.Time, n int) []string {
	if n <= 0 {
		return nil
	}
	end := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	start := end.AddDate(0, -n, 0)
	return SeedMonths(core.Date{Time: start}, core.Date{Time: end})
}

// RevenueSeries buckets Paid invoices by issue date.
func RevenueSeries(invoices []core.Invoice, p Period, seed ...string) []Bucket {
	pts := make([]Point, 0, len(invoices))
	for _, inv := range invoices {
		if inv.Status != core.StatusPaid {
			continue
		}
		pts = append(pts, Point{Date: inv.IssueDate, Amount: inv.Amount})
	}
	return Series(pts, p, seed...)
}

// ExpenseSeries buckets expenses by date.
func ExpenseSeries(expenses []core.Expense, p Period, seed ...string) []Bucket {
	pts := make([]Point, 0, len(expenses))
	for _, e := range expenses {
		pts = append(pts, Point{Date: e.Date, Amount: e.Amount})
	}
	return Series(pts, p, seed...)
}
