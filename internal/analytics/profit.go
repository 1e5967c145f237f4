package analytics

import (
	"sort"
	"time"

	"invoicer/internal/core"
)

type Direction string

const (
	Up   Direction = "up"
	Down Direction = "down"
	Flat Direction = "flat"
)

type ProfitSummary struct {
	Revenue  core.Money `json:"revenue"`
	Expenses core.Money `json:"expenses"`
	Net      core.Money `json:"net"`
	Margin   float64    `json:"margin"`
}

func Profit(revenue, expenses core.Money) ProfitSummary {
	net := revenue.Sub(expenses)
	p := ProfitSummary{Revenue: revenue, Expenses: expenses, Net: net}
	if revenue.Cents > 0 {
		p.Margin = float64(net.Cents) / float64(revenue.Cents) * 100
	}
	return p
}

// Trend compares the last bucket with the one before it.
func Trend(series []Bucket) Direction {
	if len(series) < 2 {
		return Flat
	}
	last, prev := series[len(series)-1].Amount.Cents, series[len(series)-2].Amount.Cents
	return direction(last - prev)
}

type ProfitBucket struct {
	Key      string     `json:"key"`
	Revenue  core.Money `json:"revenue"`
	Expenses core.Money `json:"expenses"`
	Net      core.Money `json:"net"`
	Margin   float64    `json:"margin"`
}

// ProfitSeries merges revenue and expense buckets by key.
func ProfitSeries(revenue, expenses []Bucket) []ProfitBucket {
	acc := make(map[string]*ProfitBucket)
	get := func(k string) *ProfitBucket {
		b, ok := acc[k]
		if !ok {
			b = &ProfitBucket{Key: k}
			acc[k] = b
		}
		return b
	}
	for _, r := range revenue {
		get(r.Key).Revenue.Cents += r.Amount.Cents
	}
	for _, e := range expenses {
		get(e.Key).Expenses.Cents += e.Amount.Cents
	}
	out := make([]ProfitBucket, 0, len(acc))
	for _, b := range acc {
		p := Profit(b.Revenue, b.Expenses)
		b.Net, b.Margin = p.Net, p.Margin
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// NetSeries projects the net values of a profit series as buckets.
func NetSeries(ps []ProfitBucket) []Bucket {
	out := make([]Bucket, len(ps))
	for i, p := range ps {
		out[i] = Bucket{Key: p.Key, Amount: p.Net}
	}
	return out
}

type Change struct {
	Current   core.Money `json:"current"`
	Previous  core.Money `json:"previous"`
	Percent   float64    `json:"percent"`
	Direction Direction  `json:"direction"`
}

// PeriodChange is the relative change from previous to current, 0 when
// there is no previous amount.
func PeriodChange(current, previous core.Money) Change {
	c := Change{Current: current, Previous: previous, Direction: Flat}
	if previous.Cents > 0 {
		c.Percent = float64(current.Cents-previous.Cents) / float64(previous.Cents) * 100
		switch {
		case c.Percent > 0:
			c.Direction = Up
		case c.Percent < 0:
			c.Direction = Down
		}
	}
	return c
}

func direction(delta int64) Direction {
	switch {
	case delta > 0:
		return Up
	case delta < 0:
		return Down
	default:
		return Flat
	}
}

// ComputeBalance re-sums Paid invoices and all expenses.
func ComputeBalance(invoices []core.Invoice, expenses []core.Expense, now time.Time) core.BalanceSummary {
	var earned, spent int64
	for _, inv := range invoices {
		if inv.Status == core.StatusPaid {
			earned += inv.Amount.Cents
		}
	}
	for _, e := range expenses {
		spent += e.Amount.Cents
	}
	return core.BalanceSummary{
		TotalEarnings:    core.Money{Cents: earned},
		TotalExpenses:    core.Money{Cents: spent},
		CurrentBalance:   core.Money{Cents: earned - spent},
		LastCalculatedAt: now.UTC(),
	}
}

// SumExpenses totals a list of expenses.
func SumExpenses(expenses []core.Expense) core.Money {
	var m core.Money
	for _, e := range expenses {
		m.Cents += e.Amount.Cents
	}
	return m
}

// SumPaid totals Paid invoices.
func SumPaid(invoices []core.Invoice) core.Money {
	var m core.Money
	for _, inv := range invoices {
		if inv.Status == core.StatusPaid {
			m.Cents += inv.Amount.Cents
		}
	}
	return m
}
