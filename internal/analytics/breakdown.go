// Package analytics turns stored rows into report-ready structures.
//
// Every function here is pure: no I/O, no clock reads, and defined
// zero results for empty input.
package analytics

import (
	"sort"
	"strings"

	"invoicer/internal/core"
)

const (
	Uncategorized = "Uncategorized"
	UnknownVendor = "Unknown"
	FallbackIcon  = "📎"
	FallbackColor = "#9ca3af"
)

// CategoryAmount is one slice of a breakdown.
type CategoryAmount struct {
	Name       string     `json:"name"`
	Amount     core.Money `json:"amount"`
	Count      int        `json:"count"`
	Percentage float64    `json:"percentage"`
	Icon       string     `json:"icon,omitempty"`
	Color      string     `json:"color,omitempty"`
}

// CategoryBreakdown groups expenses by category name. Names come from the
// category catalog when the id matches, otherwise from the denormalized
// name on the expense.
func CategoryBreakdown(expenses []core.Expense, categories []core.ExpenseCategory) []CategoryAmount {
	byID := make(map[string]core.ExpenseCategory, len(categories))
	byName := make(map[string]core.ExpenseCategory, len(categories))
	for _, c := range categories {
		byID[c.ID] = c
		byName[c.Name] = c
	}

	groups := make(map[string]*CategoryAmount)
	var total int64
	for _, e := range expenses {
		name := strings.TrimSpace(e.CategoryName)
		if c, ok := byID[e.CategoryID]; ok && e.CategoryID != "" {
			name = c.Name
		}
		if name == "" {
			name = Uncategorized
		}
		g, ok := groups[name]
		if !ok {
			g = &CategoryAmount{Name: name, Icon: FallbackIcon, Color: FallbackColor}
			if c, found := byName[name]; found {
				if c.Icon != "" {
					g.Icon = c.Icon
				}
				if c.Color != "" {
					g.Color = c.Color
				}
			}
			groups[name] = g
		}
		g.Amount.Cents += e.Amount.Cents
		g.Count++
		total += e.Amount.Cents
	}
	return finish(groups, total)
}

// VendorBreakdown groups expenses by vendor.
func VendorBreakdown(expenses []core.Expense) []CategoryAmount {
	groups := make(map[string]*CategoryAmount)
	var total int64
	for _, e := range expenses {
		name := strings.TrimSpace(e.Vendor)
		if name == "" {
			name = UnknownVendor
		}
		g, ok := groups[name]
		if !ok {
			g = &CategoryAmount{Name: name}
			groups[name] = g
		}
		g.Amount.Cents += e.Amount.Cents
		g.Count++
		total += e.Amount.Cents
	}
	return finish(groups, total)
}

func finish(groups map[string]*CategoryAmount, total int64) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(groups))
	for _, g := range groups {
		g.Percentage = percent(g.Amount.Cents, total)
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount.Cents != out[j].Amount.Cents {
			return out[i].Amount.Cents > out[j].Amount.Cents
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// TopCategory returns the largest slice or a zero placeholder.
func TopCategory(breakdown []CategoryAmount) CategoryAmount {
	if len(breakdown) == 0 {
		return CategoryAmount{Name: Uncategorized, Icon: FallbackIcon, Color: FallbackColor}
	}
	return breakdown[0]
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
