package analytics

import (
	"math"
	"testing"

	"invoicer/internal/core"
)

func exp(cat string, cents int64) core.Expense {
	return core.Expense{CategoryName: cat, Amount: core.Money{Cents: cents}, Date: core.NewDate(2025, 1, 10)}
}

func TestCategoryBreakdownExample(t *testing.T) {
	expenses := []core.Expense{exp("Travel", 10000), exp("Travel", 5000), exp("Food", 5000)}
	cats := []core.ExpenseCategory{{ID: "t", Name: "Travel", Icon: "✈️", Color: "#3b82f6"}}

	got := CategoryBreakdown(expenses, cats)
	if len(got) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(got))
	}
	if got[0].Name != "Travel" || got[0].Amount.Cents != 15000 || got[0].Percentage != 75 || got[0].Count != 2 {
		t.Errorf("unexpected first group %+v", got[0])
	}
	if got[0].Icon != "✈️" || got[0].Color != "#3b82f6" {
		t.Errorf("expected catalog icon/color, got %s %s", got[0].Icon, got[0].Color)
	}
	if got[1].Name != "Food" || got[1].Amount.Cents != 5000 || got[1].Percentage != 25 {
		t.Errorf("unexpected second group %+v", got[1])
	}
	if got[1].Icon != FallbackIcon || got[1].Color != FallbackColor {
		t.Errorf("expected fallback icon/color, got %s %s", got[1].Icon, got[1].Color)
	}
	if TopCategory(got).Name != "Travel" {
		t.Errorf("top category = %s, want Travel", TopCategory(got).Name)
	}
}

func TestCategoryBreakdownPercentagesSumTo100(t *testing.T) {
	var expenses []core.Expense
	names := []string{"A", "B", "", "C", "", "D", "E"}
	for i := 0; i < 97; i++ {
		expenses = append(expenses, exp(names[i%len(names)], int64(i*37+1)))
	}
	got := CategoryBreakdown(expenses, nil)
	var sum float64
	hasUncategorized := false
	for _, g := range got {
		sum += g.Percentage
		if g.Name == Uncategorized {
			hasUncategorized = true
		}
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Fatalf("percentages sum to %f", sum)
	}
	if !hasUncategorized {
		t.Fatal("blank category names must fall back to Uncategorized")
	}
}

func TestCategoryBreakdownUsesCatalogNameByID(t *testing.T) {
	e := exp("Old name", 100)
	e.CategoryID = "c1"
	got := CategoryBreakdown([]core.Expense{e}, []core.ExpenseCategory{{ID: "c1", Name: "Renamed"}})
	if got[0].Name != "Renamed" {
		t.Fatalf("expected catalog name, got %s", got[0].Name)
	}
}

func TestBreakdownEmpty(t *testing.T) {
	if got := CategoryBreakdown(nil, nil); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
	top := TopCategory(nil)
	if top.Amount.Cents != 0 || top.Percentage != 0 {
		t.Fatalf("expected zero placeholder, got %+v", top)
	}
	if got := VendorBreakdown(nil); len(got) != 0 {
		t.Fatalf("expected empty vendor breakdown, got %v", got)
	}
}

func TestVendorBreakdown(t *testing.T) {
	a := exp("", 300)
	a.Vendor = "Uber"
	b := exp("", 200)
	got := VendorBreakdown([]core.Expense{a, b})
	if got[0].Name != "Uber" || got[1].Name != UnknownVendor {
		t.Fatalf("unexpected vendors %+v", got)
	}
	if got[0].Percentage != 60 {
		t.Fatalf("percentage = %f, want 60", got[0].Percentage)
	}
}
