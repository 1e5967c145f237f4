package services

import (
	"context"
	"errors"
	"testing"

	"invoicer/internal/core"
	"invoicer/internal/events"
	"invoicer/internal/storage"
)

func TestExpenseCreateValidatesAndAnnounces(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.expenses.Create(ctx, core.Expense{Description: "  ", Amount: core.Money{Cents: -5}})
	fields := validationFields(t, err)
	for _, field := range []string{"date", "amount", "description"} {
		if _, ok := fields[field]; !ok {
			t.Errorf("missing message for %s in %v", field, fields)
		}
	}
	if len(f.pub.kinds()) != 0 {
		t.Error("rejected writes must not publish")
	}

	e := f.expense(t, "Train ticket", core.NewDate(2025, 4, 2), 4500)
	if e.PaymentMethod != core.PayOther {
		t.Errorf("payment method = %s, want default other", e.PaymentMethod)
	}
	if kinds := f.pub.kinds(); len(kinds) != 1 || kinds[0] != events.Created {
		t.Errorf("events = %v", kinds)
	}
	balance, _ := f.settings.Balance(ctx)
	if balance.TotalExpenses.Cents != 4500 || balance.CurrentBalance.Cents != -4500 {
		t.Errorf("unexpected balance %+v", balance)
	}
}

func TestExpenseUnknownCategoryIsFieldError(t *testing.T) {
	f := newFixture(t)
	_, err := f.expenses.Create(context.Background(), core.Expense{
		Description: "Lunch",
		Date:        core.NewDate(2025, 4, 2),
		Amount:      core.Money{Cents: 1200},
		CategoryID:  "missing",
	})
	if _, ok := validationFields(t, err)["category_id"]; !ok {
		t.Errorf("expected category_id message, got %v", err)
	}
}

func TestExpenseCategoryNameIsCopied(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	if n, err := f.settings.SeedCategories(ctx); err != nil || n != 10 {
		t.Fatalf("seed = %d, %v", n, err)
	}
	cats, err := f.settings.Categories(ctx)
	if err != nil {
		t.Fatal(err)
	}
	e, err := f.expenses.Create(ctx, core.Expense{
		Description: "Flight",
		Date:        core.NewDate(2025, 4, 2),
		Amount:      core.Money{Cents: 30000},
		CategoryID:  cats[0].ID,
	})
	if err != nil {
		t.Fatal(err)
	}
	if e.CategoryName != cats[0].Name {
		t.Errorf("category name = %q, want %q", e.CategoryName, cats[0].Name)
	}
}

func TestExpenseDelete(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	e := f.expense(t, "Paper", core.NewDate(2025, 4, 2), 300)
	if err := f.expenses.Delete(ctx, e.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := f.expenses.Get(ctx, e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := f.expenses.Delete(ctx, e.ID); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("second delete should report ErrNotFound, got %v", err)
	}
}

func TestClientServiceRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.clients.Create(ctx, core.Client{Name: "Bad", Email: "not-an-email"})
	if _, ok := validationFields(t, err)["email"]; !ok {
		t.Errorf("expected email message, got %v", err)
	}

	c := f.client(t, "Acme", "")
	if c.PaymentTerms != core.Net30 {
		t.Errorf("terms = %s, want net30 default", c.PaymentTerms)
	}
	f.invoice(t, c.ID, core.NewDate(2025, 1, 1), core.StatusDraft, 100)
	if err := f.clients.Delete(ctx, c.ID); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("deleting a client with invoices should conflict, got %v", err)
	}

	c.Name = "Acme Ltd"
	c.TotalInvoices = 99
	updated, err := f.clients.Update(ctx, c)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Name != "Acme Ltd" || updated.TotalInvoices != 1 {
		t.Errorf("unexpected update result %+v", updated)
	}
}

func TestSettingsSaveValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s, _ := f.settings.Get(ctx)
	s.Invoicing.Currency = "euro"
	s.Invoicing.DefaultTaxRate = 150
	fields := validationFields(t, func() error { _, err := f.settings.Save(ctx, s); return err }())
	if _, ok := fields["invoicing.currency"]; !ok {
		t.Error("expected currency message")
	}
	if _, ok := fields["invoicing.default_tax_rate"]; !ok {
		t.Error("expected tax rate message")
	}

	s.Invoicing.Currency = " usd "
	s.Invoicing.DefaultTaxRate = 5
	saved, err := f.settings.Save(ctx, s)
	if err != nil {
		t.Fatal(err)
	}
	if saved.Invoicing.Currency != "USD" {
		t.Errorf("currency = %q, want USD", saved.Invoicing.Currency)
	}
}

func TestCategoryRules(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.settings.CreateCategory(ctx, core.ExpenseCategory{Name: "Gear", Color: "red"})
	if _, ok := validationFields(t, err)["color"]; !ok {
		t.Errorf("expected color message, got %v", err)
	}
	c, err := f.settings.CreateCategory(ctx, core.ExpenseCategory{Name: "Gear", Color: "#112233", IsDefault: true})
	if err != nil {
		t.Fatal(err)
	}
	if c.IsDefault {
		t.Error("user categories are never defaults")
	}
	if _, err := f.settings.CreateCategory(ctx, core.ExpenseCategory{Name: "Gear"}); !errors.Is(err, storage.ErrConflict) {
		t.Errorf("duplicate name should conflict, got %v", err)
	}
	if err := f.settings.DeleteCategory(ctx, c.ID); err != nil {
		t.Fatal(err)
	}
}
