package memory

import (
	"context"
	"testing"

	"invoicer/internal/core"
)

func expense(id, desc string, cents int64) core.Expense {
	return core.Expense{
		ID:            id,
		Date:          core.NewDate(2025, 3, 14),
		Description:   desc,
		Amount:        core.Money{Cents: cents},
		PaymentMethod: core.PayCard,
	}
}

func TestMemoryStoreUpsertReplacesByID(t *testing.T) {
	ctx := context.Background()
	s := New()

	ref, err := s.Upsert(ctx, expense("a", "Coffee", 450))
	if err != nil || ref != "mem:1" {
		t.Fatalf("unexpected upsert: ref=%q err=%v", ref, err)
	}
	if _, err := s.Upsert(ctx, expense("b", "Taxi", 1200)); err != nil {
		t.Fatal(err)
	}
	ref, err = s.Upsert(ctx, expense("a", "Coffee beans", 900))
	if err != nil || ref != "mem:1" {
		t.Fatalf("update should keep the row: ref=%q err=%v", ref, err)
	}

	rows := s.Rows()
	if len(rows) != 2 || rows[0].Description != "Coffee beans" || rows[1].ID != "b" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestMemoryStoreDelete(t *testing.T) {
	ctx := context.Background()
	s := New()
	for _, id := range []string{"a", "b", "c"} {
		if _, err := s.Upsert(ctx, expense(id, "x", 100)); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.Delete(ctx, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(ctx, "missing"); err != nil {
		t.Fatalf("deleting an unknown id should be a no-op, got %v", err)
	}
	ref, err := s.Upsert(ctx, expense("c", "y", 100))
	if err != nil || ref != "mem:2" {
		t.Fatalf("index not rebuilt after delete: ref=%q err=%v", ref, err)
	}
	if got := len(s.Rows()); got != 2 {
		t.Fatalf("rows = %d, want 2", got)
	}
}

func TestMemoryStoreRejectsInvalid(t *testing.T) {
	s := New()
	if _, err := s.Upsert(context.Background(), expense("", "x", 100)); err == nil {
		t.Error("expected error for missing id")
	}
	if _, err := s.Upsert(context.Background(), expense("a", "x", 0)); err == nil {
		t.Error("expected error for zero amount")
	}
}
