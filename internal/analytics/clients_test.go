package analytics

import (
	"testing"

	"invoicer/internal/core"
)

func inv(client string, status core.InvoiceStatus, cents int64) core.Invoice {
	return core.Invoice{
		ClientID:   client,
		ClientName: "Client " + client,
		Status:     status,
		Amount:     core.Money{Cents: cents},
		IssueDate:  core.NewDate(2025, 1, 1),
		DueDate:    core.NewDate(2025, 1, 31),
	}
}

func TestClientRankingSumsPaidRevenue(t *testing.T) {
	invoices := []core.Invoice{
		inv("a", core.StatusPaid, 1000),
		inv("b", core.StatusPaid, 3000),
		inv("a", core.StatusPaid, 1000),
		inv("c", core.StatusPending, 50000),
		inv("d", core.StatusPaid, 10),
	}
	got := ClientRanking(invoices, 0)
	if len(got) != 3 {
		t.Fatalf("expected 3 paying clients, got %d", len(got))
	}
	if got[0].ClientID != "b" || got[1].ClientID != "a" {
		t.Fatalf("unexpected order %+v", got)
	}
	if got[1].InvoiceCount != 2 || got[1].AvgInvoiceAmount.Cents != 1000 {
		t.Errorf("unexpected aggregates for a: %+v", got[1])
	}
	var ranked, paid int64
	for _, c := range got {
		ranked += c.Revenue.Cents
	}
	for _, i := range invoices {
		if i.Status == core.StatusPaid {
			paid += i.Amount.Cents
		}
	}
	if ranked != paid {
		t.Fatalf("ranked revenue %d != paid total %d", ranked, paid)
	}
	if top := ClientRanking(invoices, 1); len(top) != 1 || top[0].ClientID != "b" {
		t.Fatalf("truncation failed: %+v", top)
	}
}

func TestStatusHistogramKeepsZeroRows(t *testing.T) {
	got := StatusHistogram([]core.Invoice{inv("a", core.StatusPaid, 100), inv("a", core.StatusCancelled, 5)}, false)
	if len(got) != 4 {
		t.Fatalf("expected 4 labels, got %d", len(got))
	}
	if got[0].Status != core.StatusPaid || got[0].Count != 1 {
		t.Errorf("unexpected paid row %+v", got[0])
	}
	for _, row := range got[1:] {
		if row.Count != 0 {
			t.Errorf("expected zero row, got %+v", row)
		}
	}
	withCancelled := StatusHistogram(nil, true)
	if len(withCancelled) != 5 || withCancelled[4].Status != core.StatusCancelled {
		t.Fatalf("unexpected histogram %+v", withCancelled)
	}
}

func TestAveragePaymentDays(t *testing.T) {
	a := inv("a", core.StatusPaid, 1)
	b := inv("b", core.StatusPaid, 1)
	b.DueDate = core.NewDate(2025, 1, 16)
	c := inv("c", core.StatusPending, 1)
	c.DueDate = core.NewDate(2025, 12, 31)
	if got := AveragePaymentDays([]core.Invoice{a, b, c}); got != 22.5 {
		t.Fatalf("AveragePaymentDays = %f, want 22.5", got)
	}
	if AveragePaymentDays(nil) != 0 {
		t.Fatal("empty input must give 0")
	}
}

func TestOutstanding(t *testing.T) {
	total, n := Outstanding([]core.Invoice{
		inv("a", core.StatusPending, 100),
		inv("a", core.StatusOverdue, 50),
		inv("a", core.StatusPaid, 1000),
	})
	if total.Cents != 150 || n != 2 {
		t.Fatalf("got %d/%d", total.Cents, n)
	}
}
