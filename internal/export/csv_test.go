package export

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"
	"testing"
	"time"

	"invoicer/internal/core"
)

func TestWriteExpensesQuotesSpecialCharacters(t *testing.T) {
	date, _ := core.ParseDate("2025-03-14")
	expenses := []core.Expense{{
		Date:              date,
		Description:       `Lunch, "team" offsite`,
		CategoryName:      "Meals",
		Amount:            core.Money{Cents: 123450},
		PaymentMethod:     core.PayCard,
		Vendor:            "Cafe\nDowntown",
		IsBusinessExpense: true,
	}}

	var buf bytes.Buffer
	if err := WriteExpenses(&buf, expenses); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.HasPrefix(out, "Date,Description,Category,Amount,Payment Method,Vendor,Receipt Number,Business Expense,Tax Deductible,Notes\n") {
		t.Errorf("unexpected header in %q", out)
	}
	if !strings.Contains(out, `"Lunch, ""team"" offsite"`) {
		t.Errorf("description not quoted with doubled quotes: %q", out)
	}

	records, err := csv.NewReader(strings.NewReader(out)).ReadAll()
	if err != nil {
		t.Fatalf("output does not parse back: %v", err)
	}
	want := []string{"2025-03-14", `Lunch, "team" offsite`, "Meals", "1234.50", "card",
		"Cafe\nDowntown", "", "Yes", "No", ""}
	if !reflect.DeepEqual(records[1], want) {
		t.Errorf("row = %q, want %q", records[1], want)
	}
}

func TestWriteInvoicesAndClients(t *testing.T) {
	issue, _ := core.ParseDate("2025-01-01")
	due, _ := core.ParseDate("2025-01-31")
	var buf bytes.Buffer
	err := WriteInvoices(&buf, []core.Invoice{{
		ID: "INV-0007", ClientName: "Acme", ClientEmail: "ap@acme.test", IssueDate: issue, DueDate: due,
		Status: core.StatusPending, Subtotal: core.Money{Cents: 10000}, Tax: core.Money{Cents: 1800}, Amount: core.Money{Cents: 11800},
	}})
	if err != nil {
		t.Fatal(err)
	}
	records, _ := csv.NewReader(&buf).ReadAll()
	if !reflect.DeepEqual(records[0], InvoiceHeader) {
		t.Errorf("header = %q", records[0])
	}
	if want := []string{"INV-0007", "Acme", "ap@acme.test", "2025-01-01", "2025-01-31", "Pending", "100.00", "18.00", "118.00"}; !reflect.DeepEqual(records[1], want) {
		t.Errorf("row = %q, want %q", records[1], want)
	}

	buf.Reset()
	if err := WriteClients(&buf, []core.Client{{Name: "Acme", Email: "ap@acme.test", PaymentTerms: core.Net15, TotalInvoices: 2, TotalAmount: core.Money{Cents: 500}}}); err != nil {
		t.Fatal(err)
	}
	records, _ = csv.NewReader(&buf).ReadAll()
	if len(records[0]) != 8 {
		t.Errorf("client header has %d columns", len(records[0]))
	}
	if want := []string{"Acme", "ap@acme.test", "", "", "", "net15", "2", "5.00"}; !reflect.DeepEqual(records[1], want) {
		t.Errorf("row = %q, want %q", records[1], want)
	}
}

func TestEmptyExportHasHeaderOnly(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteClients(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), "\n") != 1 {
		t.Errorf("expected a single header line, got %q", buf.String())
	}
}

func TestCSVFilename(t *testing.T) {
	got := CSVFilename("expenses", time.Date(2025, 1, 31, 10, 0, 0, 0, time.UTC))
	if got != "expenses_2025-01-31.csv" {
		t.Errorf("got %q", got)
	}
}
