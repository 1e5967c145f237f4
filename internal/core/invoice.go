package core

import (
	"fmt"
	"math"
	"strings"
	"time"
)

const invoiceNumberWidth = 4

// MaxInvoiceCents caps a line amount and an invoice subtotal. Tax at most
// doubles it, so every derived total stays far inside int64.
const MaxInvoiceCents = 1_000_000_000_000_000

type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        Money   `json:"rate"`
	Amount      Money   `json:"amount"`
}

// Invoice is identified by a human-readable id such as INV-0007.
// Client fields are copied at creation so the document stays stable
// when the client record changes.
type Invoice struct {
	ID            string        `json:"id"`
	ClientID      string        `json:"client_id"`
	ClientName    string        `json:"client_name"`
	ClientAddress string        `json:"client_address,omitempty"`
	ClientEmail   string        `json:"client_email,omitempty"`
	IssueDate     Date          `json:"issue_date"`
	DueDate       Date          `json:"due_date"`
	Status        InvoiceStatus `json:"status"`
	Items         []LineItem    `json:"items"`
	Subtotal      Money         `json:"subtotal"`
	TaxRate       float64       `json:"tax_rate"`
	Tax           Money         `json:"tax"`
	Amount        Money         `json:"amount"`
	Notes         string        `json:"notes,omitempty"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
}

// Totals is the result of pricing a list of line items.
type Totals struct {
	Items    []LineItem
	Subtotal Money
	Tax      Money
	Amount   Money
}

// CalculateTotals prices every item and derives subtotal, tax and total.
// Each item amount is rounded to whole cents before summing so that
// subtotal always equals the sum of the item amounts shown on the document.
func CalculateTotals(items []LineItem, taxRate float64) Totals {
	priced := make([]LineItem, len(items))
	var subtotal int64
	for i, it := range items {
		it.Amount = Money{Cents: RoundCents(it.Quantity * float64(it.Rate.Cents))}
		priced[i] = it
		subtotal += it.Amount.Cents
	}
	tax := RoundCents(float64(subtotal) * taxRate / 100)
	return Totals{
		Items:    priced,
		Subtotal: Money{Cents: subtotal},
		Tax:      Money{Cents: tax},
		Amount:   Money{Cents: subtotal + tax},
	}
}

// ApplyTotals recomputes the derived money fields in place.
func (inv *Invoice) ApplyTotals() {
	t := CalculateTotals(inv.Items, inv.TaxRate)
	inv.Items = t.Items
	inv.Subtotal = t.Subtotal
	inv.Tax = t.Tax
	inv.Amount = t.Amount
}

// FormatInvoiceID builds "{prefix}-{number}" with the number zero padded.
func FormatInvoiceID(prefix string, number int) string {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "INV"
	}
	return fmt.Sprintf("%s-%0*d", prefix, invoiceNumberWidth, number)
}

func (inv Invoice) Validate() error {
	var v ValidationError
	if strings.TrimSpace(inv.ClientID) == "" {
		v.Add("client_id", "client is required")
	}
	if inv.IssueDate.IsZero() {
		v.Add("issue_date", "issue date is required")
	}
	if !inv.DueDate.IsZero() && inv.DueDate.Before(inv.IssueDate.Time) {
		v.Add("due_date", "due date cannot be before issue date")
	}
	if inv.Status != "" && !inv.Status.IsValid() {
		v.Add("status", "unknown status")
	}
	if inv.TaxRate < 0 || inv.TaxRate > 100 {
		v.Add("tax_rate", "tax rate must be between 0 and 100")
	}
	if len(inv.Items) == 0 {
		v.Add("items", "at least one line item is required")
	}
	var subtotal float64
	for i, it := range inv.Items {
		field := fmt.Sprintf("items[%d]", i)
		amount := it.Quantity * float64(it.Rate.Cents)
		switch {
		case strings.TrimSpace(it.Description) == "":
			v.Add(field+".description", "description is required")
		case it.Quantity < 0:
			v.Add(field+".quantity", "quantity cannot be negative")
		case math.IsNaN(it.Quantity) || math.IsInf(it.Quantity, 0):
			v.Add(field+".quantity", "quantity must be a number")
		case it.Rate.Cents < 0:
			v.Add(field+".rate", "rate cannot be negative")
		case amount > MaxInvoiceCents:
			v.Add(field+".quantity", "line amount is too large")
		default:
			subtotal += amount
		}
	}
	if subtotal > MaxInvoiceCents {
		v.Add("items", "invoice total is too large")
	}
	return v.Err()
}

// IsOutstanding reports whether the invoice still awaits payment.
func (inv Invoice) IsOutstanding() bool {
	return inv.Status == StatusPending || inv.Status == StatusOverdue
}
