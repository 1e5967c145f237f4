package sheets

import (
	"context"
	"fmt"
	"strings"

	"invoicer/internal/core"
)

// ExpenseMirror keeps an external copy of the expense ledger, one row per
// expense keyed by the expense id.
type ExpenseMirror interface {
	// Upsert writes the expense row, replacing an existing row with the same id.
	Upsert(ctx context.Context, e core.Expense) (rowRef string, err error)
	// Delete removes the row of the expense; a missing row is not an error.
	Delete(ctx context.Context, id string) error
}

// Header is the column layout of a mirrored expense row.
var Header = []string{"ID", "Date", "Description", "Category", "Amount", "Payment Method",
	"Vendor", "Receipt Number", "Business Expense", "Tax Deductible", "Tags", "Notes"}

// Row renders an expense in Header order.
func Row(e core.Expense) []any {
	return []any{
		e.ID,
		e.Date.String(),
		e.Description,
		e.CategoryName,
		e.Amount.String(),
		string(e.PaymentMethod),
		e.Vendor,
		e.ReceiptNumber,
		yesNo(e.IsBusinessExpense),
		yesNo(e.TaxDeductible),
		strings.Join(e.Tags, ", "),
		e.Notes,
	}
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// Validate rejects expenses that cannot be keyed in the mirror.
func Validate(e core.Expense) error {
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("mirror expense: missing id")
	}
	return e.Validate()
}
