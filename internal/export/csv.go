// Package export renders clients, invoices and expenses as CSV and invoices
// as PDF documents.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"invoicer/internal/core"
)

var (
	ExpenseHeader = []string{"Date", "Description", "Category", "Amount", "Payment Method",
		"Vendor", "Receipt Number", "Business Expense", "Tax Deductible", "Notes"}
	InvoiceHeader = []string{"Invoice ID", "Client", "Client Email", "Issue Date", "Due Date",
		"Status", "Subtotal", "Tax", "Total"}
	ClientHeader = []string{"Name", "Email", "Phone", "Company", "Contact Name",
		"Payment Terms", "Total Invoices", "Total Amount"}
)

// WriteExpenses writes one row per expense after ExpenseHeader. Quoting of
// commas, quotes and newlines is left to encoding/csv.
func WriteExpenses(w io.Writer, expenses []core.Expense) error {
	rows := make([][]string, 0, len(expenses))
	for _, e := range expenses {
		rows = append(rows, []string{
			e.Date.String(),
			e.Description,
			e.CategoryName,
			e.Amount.String(),
			string(e.PaymentMethod),
			e.Vendor,
			e.ReceiptNumber,
			yesNo(e.IsBusinessExpense),
			yesNo(e.TaxDeductible),
			e.Notes,
		})
	}
	return write(w, ExpenseHeader, rows)
}

func WriteInvoices(w io.Writer, invoices []core.Invoice) error {
	rows := make([][]string, 0, len(invoices))
	for _, inv := range invoices {
		rows = append(rows, []string{
			inv.ID,
			inv.ClientName,
			inv.ClientEmail,
			inv.IssueDate.String(),
			inv.DueDate.String(),
			string(inv.Status),
			inv.Subtotal.String(),
			inv.Tax.String(),
			inv.Amount.String(),
		})
	}
	return write(w, InvoiceHeader, rows)
}

func WriteClients(w io.Writer, clients []core.Client) error {
	rows := make([][]string, 0, len(clients))
	for _, c := range clients {
		rows = append(rows, []string{
			c.Name,
			c.Email,
			c.Phone,
			c.Company,
			c.ContactName,
			string(c.PaymentTerms),
			strconv.Itoa(c.TotalInvoices),
			c.TotalAmount.String(),
		})
	}
	return write(w, ClientHeader, rows)
}

func write(w io.Writer, header []string, rows [][]string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("write csv rows: %w", err)
	}
	return nil
}

// CSVFilename names an export file, e.g. "expenses_2025-01-31.csv".
func CSVFilename(kind string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", kind, now.Format("2006-01-02"))
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}
