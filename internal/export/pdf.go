package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf/v2"

	"invoicer/internal/core"
)

const (
	pageWidth = 190.0
	lineH     = 6.0
)

// SanitizeFilename keeps only ASCII letters, digits, '_' and '-'.
func SanitizeFilename(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	return b.String()
}

// PDFFilename is the download name of an invoice document.
func PDFFilename(invoiceID string) string {
	return "Invoice_" + SanitizeFilename(invoiceID) + ".pdf"
}

// InvoicePDF renders an invoice with the business details from settings:
// header, from/to blocks, line items, totals, bank details and footer.
func InvoicePDF(inv core.Invoice, s core.Settings) ([]byte, error) {
	pdf := invoiceDocument(inv, s)
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice %s: %w", inv.ID, err)
	}
	return buf.Bytes(), nil
}

func invoiceDocument(inv core.Invoice, s core.Settings) *gofpdf.Fpdf {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 10, 10)
	pdf.SetTitle("Invoice "+inv.ID, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// The footer must be registered before the first page so every page,
	// including those opened by automatic page breaks, gets one.
	footer := s.Invoicing.FooterNotes
	if footer == "" {
		footer = "Thank you for your business."
	}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(pageWidth, 5, tr(footer), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	currency := s.Invoicing.Currency
	money := func(m core.Money) string { return strings.TrimSpace(currency + " " + m.String()) }

	// Header
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(pageWidth/2, 10, "INVOICE", "", 0, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(pageWidth/2, 5, tr("Invoice #: "+inv.ID), "", 2, "R", false, 0, "")
	pdf.CellFormat(pageWidth/2, 5, "Issue date: "+inv.IssueDate.String(), "", 2, "R", false, 0, "")
	pdf.CellFormat(pageWidth/2, 5, "Due date: "+inv.DueDate.String(), "", 2, "R", false, 0, "")
	pdf.CellFormat(pageWidth/2, 5, tr("Status: "+string(inv.Status)), "", 1, "R", false, 0, "")
	pdf.SetX(10)
	pdf.Ln(4)

	// From / To
	from := nonEmpty(s.Company.Name, s.Profile.FullName, s.Company.Address, s.Company.Email, s.Company.Phone)
	if s.Company.TaxID != "" {
		from = append(from, "Tax ID: "+s.Company.TaxID)
	}
	to := nonEmpty(inv.ClientName, inv.ClientAddress, inv.ClientEmail)
	y := pdf.GetY()
	block(pdf, tr, 10, y, "From", from)
	endFrom := pdf.GetY()
	block(pdf, tr, 10+pageWidth/2, y, "Bill To", to)
	pdf.SetXY(10, max(endFrom, pdf.GetY())+4)

	// Line items
	cols := []float64{95, 25, 35, 35}
	pdf.SetFillColor(230, 230, 230)
	pdf.SetFont("Arial", "B", 10)
	for i, h := range []string{"Description", "Qty", "Rate", "Amount"} {
		align := "R"
		if i == 0 {
			align = "L"
		}
		pdf.CellFormat(cols[i], 7, h, "1", 0, align, true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, it := range inv.Items {
		pdf.CellFormat(cols[0], lineH, tr(it.Description), "1", 0, "L", false, 0, "")
		pdf.CellFormat(cols[1], lineH, formatQuantity(it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(cols[2], lineH, money(it.Rate), "1", 0, "R", false, 0, "")
		pdf.CellFormat(cols[3], lineH, money(it.Amount), "1", 1, "R", false, 0, "")
	}
	pdf.Ln(3)

	// Totals
	labelW, valueW := 35.0, 35.0
	totalRow := func(label, value string, bold bool) {
		style := ""
		if bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.SetX(10 + pageWidth - labelW - valueW)
		pdf.CellFormat(labelW, lineH, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(valueW, lineH, value, "", 1, "R", false, 0, "")
	}
	totalRow("Subtotal", money(inv.Subtotal), false)
	totalRow(fmt.Sprintf("Tax (%s%%)", formatQuantity(inv.TaxRate)), money(inv.Tax), false)
	totalRow("Total", money(inv.Amount), true)
	pdf.Ln(4)

	if inv.Notes != "" {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(pageWidth, lineH, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(pageWidth, 5, tr(inv.Notes), "", "L", false)
		pdf.Ln(2)
	}

	// Bank details
	bank := s.Banking
	var lines []string
	for _, kv := range [][2]string{
		{"Bank", bank.BankName},
		{"Account name", bank.AccountName},
		{"Account number", bank.AccountNumber},
		{"Routing code", bank.RoutingCode},
		{"SWIFT", bank.SWIFT},
		{"UPI", bank.UPIID},
	} {
		if kv[1] != "" {
			lines = append(lines, kv[0]+": "+kv[1])
		}
	}
	if len(lines) > 0 {
		pdf.SetFillColor(245, 245, 245)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(pageWidth, 7, "Payment Details", "1", 1, "L", true, 0, "")
		pdf.SetFont("Arial", "", 10)
		for _, l := range lines {
			pdf.CellFormat(pageWidth, lineH, tr(l), "LR", 1, "L", false, 0, "")
		}
		pdf.CellFormat(pageWidth, 0, "", "T", 1, "L", false, 0, "")
	}

	return pdf
}

func block(pdf *gofpdf.Fpdf, tr func(string) string, x, y float64, title string, lines []string) {
	w := pageWidth / 2
	pdf.SetXY(x, y)
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(w, lineH, title, "", 2, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, l := range lines {
		pdf.MultiCell(w, 5, tr(l), "", "L", false)
		pdf.SetX(x)
	}
}

func nonEmpty(vals ...string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	}
	return out
}

func formatQuantity(q float64) string {
	s := fmt.Sprintf("%.2f", q)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}
