package analytics

import (
	"sort"

	"invoicer/internal/core"
)

type ClientRevenue struct {
	ClientID         string     `json:"client_id"`
	ClientName       string     `json:"client_name"`
	Revenue          core.Money `json:"revenue"`
	InvoiceCount     int        `json:"invoice_count"`
	AvgInvoiceAmount core.Money `json:"avg_invoice_amount"`
}

// ClientRanking ranks clients by Paid revenue. n <= 0 returns every client.
func ClientRanking(invoices []core.Invoice, n int) []ClientRevenue {
	groups := make(map[string]*ClientRevenue)
	for _, inv := range invoices {
		if inv.Status != core.StatusPaid {
			continue
		}
		g, ok := groups[inv.ClientID]
		if !ok {
			g = &ClientRevenue{ClientID: inv.ClientID, ClientName: inv.ClientName}
			groups[inv.ClientID] = g
		}
		if g.ClientName == "" {
			g.ClientName = inv.ClientName
		}
		g.Revenue.Cents += inv.Amount.Cents
		g.InvoiceCount++
	}
	out := make([]ClientRevenue, 0, len(groups))
	for _, g := range groups {
		if g.InvoiceCount > 0 {
			g.AvgInvoiceAmount = core.Money{Cents: g.Revenue.Cents / int64(g.InvoiceCount)}
		}
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Revenue.Cents != out[j].Revenue.Cents {
			return out[i].Revenue.Cents > out[j].Revenue.Cents
		}
		return out[i].ClientName < out[j].ClientName
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

type StatusCount struct {
	Status core.InvoiceStatus `json:"status"`
	Count  int                `json:"count"`
	Amount core.Money         `json:"amount"`
}

// StatusHistogram counts invoices per status label, keeping zero rows.
func StatusHistogram(invoices []core.Invoice, includeCancelled bool) []StatusCount {
	labels := []core.InvoiceStatus{core.StatusPaid, core.StatusPending, core.StatusOverdue, core.StatusDraft}
	if includeCancelled {
		labels = append(labels, core.StatusCancelled)
	}
	idx := make(map[core.InvoiceStatus]int, len(labels))
	out := make([]StatusCount, len(labels))
	for i, l := range labels {
		out[i].Status = l
		idx[l] = i
	}
	for _, inv := range invoices {
		i, ok := idx[inv.Status]
		if !ok {
			continue
		}
		out[i].Count++
		out[i].Amount.Cents += inv.Amount.Cents
	}
	return out
}

// AveragePaymentDays averages the stated term (due minus issue, in whole
// days rounded up) over Paid invoices.
func AveragePaymentDays(invoices []core.Invoice) float64 {
	var total, n int
	for _, inv := range invoices {
		if inv.Status != core.StatusPaid || inv.IssueDate.IsZero() || inv.DueDate.IsZero() {
			continue
		}
		total += ceilDays(inv.DueDate.Sub(inv.IssueDate.Time).Hours() / 24)
		n++
	}
	if n == 0 {
		return 0
	}
	return float64(total) / float64(n)
}

func ceilDays(d float64) int {
	i := int(d)
	if float64(i) < d {
		i++
	}
	return i
}

// Outstanding sums Pending and Overdue invoices.
func Outstanding(invoices []core.Invoice) (core.Money, int) {
	var m core.Money
	var n int
	for _, inv := range invoices {
		if inv.IsOutstanding() {
			m.Cents += inv.Amount.Cents
			n++
		}
	}
	return m, n
}
