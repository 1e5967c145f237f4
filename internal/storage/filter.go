package storage

import (
	"database/sql/driver"
	"strings"

	"modernc.org/sqlite"

	"invoicer/internal/core"
)

// SQLite's LOWER, LIKE and NOCASE only fold ASCII. fold lowercases the full
// Unicode range so "Émile" matches "émile".
func init() {
	sqlite.MustRegisterDeterministicScalarFunction("fold", 1, func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		switch v := args[0].(type) {
		case string:
			return strings.ToLower(v), nil
		case []byte:
			return strings.ToLower(string(v)), nil
		default:
			return v, nil
		}
	})
}

// ClientFilter narrows ListClients. Search matches name, email and company.
type ClientFilter struct {
	Search string
	Limit  int
}

// InvoiceFilter narrows ListInvoices. From/To are inclusive on issue date;
// Search matches the invoice id and client name.
type InvoiceFilter struct {
	Status   core.InvoiceStatus
	ClientID string
	From     core.Date
	To       core.Date
	Search   string
	Limit    int
}

// ExpenseFilter narrows ListExpenses. From/To are inclusive on the expense
// date; Search matches description, vendor and receipt number.
type ExpenseFilter struct {
	CategoryID    string
	PaymentMethod core.PaymentMethod
	From          core.Date
	To            core.Date
	Search        string
	Limit         int
}

type where struct {
	clauses []string
	args    []any
}

func (w *where) eq(col string, v any) {
	w.clauses = append(w.clauses, col+" = ?")
	w.args = append(w.args, v)
}

func (w *where) dateRange(col string, from, to core.Date) {
	if !from.IsZero() {
		w.clauses = append(w.clauses, col+" >= ?")
		w.args = append(w.args, from.String())
	}
	if !to.IsZero() {
		w.clauses = append(w.clauses, col+" <= ?")
		w.args = append(w.args, to.String())
	}
}

// like adds a case-insensitive substring match across cols.
func (w *where) like(term string, cols ...string) {
	term = strings.TrimSpace(term)
	if term == "" || len(cols) == 0 {
		return
	}
	pattern := "%" + escapeLike(strings.ToLower(term)) + "%"
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = "fold(" + c + `) LIKE ? ESCAPE '\'`
		w.args = append(w.args, pattern)
	}
	w.clauses = append(w.clauses, "("+strings.Join(parts, " OR ")+")")
}

func (w *where) String() string {
	if len(w.clauses) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.clauses, " AND ")
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}

func limitClause(n int, args []any) (string, []any) {
	if n <= 0 {
		return "", args
	}
	return " LIMIT ?", append(args, n)
}
