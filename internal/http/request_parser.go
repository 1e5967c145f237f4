// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating request data:
// JSON bodies, list filters, report ranges and delete confirmation.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"invoicer/internal/analytics"
	"invoicer/internal/core"
	"invoicer/internal/services"
	"invoicer/internal/storage"
)

const (
	maxBodyBytes = 1 << 20
	maxListLimit = 1000
)

// DecodeJSON reads a single JSON object into dst. Bodies over 1 MiB and
// trailing data are rejected.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return errors.New("request body is empty")
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		default:
			return fmt.Errorf("invalid JSON body: %w", err)
		}
	}
	if dec.More() {
		return errors.New("request body must contain a single JSON object")
	}
	return nil
}

// Confirmed reports whether a destructive request was explicitly confirmed
// via ?confirm=true or the X-Confirm: true header.
func Confirmed(r *http.Request) bool {
	if ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm")); ok {
		return true
	}
	ok, _ := strconv.ParseBool(r.Header.Get("X-Confirm"))
	return ok
}

// queryParser accumulates per-parameter errors while reading a query string.
type queryParser struct {
	q    url.Values
	verr core.ValidationError
}

func newQueryParser(q url.Values) *queryParser {
	return &queryParser{q: q}
}

func (p *queryParser) text(key string) string {
	return sanitizeInput(p.q.Get(key))
}

func (p *queryParser) date(key string) core.Date {
	v := strings.TrimSpace(p.q.Get(key))
	if v == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(v)
	if err != nil {
		p.verr.Add(key, "must be a date in YYYY-MM-DD format")
	}
	return d
}

func (p *queryParser) limit(def int) int {
	v := strings.TrimSpace(p.q.Get("limit"))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		p.verr.Add("limit", "must be a non-negative integer")
		return def
	}
	return min(n, maxListLimit)
}

func (p *queryParser) boolean(key string) bool {
	v := strings.TrimSpace(p.q.Get(key))
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.verr.Add(key, "must be true or false")
	}
	return b
}

func (p *queryParser) dateOrder(from, to core.Date) {
	if !from.IsZero() && !to.IsZero() && to.Before(from.Time) {
		p.verr.Add("to", "must not be before from")
	}
}

func (p *queryParser) err() error {
	return p.verr.Err()
}

// ParseClientFilter reads ?search= and ?limit=.
func ParseClientFilter(q url.Values) (storage.ClientFilter, error) {
	p := newQueryParser(q)
	f := storage.ClientFilter{Search: p.text("search"), Limit: p.limit(0)}
	return f, p.err()
}

// ParseInvoiceFilter reads ?status=&client_id=&from=&to=&search=&limit=.
func ParseInvoiceFilter(q url.Values) (storage.InvoiceFilter, error) {
	p := newQueryParser(q)
	f := storage.InvoiceFilter{
		Status:   core.InvoiceStatus(p.text("status")),
		ClientID: p.text("client_id"),
		From:     p.date("from"),
		To:       p.date("to"),
		Search:   p.text("search"),
		Limit:    p.limit(0),
	}
	if f.Status != "" && !f.Status.IsValid() {
		p.verr.Add("status", "unknown invoice status")
	}
	p.dateOrder(f.From, f.To)
	return f, p.err()
}

// ParseExpenseFilter reads ?category_id=&payment_method=&from=&to=&search=&limit=.
func ParseExpenseFilter(q url.Values) (storage.ExpenseFilter, error) {
	p := newQueryParser(q)
	f := storage.ExpenseFilter{
		CategoryID:    p.text("category_id"),
		PaymentMethod: core.PaymentMethod(p.text("payment_method")),
		From:          p.date("from"),
		To:            p.date("to"),
		Search:        p.text("search"),
		Limit:         p.limit(0),
	}
	if f.PaymentMethod != "" && !f.PaymentMethod.IsValid() {
		p.verr.Add("payment_method", "unknown payment method")
	}
	p.dateOrder(f.From, f.To)
	return f, p.err()
}

// ParseRange reads the report scope ?from=&to=&period=.
func ParseRange(q url.Values) (services.Range, error) {
	p := newQueryParser(q)
	r := p.reportRange()
	return r, p.err()
}

// ParseClientReport reads a report range plus ?limit=.
func ParseClientReport(q url.Values) (services.Range, int, error) {
	p := newQueryParser(q)
	r := p.reportRange()
	limit := p.limit(0)
	return r, limit, p.err()
}

// ParseStatusReport reads a report range plus ?include_cancelled=.
func ParseStatusReport(q url.Values) (services.Range, bool, error) {
	p := newQueryParser(q)
	r := p.reportRange()
	include := p.boolean("include_cancelled")
	return r, include, p.err()
}

func (p *queryParser) reportRange() services.Range {
	r := services.Range{
		From:   p.date("from"),
		To:     p.date("to"),
		Period: analytics.Period(strings.ToLower(p.text("period"))),
	}
	if r.Period != "" && !r.Period.IsValid() {
		p.verr.Add("period", "must be monthly, quarterly or yearly")
	}
	p.dateOrder(r.From, r.To)
	return r
}

// sanitizeInput removes control characters except tab, newline and carriage
// return, and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
