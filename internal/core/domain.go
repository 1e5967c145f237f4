// Package core holds the invoicing domain types and their validation rules.
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/mail"
	"sort"
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	PaymentTerms  string
	InvoiceStatus string
	PaymentMethod string
)

const (
	DueOnReceipt PaymentTerms = "due_on_receipt"
	Net15        PaymentTerms = "net15"
	Net30        PaymentTerms = "net30"
	Net45        PaymentTerms = "net45"
	Net60        PaymentTerms = "net60"
)

const (
	StatusDraft     InvoiceStatus = "Draft"
	StatusPending   InvoiceStatus = "Pending"
	StatusPaid      InvoiceStatus = "Paid"
	StatusOverdue   InvoiceStatus = "Overdue"
	StatusCancelled InvoiceStatus = "Cancelled"
)

const (
	PayCash         PaymentMethod = "cash"
	PayUPI          PaymentMethod = "upi"
	PayCard         PaymentMethod = "card"
	PayNetBanking   PaymentMethod = "net_banking"
	PayBankTransfer PaymentMethod = "bank_transfer"
	PayWallet       PaymentMethod = "wallet"
	PayCheque       PaymentMethod = "cheque"
	PayOther        PaymentMethod = "other"
)

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidDate      = errors.New("invalid date")
)

// AllStatuses lists every invoice status in display order.
var AllStatuses = []InvoiceStatus{StatusPaid, StatusPending, StatusOverdue, StatusDraft, StatusCancelled}

var paymentTermDays = map[PaymentTerms]int{
	DueOnReceipt: 0,
	Net15:        15,
	Net30:        30,
	Net45:        45,
	Net60:        60,
}

// Days returns the number of days granted by the terms.
func (p PaymentTerms) Days() (int, bool) {
	d, ok := paymentTermDays[p]
	return d, ok
}

func (p PaymentTerms) IsValid() bool {
	_, ok := paymentTermDays[p]
	return ok
}

func (s InvoiceStatus) IsValid() bool {
	for _, v := range AllStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (m PaymentMethod) IsValid() bool {
	switch m {
	case PayCash, PayUPI, PayCard, PayNetBanking, PayBankTransfer, PayWallet, PayCheque, PayOther:
		return true
	default:
		return false
	}
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// AddDays returns the date shifted by n calendar days.
func (d Date) AddDays(n int) Date {
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.Format(DateLayout))
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		if string(b) == "null" {
			*d = Date{}
			return nil
		}
		return err
	}
	if s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }

// ValidationError collects per-field messages produced before any write.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Add records a message for field; the first message wins.
func (e *ValidationError) Add(field, msg string) {
	if e.Fields == nil {
		e.Fields = make(map[string]string)
	}
	if _, exists := e.Fields[field]; !exists {
		e.Fields[field] = msg
	}
}

// Err returns nil when no field failed.
func (e *ValidationError) Err() error {
	if len(e.Fields) == 0 {
		return nil
	}
	return e
}

func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	return err == nil && addr.Address == s && strings.Contains(s, ".")
}
