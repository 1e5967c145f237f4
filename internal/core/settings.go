package core

import (
	"strings"
	"time"
)

// BalanceSummary is the singleton aggregate of earnings and spending.
type BalanceSummary struct {
	TotalEarnings    Money     `json:"total_earnings"`
	TotalExpenses    Money     `json:"total_expenses"`
	CurrentBalance   Money     `json:"current_balance"`
	LastCalculatedAt time.Time `json:"last_calculated_at"`
}

type Profile struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type Company struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	TaxID   string `json:"tax_id"`
	Website string `json:"website"`
}

type Invoicing struct {
	Prefix              string       `json:"prefix"`
	NextNumber          int          `json:"next_number"`
	DefaultTaxRate      float64      `json:"default_tax_rate"`
	Currency            string       `json:"currency"`
	DefaultPaymentTerms PaymentTerms `json:"default_payment_terms"`
	FooterNotes         string       `json:"footer_notes"`
}

type Banking struct {
	BankName      string `json:"bank_name"`
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	RoutingCode   string `json:"routing_code"`
	SWIFT         string `json:"swift"`
	UPIID         string `json:"upi_id"`
}

type NotificationPrefs struct {
	InvoiceCreated   bool `json:"invoice_created"`
	InvoicePaid      bool `json:"invoice_paid"`
	OverdueReminders bool `json:"overdue_reminders"`
	ExpenseAlerts    bool `json:"expense_alerts"`
}

// Settings is the singleton configuration record of the business.
type Settings struct {
	Profile       Profile           `json:"profile"`
	Company       Company           `json:"company"`
	Invoicing     Invoicing         `json:"invoicing"`
	Banking       Banking           `json:"banking"`
	Notifications NotificationPrefs `json:"notifications"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// DefaultSettings is used until the user saves their own.
func DefaultSettings() Settings {
	return Settings{
		Invoicing: Invoicing{
			Prefix:              "INV",
			NextNumber:          1,
			Currency:            "INR",
			DefaultPaymentTerms: Net30,
		},
		Notifications: NotificationPrefs{
			InvoiceCreated:   true,
			InvoicePaid:      true,
			OverdueReminders: true,
			ExpenseAlerts:    true,
		},
	}
}

func (s Settings) Validate() error {
	var v ValidationError
	if s.Profile.Email != "" && !validEmail(s.Profile.Email) {
		v.Add("profile.email", "invalid email address")
	}
	if s.Company.Email != "" && !validEmail(s.Company.Email) {
		v.Add("company.email", "invalid email address")
	}
	if strings.TrimSpace(s.Invoicing.Prefix) == "" {
		v.Add("invoicing.prefix", "prefix is required")
	}
	if s.Invoicing.NextNumber < 1 {
		v.Add("invoicing.next_number", "next number must be at least 1")
	}
	if s.Invoicing.DefaultTaxRate < 0 || s.Invoicing.DefaultTaxRate > 100 {
		v.Add("invoicing.default_tax_rate", "tax rate must be between 0 and 100")
	}
	if len(s.Invoicing.Currency) != 3 {
		v.Add("invoicing.currency", "currency must be a 3-letter code")
	}
	if s.Invoicing.DefaultPaymentTerms != "" && !s.Invoicing.DefaultPaymentTerms.IsValid() {
		v.Add("invoicing.default_payment_terms", "unknown payment terms")
	}
	return v.Err()
}
