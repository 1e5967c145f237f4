package core

import (
	"strings"
	"time"
)

type Expense struct {
	ID                string        `json:"id"`
	Amount            Money         `json:"amount"`
	Description       string        `json:"description"`
	CategoryID        string        `json:"category_id,omitempty"`
	CategoryName      string        `json:"category_name,omitempty"`
	Date              Date          `json:"date"`
	PaymentMethod     PaymentMethod `json:"payment_method"`
	Vendor            string        `json:"vendor,omitempty"`
	ReceiptNumber     string        `json:"receipt_number,omitempty"`
	Notes             string        `json:"notes,omitempty"`
	Tags              []string      `json:"tags,omitempty"`
	IsBusinessExpense bool          `json:"is_business_expense"`
	TaxDeductible     bool          `json:"tax_deductible"`
	CreatedAt         time.Time     `json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

// NewExpense returns the zero expense with the defaults an omitted field
// takes: an expense is a business expense unless the caller says otherwise.
func NewExpense() Expense {
	return Expense{IsBusinessExpense: true}
}

// Normalize trims text fields, drops blank tags and defaults the payment method.
func (e *Expense) Normalize() {
	e.Description = strings.TrimSpace(e.Description)
	e.Vendor = strings.TrimSpace(e.Vendor)
	e.ReceiptNumber = strings.TrimSpace(e.ReceiptNumber)
	e.Notes = strings.TrimSpace(e.Notes)
	if e.PaymentMethod == "" {
		e.PaymentMethod = PayOther
	}
	tags := e.Tags[:0]
	for _, t := range e.Tags {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	e.Tags = tags
}

// Validate ensures the expense has valid fields before it is stored.
func (e Expense) Validate() error {
	var v ValidationError
	if e.Date.IsZero() {
		v.Add("date", "date is required")
	}
	if err := e.Amount.Validate(); err != nil {
		v.Add("amount", "amount must be positive")
	}
	if e.Description == "" {
		v.Add("description", ErrEmptyDescription.Error())
	}
	if !e.PaymentMethod.IsValid() {
		v.Add("payment_method", "unknown payment method")
	}
	return v.Err()
}

type ExpenseCategory struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon"`
	Color       string    `json:"color"`
	IsDefault   bool      `json:"is_default"`
	CreatedAt   time.Time `json:"created_at"`
}

func (c ExpenseCategory) Validate() error {
	var v ValidationError
	if strings.TrimSpace(c.Name) == "" {
		v.Add("name", "name is required")
	}
	if c.Color != "" && !validHexColor(c.Color) {
		v.Add("color", "color must be #rrggbb")
	}
	return v.Err()
}

func validHexColor(s string) bool {
	if len(s) != 7 || s[0] != '#' {
		return false
	}
	for _, r := range s[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}

// DefaultCategories are seeded when the category table is empty.
func DefaultCategories() []ExpenseCategory {
	return []ExpenseCategory{
		{Name: "Travel", Description: "Flights, trains, cabs and lodging", Icon: "✈️", Color: "#3b82f6", IsDefault: true},
		{Name: "Meals & Entertainment", Description: "Client meals and events", Icon: "🍽️", Color: "#f97316", IsDefault: true},
		{Name: "Office Supplies", Description: "Stationery and consumables", Icon: "🖇️", Color: "#84cc16", IsDefault: true},
		{Name: "Software & Subscriptions", Description: "SaaS tools and licenses", Icon: "💻", Color: "#8b5cf6", IsDefault: true},
		{Name: "Utilities", Description: "Electricity, internet and phone", Icon: "💡", Color: "#eab308", IsDefault: true},
		{Name: "Rent", Description: "Office or co-working rent", Icon: "🏢", Color: "#64748b", IsDefault: true},
		{Name: "Marketing", Description: "Ads, promotion and branding", Icon: "📣", Color: "#ec4899", IsDefault: true},
		{Name: "Professional Services", Description: "Legal, accounting and consulting", Icon: "💼", Color: "#14b8a6", IsDefault: true},
		{Name: "Equipment", Description: "Hardware and tools", Icon: "🛠️", Color: "#ef4444", IsDefault: true},
		{Name: "Miscellaneous", Description: "Anything else", Icon: "📦", Color: "#9ca3af", IsDefault: true},
	}
}
