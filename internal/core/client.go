package core

import (
	"strings"
	"time"
)

// Client is a customer that invoices are issued to.
// TotalInvoices and TotalAmount are denormalized from the client's invoices.
type Client struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Email         string       `json:"email"`
	Phone         string       `json:"phone,omitempty"`
	Company       string       `json:"company,omitempty"`
	Address       string       `json:"address,omitempty"`
	ContactName   string       `json:"contact_name,omitempty"`
	PaymentTerms  PaymentTerms `json:"payment_terms"`
	TotalInvoices int          `json:"total_invoices"`
	TotalAmount   Money        `json:"total_amount"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

// Normalize trims text fields and applies the default payment terms.
func (c *Client) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Email = strings.TrimSpace(c.Email)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Company = strings.TrimSpace(c.Company)
	c.Address = strings.TrimSpace(c.Address)
	c.ContactName = strings.TrimSpace(c.ContactName)
	if c.PaymentTerms == "" {
		c.PaymentTerms = Net30
	}
}

func (c Client) Validate() error {
	var v ValidationError
	if c.Name == "" {
		v.Add("name", "name is required")
	}
	switch {
	case c.Email == "":
		v.Add("email", "email is required")
	case !validEmail(c.Email):
		v.Add("email", "invalid email address")
	}
	if !c.PaymentTerms.IsValid() {
		v.Add("payment_terms", "unknown payment terms")
	}
	return v.Err()
}

// DueDate derives an invoice due date from the issue date and payment terms.
// Unknown terms fall back to net30.
func DueDate(issue Date, terms PaymentTerms) Date {
	days, ok := terms.Days()
	if !ok {
		days, _ = Net30.Days()
	}
	return issue.AddDays(days)
}
