package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"invoicer/internal/core"
)

func (r *SQLiteRepository) GetSettings(ctx context.Context) (core.Settings, error) {
	var profile, company, banking, notifications, terms, updated string
	s := core.Settings{}
	err := r.db.QueryRowContext(ctx, `SELECT profile, company, banking, notifications, invoice_prefix,
		invoice_next_number, invoice_default_tax_rate, invoice_currency, invoice_default_payment_terms,
		invoice_footer_notes, updated_at FROM settings WHERE id = 1`).Scan(
		&profile, &company, &banking, &notifications, &s.Invoicing.Prefix, &s.Invoicing.NextNumber,
		&s.Invoicing.DefaultTaxRate, &s.Invoicing.Currency, &terms, &s.Invoicing.FooterNotes, &updated)
	if err != nil {
		return core.Settings{}, fmt.Errorf("get settings: %w", err)
	}
	s.Invoicing.DefaultPaymentTerms = core.PaymentTerms(terms)
	s.UpdatedAt = parseTime(updated)
	for _, part := range []struct {
		raw string
		dst any
	}{
		{profile, &s.Profile},
		{company, &s.Company},
		{banking, &s.Banking},
		{notifications, &s.Notifications},
	} {
		if err := json.Unmarshal([]byte(part.raw), part.dst); err != nil {
			return core.Settings{}, fmt.Errorf("decode settings: %w", err)
		}
	}
	return s, nil
}

// SaveSettings overwrites the singleton settings row.
func (r *SQLiteRepository) SaveSettings(ctx context.Context, s core.Settings) (core.Settings, error) {
	encoded := make([]string, 0, 4)
	for _, part := range []any{s.Profile, s.Company, s.Banking, s.Notifications} {
		b, err := json.Marshal(part)
		if err != nil {
			return core.Settings{}, fmt.Errorf("encode settings: %w", err)
		}
		encoded = append(encoded, string(b))
	}
	_, err := r.db.ExecContext(ctx, `UPDATE settings SET profile = ?, company = ?, banking = ?, notifications = ?,
		invoice_prefix = ?, invoice_next_number = ?, invoice_default_tax_rate = ?, invoice_currency = ?,
		invoice_default_payment_terms = ?, invoice_footer_notes = ?, updated_at = ? WHERE id = 1`,
		encoded[0], encoded[1], encoded[2], encoded[3], s.Invoicing.Prefix, s.Invoicing.NextNumber,
		s.Invoicing.DefaultTaxRate, s.Invoicing.Currency, string(s.Invoicing.DefaultPaymentTerms),
		s.Invoicing.FooterNotes, r.timestamp())
	if err != nil {
		return core.Settings{}, fmt.Errorf("save settings: %w", err)
	}
	return r.GetSettings(ctx)
}
