package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"invoicer/internal/core"
)

const expenseColumns = `id, amount_cents, description, COALESCE(category_id, ''), category_name, date, payment_method,
	vendor, receipt_number, notes, tags, is_business_expense, tax_deductible, created_at, updated_at`

func scanExpense(s scanner) (core.Expense, error) {
	var e core.Expense
	var date, method, tags, created, updated string
	var business, deductible int
	err := s.Scan(&e.ID, &e.Amount.Cents, &e.Description, &e.CategoryID, &e.CategoryName, &date, &method,
		&e.Vendor, &e.ReceiptNumber, &e.Notes, &tags, &business, &deductible, &created, &updated)
	if err != nil {
		return core.Expense{}, err
	}
	e.Date, _ = core.ParseDate(date)
	e.PaymentMethod = core.PaymentMethod(method)
	if err := json.Unmarshal([]byte(tags), &e.Tags); err != nil {
		return core.Expense{}, fmt.Errorf("decode tags of %s: %w", e.ID, err)
	}
	e.IsBusinessExpense = business != 0
	e.TaxDeductible = deductible != 0
	e.CreatedAt = parseTime(created)
	e.UpdatedAt = parseTime(updated)
	return e, nil
}

func (r *SQLiteRepository) ListExpenses(ctx context.Context, f ExpenseFilter) ([]core.Expense, error) {
	var w where
	if f.CategoryID != "" {
		w.eq("category_id", f.CategoryID)
	}
	if f.PaymentMethod != "" {
		w.eq("payment_method", string(f.PaymentMethod))
	}
	w.dateRange("date", f.From, f.To)
	w.like(f.Search, "description", "vendor", "receipt_number")
	limit, args := limitClause(f.Limit, w.args)

	rows, err := r.db.QueryContext(ctx, "SELECT "+expenseColumns+" FROM expenses"+w.String()+" ORDER BY date DESC, created_at DESC"+limit, args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []core.Expense{}
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (r *SQLiteRepository) GetExpense(ctx context.Context, id string) (core.Expense, error) {
	e, err := scanExpense(r.db.QueryRowContext(ctx, "SELECT "+expenseColumns+" FROM expenses WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.Expense{}, fmt.Errorf("expense %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return e, nil
}

// CreateExpense stores an expense, copying the category name from the
// catalog, and refreshes the balance summary in the same transaction.
func (r *SQLiteRepository) CreateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	e.ID = uuid.NewString()
	ts := r.timestamp()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := denormalizeCategory(ctx, tx, &e); err != nil {
			return err
		}
		tags, err := encodeTags(e.Tags)
		if err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO expenses (id, amount_cents, description, category_id, category_name,
			date, payment_method, vendor, receipt_number, notes, tags, is_business_expense, tax_deductible, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, e.Amount.Cents, e.Description, nullable(e.CategoryID), e.CategoryName, e.Date.String(),
			string(e.PaymentMethod), e.Vendor, e.ReceiptNumber, e.Notes, tags,
			boolToInt(e.IsBusinessExpense), boolToInt(e.TaxDeductible), ts, ts)
		if err != nil {
			return fmt.Errorf("insert expense: %w", translate(err))
		}
		return refreshBalance(ctx, tx, ts)
	})
	if err != nil {
		return core.Expense{}, err
	}
	slog.InfoContext(ctx, "Expense saved",
		"id", e.ID,
		"description", e.Description,
		"amount_cents", e.Amount.Cents,
		"date", e.Date.String())
	return r.GetExpense(ctx, e.ID)
}

func (r *SQLiteRepository) UpdateExpense(ctx context.Context, e core.Expense) (core.Expense, error) {
	ts := r.timestamp()
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		if err := denormalizeCategory(ctx, tx, &e); err != nil {
			return err
		}
		tags, err := encodeTags(e.Tags)
		if err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `UPDATE expenses SET amount_cents = ?, description = ?, category_id = ?,
			category_name = ?, date = ?, payment_method = ?, vendor = ?, receipt_number = ?, notes = ?, tags = ?,
			is_business_expense = ?, tax_deductible = ?, updated_at = ? WHERE id = ?`,
			e.Amount.Cents, e.Description, nullable(e.CategoryID), e.CategoryName, e.Date.String(),
			string(e.PaymentMethod), e.Vendor, e.ReceiptNumber, e.Notes, tags,
			boolToInt(e.IsBusinessExpense), boolToInt(e.TaxDeductible), ts, e.ID)
		if err != nil {
			return fmt.Errorf("update expense: %w", translate(err))
		}
		if err := affectedOrNotFound(res, "expense", e.ID); err != nil {
			return err
		}
		return refreshBalance(ctx, tx, ts)
	})
	if err != nil {
		return core.Expense{}, err
	}
	return r.GetExpense(ctx, e.ID)
}

func (r *SQLiteRepository) DeleteExpense(ctx context.Context, id string) error {
	ts := r.timestamp()
	return r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, "DELETE FROM expenses WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("delete expense: %w", err)
		}
		if err := affectedOrNotFound(res, "expense", id); err != nil {
			return err
		}
		return refreshBalance(ctx, tx, ts)
	})
}

func denormalizeCategory(ctx context.Context, tx dbtx, e *core.Expense) error {
	if e.CategoryID == "" {
		e.CategoryName = ""
		return nil
	}
	err := tx.QueryRowContext(ctx, "SELECT name FROM expense_categories WHERE id = ?", e.CategoryID).Scan(&e.CategoryName)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("category %s: %w", e.CategoryID, ErrUnknownCategory)
	}
	if err != nil {
		return fmt.Errorf("lookup category: %w", err)
	}
	return nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	return string(b), nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
