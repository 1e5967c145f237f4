package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"invoicer/internal/core"
)

const categoryColumns = "id, name, description, icon, color, is_default, created_at"

func scanCategory(s scanner) (core.ExpenseCategory, error) {
	var c core.ExpenseCategory
	var isDefault int
	var created string
	if err := s.Scan(&c.ID, &c.Name, &c.Description, &c.Icon, &c.Color, &isDefault, &created); err != nil {
		return core.ExpenseCategory{}, err
	}
	c.IsDefault = isDefault != 0
	c.CreatedAt = parseTime(created)
	return c, nil
}

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.ExpenseCategory, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+categoryColumns+" FROM expense_categories ORDER BY name COLLATE NOCASE")
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	cats := []core.ExpenseCategory{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

func (r *SQLiteRepository) GetCategory(ctx context.Context, id string) (core.ExpenseCategory, error) {
	c, err := scanCategory(r.db.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM expense_categories WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseCategory{}, fmt.Errorf("category %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return core.ExpenseCategory{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// CreateCategory stores a category. Duplicate names yield ErrConflict.
func (r *SQLiteRepository) CreateCategory(ctx context.Context, c core.ExpenseCategory) (core.ExpenseCategory, error) {
	c.ID = uuid.NewString()
	if err := insertCategory(ctx, r.db, c, r.timestamp()); err != nil {
		return core.ExpenseCategory{}, err
	}
	return r.GetCategory(ctx, c.ID)
}

func insertCategory(ctx context.Context, q dbtx, c core.ExpenseCategory, ts string) error {
	_, err := q.ExecContext(ctx, `INSERT INTO expense_categories (id, name, description, icon, color, is_default, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`, c.ID, c.Name, c.Description, c.Icon, c.Color, boolToInt(c.IsDefault), ts)
	if err != nil {
		return fmt.Errorf("insert category: %w", translate(err))
	}
	return nil
}

// DeleteCategory removes a category. Expenses keep their copied name and
// lose the reference.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM expense_categories WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return affectedOrNotFound(res, "category", id)
}

// EnsureDefaultCategories seeds the default catalog when no category exists.
// It returns the number of categories inserted.
func (r *SQLiteRepository) EnsureDefaultCategories(ctx context.Context) (int, error) {
	inserted := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		var count int
		if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM expense_categories").Scan(&count); err != nil {
			return fmt.Errorf("count categories: %w", err)
		}
		if count > 0 {
			return nil
		}
		ts := r.timestamp()
		for _, c := range core.DefaultCategories() {
			c.ID = uuid.NewString()
			if err := insertCategory(ctx, tx, c, ts); err != nil {
				return err
			}
			inserted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if inserted > 0 {
		slog.InfoContext(ctx, "Seeded default expense categories", "count", inserted)
	}
	return inserted, nil
}
