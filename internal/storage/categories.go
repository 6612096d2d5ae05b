package storage

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/google/uuid"

	"expensedocs/internal/core"
)

const categoryColumns = `id, name, description, display_order, created_at, updated_at`

func (r *SQLiteRepository) ListCategories(ctx context.Context) ([]core.ExpenseCategory, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM expense_categories
		ORDER BY display_order ASC, created_at ASC
	`)
	if err != nil {
		return nil, translate("list categories", err)
	}
	defer rows.Close()

	categories := []core.ExpenseCategory{}
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, translate("list categories", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list categories", err)
	}
	return categories, nil
}

func (r *SQLiteRepository) CreateCategory(ctx context.Context, in core.NewCategory) (core.ExpenseCategory, error) {
	row := in.Row()
	id := uuid.NewString()
	now := r.timestamp()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expense_categories (id, name, description, display_order, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, row.Name, row.Description, row.DisplayOrder, now, now)
	if err != nil {
		return core.ExpenseCategory{}, translate("create category", err)
	}
	return r.getCategory(ctx, r.db, "create category", id)
}

func (r *SQLiteRepository) UpdateCategory(ctx context.Context, id string, patch core.CategoryPatch) (core.ExpenseCategory, error) {
	const op = "update category"
	set := newAssignments()
	setIf(set, "name", patch.Name)
	setIf(set, "description", patch.Description)
	setIf(set, "display_order", patch.DisplayOrder)

	if err := r.updateRow(ctx, op, "expense_categories", id, set); err != nil {
		return core.ExpenseCategory{}, err
	}
	return r.getCategory(ctx, r.db, op, id)
}

// DeleteCategory removes the category and, by cascade, its documents.
func (r *SQLiteRepository) DeleteCategory(ctx context.Context, id string) (bool, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expense_categories WHERE id = ?`, id); err != nil {
		return false, translate("delete category", err)
	}
	return true, nil
}

func (r *SQLiteRepository) getCategory(ctx context.Context, q queryable, op, id string) (core.ExpenseCategory, error) {
	c, err := scanCategory(q.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`
		FROM expense_categories
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseCategory{}, noRow(op)
	}
	if err != nil {
		return core.ExpenseCategory{}, translate(op, err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCategory(s scanner) (core.ExpenseCategory, error) {
	var (
		c                    core.ExpenseCategory
		createdAt, updatedAt string
	)
	if err := s.Scan(&c.ID, &c.Name, &c.Description, &c.DisplayOrder, &createdAt, &updatedAt); err != nil {
		return c, err
	}
	var err error
	if c.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return c, err
	}
	if c.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return c, err
	}
	return c, nil
}

// assignments collects the SET clause of a partial update.
type assignments struct {
	columns []string
	args    []any
}

func newAssignments() *assignments {
	return &assignments{}
}

func (a *assignments) set(column string, v any) {
	a.columns = append(a.columns, column+" = ?")
	a.args = append(a.args, v)
}

// setIf records column = *v when v is non-nil.
func setIf[T any](a *assignments, column string, v *T) {
	if v != nil {
		a.set(column, *v)
	}
}

// updateRow applies set plus a fresh updated_at to the row with id.
func (r *SQLiteRepository) updateRow(ctx context.Context, op, table, id string, set *assignments) error {
	set.set("updated_at", r.timestamp())
	args := append(set.args, id)

	res, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET `+strings.Join(set.columns, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return translate(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return translate(op, err)
	}
	if n == 0 {
		return noRow(op)
	}
	return nil
}
