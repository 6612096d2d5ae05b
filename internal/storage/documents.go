package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"expensedocs/internal/core"
)

const documentColumns = `id, category_id, title, description, document_type, url, amount, date, created_at, updated_at`

func (r *SQLiteRepository) ListDocuments(ctx context.Context, categoryID string) ([]core.ExpenseDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM expense_documents`
	var args []any
	if categoryID != "" {
		query += ` WHERE category_id = ?`
		args = append(args, categoryID)
	}
	query += ` ORDER BY date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, translate("list documents", err)
	}
	defer rows.Close()

	documents := []core.ExpenseDocument{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, translate("list documents", err)
		}
		documents = append(documents, d)
	}
	if err := rows.Err(); err != nil {
		return nil, translate("list documents", err)
	}
	return documents, nil
}

func (r *SQLiteRepository) CreateDocument(ctx context.Context, in core.NewDocument) (core.ExpenseDocument, error) {
	row := in.Row(r.now())
	id := uuid.NewString()
	now := r.timestamp()

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO expense_documents
			(id, category_id, title, description, document_type, url, amount, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, row.CategoryID, row.Title, row.Description, row.DocumentType, row.URL,
		amountValue(row.Amount), row.Date.String(), now, now)
	if err != nil {
		return core.ExpenseDocument{}, translate("create document", err)
	}
	return r.getDocument(ctx, r.db, "create document", id)
}

func (r *SQLiteRepository) UpdateDocument(ctx context.Context, id string, patch core.DocumentPatch) (core.ExpenseDocument, error) {
	const op = "update document"
	set := newAssignments()
	setIf(set, "category_id", patch.CategoryID)
	setIf(set, "title", patch.Title)
	setIf(set, "description", patch.Description)
	setIf(set, "document_type", patch.DocumentType)
	setIf(set, "url", patch.URL)
	if patch.Amount != nil {
		set.set("amount", amountValue(patch.Amount))
	} else if patch.ClearAmount {
		set.set("amount", nil)
	}
	if patch.Date != nil && !patch.Date.IsZero() {
		set.set("date", patch.Date.String())
	}

	if err := r.updateRow(ctx, op, "expense_documents", id, set); err != nil {
		return core.ExpenseDocument{}, err
	}
	return r.getDocument(ctx, r.db, op, id)
}

func (r *SQLiteRepository) DeleteDocument(ctx context.Context, id string) (bool, error) {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM expense_documents WHERE id = ?`, id); err != nil {
		return false, translate("delete document", err)
	}
	return true, nil
}

func (r *SQLiteRepository) getDocument(ctx context.Context, q queryable, op, id string) (core.ExpenseDocument, error) {
	d, err := scanDocument(q.QueryRowContext(ctx, `
		SELECT `+documentColumns+`
		FROM expense_documents
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.ExpenseDocument{}, noRow(op)
	}
	if err != nil {
		return core.ExpenseDocument{}, translate(op, err)
	}
	return d, nil
}

// amountValue stores amounts as exact decimal text.
func amountValue(a *decimal.Decimal) any {
	if a == nil {
		return nil
	}
	return a.String()
}

func scanDocument(s scanner) (core.ExpenseDocument, error) {
	var (
		d                    core.ExpenseDocument
		amount               sql.NullString
		date                 string
		createdAt, updatedAt string
	)
	err := s.Scan(&d.ID, &d.CategoryID, &d.Title, &d.Description, &d.DocumentType, &d.URL,
		&amount, &date, &createdAt, &updatedAt)
	if err != nil {
		return d, err
	}

	if amount.Valid {
		a, err := decimal.NewFromString(amount.String)
		if err != nil {
			return d, err
		}
		d.Amount = &a
	}
	if d.Date, err = core.ParseDate(date); err != nil {
		return d, err
	}
	if d.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return d, err
	}
	if d.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return d, err
	}
	return d, nil
}
