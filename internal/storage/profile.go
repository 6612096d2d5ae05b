package storage

import (
	"context"
	"database/sql"
	"errors"

	"expensedocs/internal/core"
)

const profileColumns = `id, filing_number, company_name, address, city, state, zip_code, phone, email,
	website, formation_date, ein, description, created_at, updated_at`

// GetCompanyProfile returns the oldest profile row, or nil, nil when there is none.
func (r *SQLiteRepository) GetCompanyProfile(ctx context.Context) (*core.CompanyProfile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM company_profile
		ORDER BY created_at ASC
		LIMIT 1
	`))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, translate("get company profile", err)
	}
	return &p, nil
}

func (r *SQLiteRepository) UpdateCompanyProfile(ctx context.Context, id string, patch core.ProfilePatch) (core.CompanyProfile, error) {
	const op = "update company profile"
	set := newAssignments()
	setIf(set, "filing_number", patch.FilingNumber)
	setIf(set, "company_name", patch.CompanyName)
	setIf(set, "address", patch.Address)
	setIf(set, "city", patch.City)
	setIf(set, "state", patch.State)
	setIf(set, "zip_code", patch.ZipCode)
	setIf(set, "phone", patch.Phone)
	setIf(set, "email", patch.Email)
	setIf(set, "website", patch.Website)
	if patch.FormationDate != nil {
		set.set("formation_date", dateValue(patch.FormationDate))
	}
	setIf(set, "ein", patch.EIN)
	setIf(set, "description", patch.Description)

	if err := r.updateRow(ctx, op, "company_profile", id, set); err != nil {
		return core.CompanyProfile{}, err
	}

	p, err := scanProfile(r.db.QueryRowContext(ctx, `
		SELECT `+profileColumns+`
		FROM company_profile
		WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return core.CompanyProfile{}, noRow(op)
	}
	if err != nil {
		return core.CompanyProfile{}, translate(op, err)
	}
	return p, nil
}

// dateValue maps a zero date to NULL.
func dateValue(d *core.Date) any {
	if d == nil || d.IsZero() {
		return nil
	}
	return d.String()
}

func scanProfile(s scanner) (core.CompanyProfile, error) {
	var (
		p                    core.CompanyProfile
		formationDate        sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&p.ID, &p.FilingNumber, &p.CompanyName, &p.Address, &p.City, &p.State, &p.ZipCode,
		&p.Phone, &p.Email, &p.Website, &formationDate, &p.EIN, &p.Description, &createdAt, &updatedAt)
	if err != nil {
		return p, err
	}

	if formationDate.Valid && formationDate.String != "" {
		d, err := core.ParseDate(formationDate.String)
		if err != nil {
			return p, err
		}
		p.FormationDate = &d
	}
	if p.CreatedAt, err = parseTimestamp(createdAt); err != nil {
		return p, err
	}
	if p.UpdatedAt, err = parseTimestamp(updatedAt); err != nil {
		return p, err
	}
	return p, nil
}
