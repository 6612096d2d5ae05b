package http

import (
	"errors"
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"expensedocs/internal/core"
	"expensedocs/internal/validator"
)

// formValues reads sanitized fields from a parsed form. Keys missing from
// the form become nil so that patches leave those columns untouched.
type formValues struct {
	url.Values
}

func (f formValues) text(key string) string {
	return sanitizeInput(f.Get(key))
}

func (f formValues) optional(key string) *string {
	if !f.Has(key) {
		return nil
	}
	v := f.text(key)
	return &v
}

// sanitizeInput drops control characters except tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

type categoryInput struct {
	Name         string `validate:"required,notblank,max=200"`
	Description  string `validate:"max=2000"`
	DisplayOrder string `validate:"omitempty,numeric"`
}

// readNewCategory keeps the defaults for fields the form left out.
func readNewCategory(f formValues) (core.NewCategory, error) {
	in := categoryInput{
		Name:         f.text("name"),
		Description:  f.text("description"),
		DisplayOrder: f.text("display_order"),
	}
	if err := validator.Struct(in); err != nil {
		return core.NewCategory{}, err
	}
	order, err := parseDisplayOrder(in.DisplayOrder)
	if err != nil {
		return core.NewCategory{}, err
	}
	return core.NewCategory{
		Name:         in.Name,
		Description:  f.optional("description"),
		DisplayOrder: order,
	}, nil
}

// categoryPatchInput checks only the fields present in the form.
type categoryPatchInput struct {
	Name         *string `validate:"omitnil,notblank,max=200"`
	Description  *string `validate:"omitnil,max=2000"`
	DisplayOrder string  `validate:"omitempty,numeric"`
}

func readCategoryPatch(f formValues) (core.CategoryPatch, error) {
	in := categoryPatchInput{
		Name:         f.optional("name"),
		Description:  f.optional("description"),
		DisplayOrder: f.text("display_order"),
	}
	if err := validator.Struct(in); err != nil {
		return core.CategoryPatch{}, err
	}
	order, err := parseDisplayOrder(in.DisplayOrder)
	if err != nil {
		return core.CategoryPatch{}, err
	}
	return core.CategoryPatch{
		Name:         in.Name,
		Description:  in.Description,
		DisplayOrder: order,
	}, nil
}

// parseDisplayOrder returns nil for an empty field. Fractions and values
// outside the int range are rejected rather than dropped.
func parseDisplayOrder(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, errors.New("invalid input: DisplayOrder must be a whole number")
	}
	return &n, nil
}

type documentInput struct {
	CategoryID   string `validate:"required,notblank"`
	Title        string `validate:"required,notblank,max=300"`
	URL          string `validate:"omitempty,url"`
	Description  string `validate:"max=2000"`
	DocumentType string `validate:"max=50"`
	Amount       string `validate:"omitempty,numeric"`
	Date         string `validate:"omitempty,isodate"`
}

func readDocument(f formValues) (documentInput, error) {
	in := documentInput{
		CategoryID:   f.text("category_id"),
		Title:        f.text("title"),
		URL:          f.text("url"),
		Description:  f.text("description"),
		DocumentType: f.text("document_type"),
		Amount:       f.text("amount"),
		Date:         f.text("date"),
	}
	return in, validator.Struct(in)
}

func (in documentInput) newDocument(f formValues) core.NewDocument {
	return core.NewDocument{
		CategoryID:   in.CategoryID,
		Title:        in.Title,
		URL:          in.URL,
		Description:  f.optional("description"),
		DocumentType: f.optional("document_type"),
		Amount:       parseAmount(in.Amount),
		Date:         parseDate(in.Date),
	}
}

// documentPatchInput checks only the fields present in the form.
type documentPatchInput struct {
	CategoryID   *string `validate:"omitnil,notblank"`
	Title        *string `validate:"omitnil,notblank,max=300"`
	URL          string  `validate:"omitempty,url"`
	Description  *string `validate:"omitnil,max=2000"`
	DocumentType string  `validate:"max=50"`
	Amount       string  `validate:"omitempty,numeric"`
	Date         string  `validate:"omitempty,isodate"`
}

// readDocumentPatch leaves url, type and date untouched when their fields
// are empty. An empty amount field clears the amount.
func readDocumentPatch(f formValues) (core.DocumentPatch, error) {
	in := documentPatchInput{
		CategoryID:   f.optional("category_id"),
		Title:        f.optional("title"),
		URL:          f.text("url"),
		Description:  f.optional("description"),
		DocumentType: f.text("document_type"),
		Amount:       f.text("amount"),
		Date:         f.text("date"),
	}
	if err := validator.Struct(in); err != nil {
		return core.DocumentPatch{}, err
	}

	patch := core.DocumentPatch{
		CategoryID:   in.CategoryID,
		Title:        in.Title,
		URL:          nonEmpty(in.URL),
		Description:  in.Description,
		DocumentType: nonEmpty(in.DocumentType),
		Date:         parseDate(in.Date),
	}
	if f.Has("amount") {
		patch.Amount = parseAmount(in.Amount)
		patch.ClearAmount = patch.Amount == nil
	}
	return patch, nil
}

// parseAmount is nil for an empty field; a zero is kept as zero.
func parseAmount(s string) *decimal.Decimal {
	if s == "" {
		return nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	return &d
}

func parseDate(s string) *core.Date {
	if s == "" {
		return nil
	}
	d, err := core.ParseDate(s)
	if err != nil {
		return nil
	}
	return &d
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

type profileInput struct {
	FilingNumber  string `validate:"max=100"`
	CompanyName   string `validate:"max=200"`
	Address       string `validate:"max=500"`
	City          string `validate:"max=200"`
	State         string `validate:"max=100"`
	ZipCode       string `validate:"max=20"`
	Phone         string `validate:"max=50"`
	Email         string `validate:"omitempty,email"`
	Website       string `validate:"omitempty,url"`
	FormationDate string `validate:"omitempty,isodate"`
	EIN           string `validate:"max=20"`
	Description   string `validate:"max=2000"`
}

func readProfile(f formValues) (profileInput, error) {
	in := profileInput{
		FilingNumber:  f.text("filing_number"),
		CompanyName:   f.text("company_name"),
		Address:       f.text("address"),
		City:          f.text("city"),
		State:         f.text("state"),
		ZipCode:       f.text("zip_code"),
		Phone:         f.text("phone"),
		Email:         f.text("email"),
		Website:       f.text("website"),
		FormationDate: f.text("formation_date"),
		EIN:           f.text("ein"),
		Description:   f.text("description"),
	}
	return in, validator.Struct(in)
}

// patch clears the formation date when its field is present but empty.
func (in profileInput) patch(f formValues) core.ProfilePatch {
	p := core.ProfilePatch{
		FilingNumber: f.optional("filing_number"),
		CompanyName:  f.optional("company_name"),
		Address:      f.optional("address"),
		City:         f.optional("city"),
		State:        f.optional("state"),
		ZipCode:      f.optional("zip_code"),
		Phone:        f.optional("phone"),
		Email:        f.optional("email"),
		Website:      f.optional("website"),
		EIN:          f.optional("ein"),
		Description:  f.optional("description"),
	}
	if f.Has("formation_date") {
		p.FormationDate = &core.Date{}
		if in.FormationDate != "" {
			if d, err := core.ParseDate(in.FormationDate); err == nil {
				p.FormationDate = &d
			}
		}
	}
	return p
}

type signUpInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=6"`
}

type signInInput struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}
