package core

import (
	"io"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Table and bucket names on the backend platform.
const (
	TableCategories = "expense_categories"
	TableDocuments  = "expense_documents"
	TableProfile    = "company_profile"

	DocumentsBucket = "expense-documents"

	// PublicObjectPath prefixes the public URL of every object in the bucket.
	PublicObjectPath = "/storage/v1/object/public/" + DocumentsBucket + "/"

	// DefaultDocumentType is applied when a document is created without a type.
	DefaultDocumentType = "link"
)

type (
	ExpenseCategory struct {
		ID           string    `json:"id"`
		Name         string    `json:"name"`
		Description  string    `json:"description"`
		DisplayOrder int       `json:"display_order"`
		CreatedAt    time.Time `json:"created_at"`
		UpdatedAt    time.Time `json:"updated_at"`
	}

	ExpenseDocument struct {
		ID           string           `json:"id"`
		CategoryID   string           `json:"category_id"`
		Title        string           `json:"title"`
		Description  string           `json:"description"`
		DocumentType string           `json:"document_type"`
		URL          string           `json:"url"`
		Amount       *decimal.Decimal `json:"amount"`
		Date         Date             `json:"date"`
		CreatedAt    time.Time        `json:"created_at"`
		UpdatedAt    time.Time        `json:"updated_at"`
	}

	// CompanyProfile is the single business record per tenant.
	CompanyProfile struct {
		ID            string    `json:"id"`
		FilingNumber  string    `json:"filing_number"`
		CompanyName   string    `json:"company_name"`
		Address       string    `json:"address"`
		City          string    `json:"city"`
		State         string    `json:"state"`
		ZipCode       string    `json:"zip_code"`
		Phone         string    `json:"phone"`
		Email         string    `json:"email"`
		Website       string    `json:"website"`
		FormationDate *Date     `json:"formation_date"`
		EIN           string    `json:"ein"`
		Description   string    `json:"description"`
		CreatedAt     time.Time `json:"created_at"`
		UpdatedAt     time.Time `json:"updated_at"`
	}
)

// Inputs for create and update calls. Nil pointers mean "not provided".
type (
	NewCategory struct {
		Name         string
		Description  *string
		DisplayOrder *int
	}

	CategoryPatch struct {
		Name         *string `json:"name,omitempty"`
		Description  *string `json:"description,omitempty"`
		DisplayOrder *int    `json:"display_order,omitempty"`
	}

	NewDocument struct {
		CategoryID   string
		Title        string
		URL          string
		Description  *string
		DocumentType *string
		Amount       *decimal.Decimal
		Date         *Date
	}

	DocumentPatch struct {
		CategoryID   *string          `json:"category_id,omitempty"`
		Title        *string          `json:"title,omitempty"`
		Description  *string          `json:"description,omitempty"`
		DocumentType *string          `json:"document_type,omitempty"`
		URL          *string          `json:"url,omitempty"`
		Amount       *decimal.Decimal `json:"amount,omitempty"`
		Date         *Date            `json:"date,omitempty"`

		// ClearAmount removes the stored amount. Ignored when Amount is set.
		ClearAmount bool `json:"-"`
	}

	ProfilePatch struct {
		FilingNumber  *string `json:"filing_number,omitempty"`
		CompanyName   *string `json:"company_name,omitempty"`
		Address       *string `json:"address,omitempty"`
		City          *string `json:"city,omitempty"`
		State         *string `json:"state,omitempty"`
		ZipCode       *string `json:"zip_code,omitempty"`
		Phone         *string `json:"phone,omitempty"`
		Email         *string `json:"email,omitempty"`
		Website       *string `json:"website,omitempty"`
		FormationDate *Date   `json:"formation_date,omitempty"`
		EIN           *string `json:"ein,omitempty"`
		Description   *string `json:"description,omitempty"`
	}

	// Upload is a binary payload destined for the documents bucket.
	Upload struct {
		Filename    string
		ContentType string
		Content     io.Reader
	}
)

// CategoryRow is the insert payload for a category after defaults are applied.
type CategoryRow struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	DisplayOrder int    `json:"display_order"`
}

// Row applies the create defaults: empty description and display order 0.
func (c NewCategory) Row() CategoryRow {
	row := CategoryRow{Name: c.Name}
	if c.Description != nil {
		row.Description = *c.Description
	}
	if c.DisplayOrder != nil {
		row.DisplayOrder = *c.DisplayOrder
	}
	return row
}

// DocumentRow is the insert payload for a document after defaults are applied.
type DocumentRow struct {
	CategoryID   string           `json:"category_id"`
	Title        string           `json:"title"`
	Description  string           `json:"description"`
	DocumentType string           `json:"document_type"`
	URL          string           `json:"url"`
	Amount       *decimal.Decimal `json:"amount"`
	Date         Date             `json:"date"`
}

// Row applies the create defaults relative to now: document type "link",
// empty description, no amount and today's date.
func (d NewDocument) Row(now time.Time) DocumentRow {
	row := DocumentRow{
		CategoryID:   d.CategoryID,
		Title:        d.Title,
		URL:          d.URL,
		DocumentType: DefaultDocumentType,
		Amount:       d.Amount,
		Date:         Today(now),
	}
	if d.Description != nil {
		row.Description = *d.Description
	}
	if d.DocumentType != nil && strings.TrimSpace(*d.DocumentType) != "" {
		row.DocumentType = *d.DocumentType
	}
	if d.Date != nil && !d.Date.IsZero() {
		row.Date = *d.Date
	}
	return row
}

// Ptr returns a pointer to v. Handy for building patches.
func Ptr[T any](v T) *T {
	return &v
}
