package http

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensedocs/internal/core"
)

func TestSanitizeInput(t *testing.T) {
	assert.Equal(t, "Hotel\tinvoice", sanitizeInput("  Hotel\tinvoice\x00\x07 "))
	assert.Equal(t, "line one\nline two", sanitizeInput("line one\nline two"))
}

func TestReadNewCategory_MissingFieldsStayNil(t *testing.T) {
	created, err := readNewCategory(formValues{url.Values{"name": {" Travel "}}})
	require.NoError(t, err)
	assert.Equal(t, "Travel", created.Name)
	assert.Nil(t, created.Description)
	assert.Nil(t, created.DisplayOrder)
}

func TestReadCategoryPatch(t *testing.T) {
	tests := []struct {
		name      string
		form      url.Values
		wantName  *string
		wantOrder *int
		wantErr   string
	}{
		{name: "order only", form: url.Values{"display_order": {"5"}}, wantOrder: core.Ptr(5)},
		{name: "negative order", form: url.Values{"display_order": {"-2"}}, wantOrder: core.Ptr(-2)},
		{name: "name only", form: url.Values{"name": {"Lodging"}}, wantName: core.Ptr("Lodging")},
		{name: "empty order is untouched", form: url.Values{"display_order": {""}}},
		{name: "blank name", form: url.Values{"name": {"  "}}, wantErr: "Name must not be blank"},
		{name: "fractional order", form: url.Values{"display_order": {"1.5"}}, wantErr: "DisplayOrder must be a whole number"},
		{name: "overflowing order", form: url.Values{"display_order": {"99999999999999999999"}}, wantErr: "DisplayOrder must be a whole number"},
		{name: "not a number", form: url.Values{"display_order": {"first"}}, wantErr: "DisplayOrder must be a number"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patch, err := readCategoryPatch(formValues{tt.form})
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantName, patch.Name)
			assert.Equal(t, tt.wantOrder, patch.DisplayOrder)
			assert.Nil(t, patch.Description)
		})
	}
}

func TestReadDocumentPatch(t *testing.T) {
	t.Run("empty fields", func(t *testing.T) {
		patch, err := readDocumentPatch(formValues{url.Values{
			"category_id":   {"cat-1"},
			"title":         {"Taxi"},
			"url":           {""},
			"document_type": {""},
			"description":   {""},
			"amount":        {""},
			"date":          {"2024-02-01"},
		}})
		require.NoError(t, err)
		assert.Nil(t, patch.URL, "an empty url keeps the stored one")
		assert.Nil(t, patch.DocumentType)
		assert.Nil(t, patch.Amount)
		assert.True(t, patch.ClearAmount, "an empty amount clears it")
		require.NotNil(t, patch.Description)
		assert.Empty(t, *patch.Description, "an empty description clears it")
		require.NotNil(t, patch.Date)
		assert.Equal(t, "2024-02-01", patch.Date.String())
	})

	t.Run("title only", func(t *testing.T) {
		patch, err := readDocumentPatch(formValues{url.Values{"title": {"Renamed"}}})
		require.NoError(t, err)
		require.NotNil(t, patch.Title)
		assert.Equal(t, "Renamed", *patch.Title)
		assert.Nil(t, patch.CategoryID)
		assert.Nil(t, patch.Amount)
		assert.False(t, patch.ClearAmount, "a missing amount is untouched")
	})

	t.Run("present fields are still checked", func(t *testing.T) {
		_, err := readDocumentPatch(formValues{url.Values{"category_id": {" "}, "amount": {"abc"}}})
		require.Error(t, err)
		assert.Equal(t, "invalid input: CategoryID must not be blank; Amount must be a number", err.Error())
	})
}

func TestDocumentInput_Validation(t *testing.T) {
	f := formValues{url.Values{
		"category_id": {"cat-1"},
		"title":       {"Taxi"},
		"url":         {"not a url"},
		"amount":      {"12,50"},
		"date":        {"01/02/2024"},
	}}
	_, err := readDocument(f)
	require.Error(t, err)
	assert.Equal(t,
		"invalid input: URL must be a valid URL; Amount must be a number; Date must be in YYYY-MM-DD format",
		err.Error())
}

func TestProfileInput_ClearsFormationDate(t *testing.T) {
	f := formValues{url.Values{"formation_date": {""}, "city": {"Austin"}}}
	in, err := readProfile(f)
	require.NoError(t, err)

	patch := in.patch(f)
	require.NotNil(t, patch.FormationDate)
	assert.True(t, patch.FormationDate.IsZero())
	require.NotNil(t, patch.City)
	assert.Equal(t, "Austin", *patch.City)
	assert.Nil(t, patch.CompanyName)
}
