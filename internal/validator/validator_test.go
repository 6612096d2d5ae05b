package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Title string `validate:"required,notblank"`
	Date  string `validate:"omitempty,isodate"`
	Email string `validate:"omitempty,email"`
}

func TestStruct(t *testing.T) {
	tests := []struct {
		name    string
		in      sample
		wantErr string
	}{
		{name: "valid", in: sample{Title: "Hotel", Date: "2024-03-01", Email: "a@b.co"}},
		{name: "optional fields empty", in: sample{Title: "Hotel"}},
		{name: "missing title", in: sample{}, wantErr: "invalid input: Title is required"},
		{name: "blank title", in: sample{Title: "   "}, wantErr: "invalid input: Title must not be blank"},
		{name: "bad date", in: sample{Title: "x", Date: "03/01/2024"}, wantErr: "invalid input: Date must be in YYYY-MM-DD format"},
		{name: "bad email", in: sample{Title: "x", Email: "nope"}, wantErr: "invalid input: Email must be a valid email address"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Struct(tt.in)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestStruct_JoinsMultipleErrors(t *testing.T) {
	err := Struct(sample{Date: "bad"})
	require.Error(t, err)
	assert.Equal(t, "invalid input: Title is required; Date must be in YYYY-MM-DD format", err.Error())
}

func TestStruct_NumberAndLength(t *testing.T) {
	type form struct {
		Order  string `validate:"omitempty,number"`
		Amount string `validate:"omitempty,numeric"`
		Name   string `validate:"max=3"`
	}

	assert.NoError(t, Struct(form{Order: "12", Amount: "-3.50", Name: "abc"}))

	err := Struct(form{Order: "1.5", Amount: "ten", Name: "abcd"})
	require.Error(t, err)
	assert.Equal(t, "invalid input: Order must be a whole number; Amount must be a number; Name must be at most 3 characters", err.Error())
}
