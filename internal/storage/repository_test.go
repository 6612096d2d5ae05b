package storage

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensedocs/internal/auth"
	"expensedocs/internal/core"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestRepo(t *testing.T) (*SQLiteRepository, *testClock) {
	t.Helper()
	dir := t.TempDir()
	repo, err := NewSQLiteRepository(Options{
		DBPath:        filepath.Join(dir, "test.db"),
		FilesDir:      filepath.Join(dir, "files"),
		PublicBaseURL: "http://localhost:8080/",
		Tokens:        auth.NewTokenService("test-secret-value-123", time.Hour),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	clock := &testClock{now: time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)}
	repo.now = clock.Now
	return repo, clock
}

func TestNewSQLiteRepository_RequiresTokens(t *testing.T) {
	_, err := NewSQLiteRepository(Options{DBPath: filepath.Join(t.TempDir(), "x.db")})
	assert.Error(t, err)
}

func TestCategories(t *testing.T) {
	ctx := context.Background()

	t.Run("create applies defaults", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		cat, err := repo.CreateCategory(ctx, core.NewCategory{Name: "Travel"})
		require.NoError(t, err)
		assert.NotEmpty(t, cat.ID)
		assert.Equal(t, "Travel", cat.Name)
		assert.Equal(t, "", cat.Description)
		assert.Equal(t, 0, cat.DisplayOrder)
		assert.False(t, cat.CreatedAt.IsZero())
		assert.Equal(t, cat.CreatedAt, cat.UpdatedAt)
	})

	t.Run("list is ordered by display order", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		for _, order := range []int{3, 1, 2, 0} {
			_, err := repo.CreateCategory(ctx, core.NewCategory{Name: "c", DisplayOrder: core.Ptr(order)})
			require.NoError(t, err)
		}

		cats, err := repo.ListCategories(ctx)
		require.NoError(t, err)
		require.Len(t, cats, 4)
		for i := 1; i < len(cats); i++ {
			assert.LessOrEqual(t, cats[i-1].DisplayOrder, cats[i].DisplayOrder)
		}
	})

	t.Run("empty list is not nil", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		cats, err := repo.ListCategories(ctx)
		require.NoError(t, err)
		assert.NotNil(t, cats)
		assert.Empty(t, cats)
	})

	t.Run("update changes only given fields", func(t *testing.T) {
		repo, clock := newTestRepo(t)

		created, err := repo.CreateCategory(ctx, core.NewCategory{
			Name:         "Office",
			Description:  core.Ptr("desks and chairs"),
			DisplayOrder: core.Ptr(4),
		})
		require.NoError(t, err)

		clock.Advance(time.Minute)
		updated, err := repo.UpdateCategory(ctx, created.ID, core.CategoryPatch{Name: core.Ptr("Workspace")})
		require.NoError(t, err)

		assert.Equal(t, "Workspace", updated.Name)
		assert.Equal(t, created.Description, updated.Description)
		assert.Equal(t, created.DisplayOrder, updated.DisplayOrder)
		assert.Equal(t, created.CreatedAt, updated.CreatedAt)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("empty patch still refreshes updated_at", func(t *testing.T) {
		repo, clock := newTestRepo(t)

		created, err := repo.CreateCategory(ctx, core.NewCategory{Name: "Office"})
		require.NoError(t, err)

		clock.Advance(time.Second)
		updated, err := repo.UpdateCategory(ctx, created.ID, core.CategoryPatch{})
		require.NoError(t, err)
		assert.Equal(t, created.Name, updated.Name)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("update of unknown id", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		_, err := repo.UpdateCategory(ctx, "missing", core.CategoryPatch{Name: core.Ptr("x")})
		require.Error(t, err)
		be, ok := core.AsBackendError(err)
		require.True(t, ok)
		assert.Equal(t, "update category", be.Op)
	})

	t.Run("delete removes from list", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		keep, err := repo.CreateCategory(ctx, core.NewCategory{Name: "keep"})
		require.NoError(t, err)
		drop, err := repo.CreateCategory(ctx, core.NewCategory{Name: "drop"})
		require.NoError(t, err)

		ok, err := repo.DeleteCategory(ctx, drop.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		cats, err := repo.ListCategories(ctx)
		require.NoError(t, err)
		require.Len(t, cats, 1)
		assert.Equal(t, keep.ID, cats[0].ID)
	})

	t.Run("delete of absent id succeeds", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		ok, err := repo.DeleteCategory(ctx, "missing")
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestCategories_SameOrderTiesBreakOnCreationTime(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepo(t)

	first, err := repo.CreateCategory(ctx, core.NewCategory{Name: "first"})
	require.NoError(t, err)
	clock.Advance(100 * time.Millisecond)
	second, err := repo.CreateCategory(ctx, core.NewCategory{Name: "second"})
	require.NoError(t, err)

	categories, err := repo.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, categories, 2)
	assert.Equal(t, first.ID, categories[0].ID)
	assert.Equal(t, second.ID, categories[1].ID)
}

func TestDocuments(t *testing.T) {
	ctx := context.Background()

	newCategory := func(t *testing.T, repo *SQLiteRepository, name string) core.ExpenseCategory {
		t.Helper()
		cat, err := repo.CreateCategory(ctx, core.NewCategory{Name: name})
		require.NoError(t, err)
		return cat
	}

	t.Run("create applies defaults", func(t *testing.T) {
		repo, clock := newTestRepo(t)
		cat := newCategory(t, repo, "Travel")

		doc, err := repo.CreateDocument(ctx, core.NewDocument{CategoryID: cat.ID, Title: "Hotel", URL: "https://example.com/h"})
		require.NoError(t, err)
		assert.Equal(t, core.DefaultDocumentType, doc.DocumentType)
		assert.Equal(t, core.Today(clock.Now()), doc.Date)
		assert.Nil(t, doc.Amount)
		assert.Equal(t, "", doc.Description)
	})

	t.Run("create keeps explicit values", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		cat := newCategory(t, repo, "Travel")

		amount := decimal.RequireFromString("1234.56")
		doc, err := repo.CreateDocument(ctx, core.NewDocument{
			CategoryID:   cat.ID,
			Title:        "Flight",
			URL:          "https://example.com/f",
			Description:  core.Ptr("round trip"),
			DocumentType: core.Ptr("receipt"),
			Amount:       &amount,
			Date:         core.Ptr(core.NewDate(2024, 1, 20)),
		})
		require.NoError(t, err)
		assert.Equal(t, "receipt", doc.DocumentType)
		assert.Equal(t, "round trip", doc.Description)
		require.NotNil(t, doc.Amount)
		assert.True(t, amount.Equal(*doc.Amount))
		assert.Equal(t, "2024-01-20", doc.Date.String())
	})

	t.Run("zero amount is kept", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		cat := newCategory(t, repo, "Travel")

		zero := decimal.Zero
		doc, err := repo.CreateDocument(ctx, core.NewDocument{CategoryID: cat.ID, Title: "Free", URL: "u", Amount: &zero})
		require.NoError(t, err)
		require.NotNil(t, doc.Amount)
		assert.True(t, doc.Amount.IsZero())
	})

	t.Run("unknown category is rejected", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		_, err := repo.CreateDocument(ctx, core.NewDocument{CategoryID: "missing", Title: "x", URL: "u"})
		require.Error(t, err)
		be, ok := core.AsBackendError(err)
		require.True(t, ok)
		assert.Equal(t, 409, be.Status)
	})

	t.Run("list ordering and filter", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		travel := newCategory(t, repo, "Travel")
		office := newCategory(t, repo, "Office")

		dates := []core.Date{core.NewDate(2024, 1, 5), core.NewDate(2024, 3, 1), core.NewDate(2023, 12, 31)}
		for i, d := range dates {
			catID := travel.ID
			if i%2 == 1 {
				catID = office.ID
			}
			_, err := repo.CreateDocument(ctx, core.NewDocument{CategoryID: catID, Title: "doc", URL: "u", Date: core.Ptr(d)})
			require.NoError(t, err)
		}

		all, err := repo.ListDocuments(ctx, "")
		require.NoError(t, err)
		require.Len(t, all, 3)
		for i := 1; i < len(all); i++ {
			assert.False(t, all[i].Date.After(all[i-1].Date.Time), "dates must not increase")
		}

		filtered, err := repo.ListDocuments(ctx, travel.ID)
		require.NoError(t, err)
		require.Len(t, filtered, 2)
		for _, d := range filtered {
			assert.Equal(t, travel.ID, d.CategoryID)
		}
	})

	t.Run("update changes only given fields", func(t *testing.T) {
		repo, clock := newTestRepo(t)
		travel := newCategory(t, repo, "Travel")
		office := newCategory(t, repo, "Office")

		created, err := repo.CreateDocument(ctx, core.NewDocument{
			CategoryID:   travel.ID,
			Title:        "Hotel",
			URL:          "https://example.com/h",
			DocumentType: core.Ptr("invoice"),
		})
		require.NoError(t, err)

		clock.Advance(time.Minute)
		amount := decimal.RequireFromString("99.90")
		updated, err := repo.UpdateDocument(ctx, created.ID, core.DocumentPatch{
			CategoryID: core.Ptr(office.ID),
			Amount:     &amount,
		})
		require.NoError(t, err)

		assert.Equal(t, office.ID, updated.CategoryID)
		require.NotNil(t, updated.Amount)
		assert.Equal(t, "99.9", updated.Amount.String())
		assert.Equal(t, created.Title, updated.Title)
		assert.Equal(t, created.URL, updated.URL)
		assert.Equal(t, created.DocumentType, updated.DocumentType)
		assert.Equal(t, created.Date, updated.Date)
		assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))
	})

	t.Run("update can clear the amount", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		cat := newCategory(t, repo, "Travel")

		amount := decimal.RequireFromString("45.00")
		created, err := repo.CreateDocument(ctx, core.NewDocument{CategoryID: cat.ID, Title: "Taxi", URL: "u", Amount: &amount})
		require.NoError(t, err)
		require.NotNil(t, created.Amount)

		updated, err := repo.UpdateDocument(ctx, created.ID, core.DocumentPatch{ClearAmount: true})
		require.NoError(t, err)
		assert.Nil(t, updated.Amount)
		assert.Equal(t, "Taxi", updated.Title)
	})

	t.Run("same date ties break on creation time", func(t *testing.T) {
		repo, clock := newTestRepo(t)
		cat := newCategory(t, repo, "Travel")
		day := core.Ptr(core.NewDate(2024, 3, 1))

		first, err := repo.CreateDocument(ctx, core.NewDocument{CategoryID: cat.ID, Title: "first", URL: "u", Date: day})
		require.NoError(t, err)
		clock.Advance(100 * time.Millisecond)
		second, err := repo.CreateDocument(ctx, core.NewDocument{CategoryID: cat.ID, Title: "second", URL: "u", Date: day})
		require.NoError(t, err)

		docs, err := repo.ListDocuments(ctx, "")
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, second.ID, docs[0].ID)
		assert.Equal(t, first.ID, docs[1].ID)
	})

	t.Run("delete removes from list", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		cat := newCategory(t, repo, "Travel")

		doc, err := repo.CreateDocument(ctx, core.NewDocument{CategoryID: cat.ID, Title: "x", URL: "u"})
		require.NoError(t, err)

		ok, err := repo.DeleteDocument(ctx, doc.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		docs, err := repo.ListDocuments(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})

	t.Run("deleting a category cascades", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		cat := newCategory(t, repo, "Travel")

		_, err := repo.CreateDocument(ctx, core.NewDocument{CategoryID: cat.ID, Title: "x", URL: "u"})
		require.NoError(t, err)

		_, err = repo.DeleteCategory(ctx, cat.ID)
		require.NoError(t, err)

		docs, err := repo.ListDocuments(ctx, "")
		require.NoError(t, err)
		assert.Empty(t, docs)
	})
}

func TestCompanyProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("seeded empty profile", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		profile, err := repo.GetCompanyProfile(ctx)
		require.NoError(t, err)
		require.NotNil(t, profile)
		assert.NotEmpty(t, profile.ID)
		assert.Equal(t, "", profile.CompanyName)
		assert.Nil(t, profile.FormationDate)
	})

	t.Run("absent profile is nil without error", func(t *testing.T) {
		repo, _ := newTestRepo(t)
		_, err := repo.db.ExecContext(ctx, `DELETE FROM company_profile`)
		require.NoError(t, err)

		profile, err := repo.GetCompanyProfile(ctx)
		require.NoError(t, err)
		assert.Nil(t, profile)
	})

	t.Run("update changes only given fields", func(t *testing.T) {
		repo, clock := newTestRepo(t)
		profile, err := repo.GetCompanyProfile(ctx)
		require.NoError(t, err)
		require.NotNil(t, profile)

		first, err := repo.UpdateCompanyProfile(ctx, profile.ID, core.ProfilePatch{
			CompanyName: core.Ptr("Acme LLC"),
			City:        core.Ptr("Austin"),
		})
		require.NoError(t, err)

		clock.Advance(time.Minute)
		second, err := repo.UpdateCompanyProfile(ctx, profile.ID, core.ProfilePatch{
			EIN:           core.Ptr("12-3456789"),
			FormationDate: core.Ptr(core.NewDate(2020, 5, 1)),
		})
		require.NoError(t, err)

		assert.Equal(t, "Acme LLC", second.CompanyName)
		assert.Equal(t, "Austin", second.City)
		assert.Equal(t, "12-3456789", second.EIN)
		require.NotNil(t, second.FormationDate)
		assert.Equal(t, "2020-05-01", second.FormationDate.String())
		assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	})

	t.Run("update of unknown id", func(t *testing.T) {
		repo, _ := newTestRepo(t)

		_, err := repo.UpdateCompanyProfile(ctx, "missing", core.ProfilePatch{CompanyName: core.Ptr("x")})
		assert.Error(t, err)
	})
}
