package storage

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expensedocs/internal/core"
)

func TestUploadFile(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	upload := func(body string) string {
		u, err := repo.UploadFile(ctx, core.Upload{
			Filename:    "receipt.PDF",
			ContentType: "application/pdf",
			Content:     strings.NewReader(body),
		})
		require.NoError(t, err)
		return u
	}

	first := upload("first")
	second := upload("second")

	assert.NotEqual(t, first, second)
	assert.True(t, strings.HasPrefix(first, "http://localhost:8080"+core.PublicObjectPath))
	assert.True(t, strings.HasSuffix(first, ".pdf"))

	entries, err := os.ReadDir(repo.bucketDir)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestPutObject_NeverOverwrites(t *testing.T) {
	repo, _ := newTestRepo(t)

	require.NoError(t, repo.putObject("upload file", "fixed.txt", strings.NewReader("original")))

	err := repo.putObject("upload file", "fixed.txt", strings.NewReader("replacement"))
	require.Error(t, err)
	assert.Equal(t, "The resource already exists", err.Error())

	data, err := os.ReadFile(filepath.Join(repo.bucketDir, "fixed.txt"))
	require.NoError(t, err)
	assert.Equal(t, "original", string(data))
}

func TestFilesHandler(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepo(t)

	u, err := repo.UploadFile(ctx, core.Upload{Filename: "note.txt", Content: strings.NewReader("hello")})
	require.NoError(t, err)
	path := strings.TrimPrefix(u, "http://localhost:8080")

	handler := repo.FilesHandler()

	t.Run("serves object", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		body, _ := io.ReadAll(rec.Body)
		assert.Equal(t, "hello", string(body))
		assert.Equal(t, "max-age=60", rec.Header().Get("Cache-Control"))
	})

	t.Run("unknown object", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, core.PublicObjectPath+"missing.txt", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("no directory listing", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, core.PublicObjectPath, nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("no traversal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, core.PublicObjectPath+"..%2f..%2ftest.db", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("read only", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, nil))
		assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	})
}
