// Package storage is the local backend: tables in SQLite, the documents
// bucket in a directory, and auth with locally issued tokens.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"expensedocs/internal/auth"
	"expensedocs/internal/core"

	_ "modernc.org/sqlite"
)

// timestampLayout is fixed width so stored timestamps order correctly as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Options configures NewSQLiteRepository.
type Options struct {
	DBPath string
	// FilesDir holds one subdirectory per bucket.
	FilesDir string
	// PublicBaseURL is prepended to public object paths.
	PublicBaseURL string
	Tokens        *auth.TokenService
}

type SQLiteRepository struct {
	db            *sql.DB
	bucketDir     string
	publicBaseURL string
	tokens        *auth.TokenService
	state         *auth.State
	now           func() time.Time
}

// queryable is satisfied by *sql.DB and *sql.Tx.
type queryable interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func NewSQLiteRepository(opts Options) (*SQLiteRepository, error) {
	if opts.Tokens == nil {
		return nil, errors.New("token service is required")
	}
	if err := os.MkdirAll(filepath.Dir(opts.DBPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	bucketDir := filepath.Join(opts.FilesDir, core.DocumentsBucket)
	if err := os.MkdirAll(bucketDir, 0755); err != nil {
		return nil, fmt.Errorf("create bucket directory: %w", err)
	}

	db, err := sql.Open("sqlite", dsn(opts.DBPath))
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	// Run migrations
	if err := RunMigrations(opts.DBPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	repo := &SQLiteRepository{
		db:            db,
		bucketDir:     bucketDir,
		publicBaseURL: strings.TrimRight(opts.PublicBaseURL, "/"),
		tokens:        opts.Tokens,
		state:         auth.NewState(),
		now:           time.Now,
	}

	return repo, nil
}

// dsn enables foreign keys on every pooled connection.
func dsn(path string) string {
	return "file:" + path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

func (r *SQLiteRepository) Close() error {
	r.state.Close()
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// FilesHandler serves public objects of the documents bucket.
func (r *SQLiteRepository) FilesHandler() http.Handler {
	return http.StripPrefix(core.PublicObjectPath, http.HandlerFunc(r.serveObject))
}

func (r *SQLiteRepository) timestamp() string {
	return r.now().UTC().Format(timestampLayout)
}

// parseTimestamp also reads the shorter fractions written by SQLite itself.
func parseTimestamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// noRow is what the hosted REST API answers when a single-row update matches nothing.
func noRow(op string) error {
	return core.NewBackendError(op, http.StatusNotAcceptable, "JSON object requested, multiple (or no) rows returned")
}

// translate turns driver errors into backend errors worded like the hosted platform's.
func translate(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := core.AsBackendError(err); ok {
		return err
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "FOREIGN KEY constraint failed"):
		return core.NewBackendError(op, http.StatusConflict, "insert or update on table violates foreign key constraint")
	case strings.Contains(msg, "UNIQUE constraint failed"):
		return core.NewBackendError(op, http.StatusConflict, "duplicate key value violates unique constraint")
	}
	return core.NewBackendError(op, http.StatusInternalServerError, msg)
}
