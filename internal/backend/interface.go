package backend

import (
	"context"
	"net/http"
	"time"

	"expensedocs/internal/auth"
	"expensedocs/internal/core"
)

// Ports implemented by every data backend.
type (
	CategoryStore interface {
		// ListCategories returns all categories by ascending display order.
		ListCategories(ctx context.Context) ([]core.ExpenseCategory, error)
		CreateCategory(ctx context.Context, in core.NewCategory) (core.ExpenseCategory, error)
		UpdateCategory(ctx context.Context, id string, patch core.CategoryPatch) (core.ExpenseCategory, error)
		DeleteCategory(ctx context.Context, id string) (bool, error)
	}

	DocumentStore interface {
		// ListDocuments returns documents by descending date, restricted to
		// categoryID unless it is empty.
		ListDocuments(ctx context.Context, categoryID string) ([]core.ExpenseDocument, error)
		CreateDocument(ctx context.Context, in core.NewDocument) (core.ExpenseDocument, error)
		UpdateDocument(ctx context.Context, id string, patch core.DocumentPatch) (core.ExpenseDocument, error)
		DeleteDocument(ctx context.Context, id string) (bool, error)
	}

	ProfileStore interface {
		// GetCompanyProfile returns nil, nil when no profile exists yet.
		GetCompanyProfile(ctx context.Context) (*core.CompanyProfile, error)
		UpdateCompanyProfile(ctx context.Context, id string, patch core.ProfilePatch) (core.CompanyProfile, error)
	}

	FileStore interface {
		// UploadFile stores the payload under a fresh name and returns its public URL.
		UploadFile(ctx context.Context, upload core.Upload) (string, error)
	}

	Authenticator interface {
		SignUp(ctx context.Context, email, password string) (core.AuthResponse, error)
		SignIn(ctx context.Context, email, password string) (core.AuthResponse, error)
		SignOut(ctx context.Context) error
		// Session returns the current session or nil, refreshing it first when expired.
		Session(ctx context.Context) (*core.Session, error)
		RefreshSession(ctx context.Context) (*core.Session, error)
		OnAuthStateChange(fn auth.Listener) *auth.Subscription
	}
)

// Backend represents a unified backend interface that provides all necessary operations
type Backend interface {
	CategoryStore
	DocumentStore
	ProfileStore
	FileStore
	Authenticator
}

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the backend instance and optional cleanup function
type BackendResult struct {
	Backend Backend
	Cleanup CleanupFunc
	// PublicFiles serves the bucket's public objects when the backend stores
	// them locally; nil for the remote platform.
	PublicFiles http.Handler
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend creates a backend instance based on the provided config
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	// Backend type
	Type BackendType

	// Remote platform. Not validated: a bad URL or key surfaces on first use.
	SupabaseURL     string
	SupabaseAnonKey string

	// SQLite specific
	SQLiteDBPath  string
	StorageDir    string
	PublicBaseURL string
	JWTSecret     string
	JWTExpiresIn  time.Duration
}

// BackendType represents the type of backend
type BackendType string

const (
	RemoteBackend BackendType = "remote"
	SQLiteBackend BackendType = "sqlite"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case RemoteBackend, SQLiteBackend:
		return true
	default:
		return false
	}
}
