package backend

import (
	"context"
	"fmt"
	"log/slog"

	"expensedocs/internal/auth"
	"expensedocs/internal/storage"
	"expensedocs/internal/supabase"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *slog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *slog.Logger) Factory {
	if logger == nil {
		logger = slog.Default()
	}
	return &DefaultFactory{
		logger: logger,
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	switch config.Type {
	case RemoteBackend:
		return f.createRemoteBackend(config)
	case SQLiteBackend:
		return f.createSQLiteBackend(config)
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", config.Type)
	}
}

func (f *DefaultFactory) createRemoteBackend(config Config) (*BackendResult, error) {
	client := supabase.New(config.SupabaseURL, config.SupabaseAnonKey)

	f.logger.Info("Initialized remote backend", "url", config.SupabaseURL)

	return &BackendResult{
		Backend: client,
		Cleanup: client.Close,
	}, nil
}

func (f *DefaultFactory) createSQLiteBackend(config Config) (*BackendResult, error) {
	repo, err := storage.NewSQLiteRepository(storage.Options{
		DBPath:        config.SQLiteDBPath,
		FilesDir:      config.StorageDir,
		PublicBaseURL: config.PublicBaseURL,
		Tokens:        auth.NewTokenService(config.JWTSecret, config.JWTExpiresIn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}

	f.logger.Info("Initialized SQLite backend",
		"db_path", config.SQLiteDBPath,
		"storage_dir", config.StorageDir)

	return &BackendResult{
		Backend:     repo,
		Cleanup:     repo.Close,
		PublicFiles: repo.FilesHandler(),
	}, nil
}
