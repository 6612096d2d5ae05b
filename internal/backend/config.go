package backend

import (
	"fmt"

	"expensedocs/internal/config"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	backendType := BackendType(appConfig.DataBackend)
	if !backendType.IsValid() {
		return Config{}, fmt.Errorf("invalid backend type in config: %s", appConfig.DataBackend)
	}

	return Config{
		Type: backendType,

		SupabaseURL:     appConfig.SupabaseURL,
		SupabaseAnonKey: appConfig.SupabaseAnonKey,

		SQLiteDBPath:  appConfig.SQLiteDBPath,
		StorageDir:    appConfig.StorageDir,
		PublicBaseURL: appConfig.PublicBaseURL,
		JWTSecret:     appConfig.JWTSecret,
		JWTExpiresIn:  appConfig.JWTExpiresIn,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Type.IsValid() {
		return fmt.Errorf("invalid backend type: %s", c.Type)
	}

	switch c.Type {
	case RemoteBackend:
		// URL and key are passed through as given.

	case SQLiteBackend:
		if c.SQLiteDBPath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite backend")
		}
		if c.StorageDir == "" {
			return fmt.Errorf("storage directory is required for sqlite backend")
		}
		if c.PublicBaseURL == "" {
			return fmt.Errorf("public base URL is required for sqlite backend")
		}
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT secret is required for sqlite backend")
		}
	}

	return nil
}

// GetBackendTypes returns all valid backend types
func GetBackendTypes() []BackendType {
	return []BackendType{RemoteBackend, SQLiteBackend}
}

// GetBackendTypeStrings returns all valid backend type strings
func GetBackendTypeStrings() []string {
	types := GetBackendTypes()
	strings := make([]string, len(types))
	for i, t := range types {
		strings[i] = t.String()
	}
	return strings
}
