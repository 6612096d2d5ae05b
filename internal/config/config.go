package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultJWTSecret = "local-development-secret-change-me"

type Config struct {
	// HTTP Server. Host defaults to loopback: the server holds one backend
	// session for whoever signs in.
	Host string
	Port string

	// Logging
	LogLevel  string
	LogFormat string

	// Backend selection
	DataBackend string

	// Remote platform
	SupabaseURL     string
	SupabaseAnonKey string

	// Local backend
	SQLiteDBPath  string
	StorageDir    string
	PublicBaseURL string
	JWTSecret     string
	JWTExpiresIn  time.Duration

	// AMQP event feed (optional)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		Host: getEnv("HOST", "127.0.0.1"),
		Port: port,

		LogLevel:  strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat: strings.ToLower(getEnv("LOG_FORMAT", "text")),

		DataBackend: getEnv("DATA_BACKEND", "remote"),

		SupabaseURL:     getEnv("SUPABASE_URL", os.Getenv("VITE_SUPABASE_URL")),
		SupabaseAnonKey: getEnv("SUPABASE_ANON_KEY", os.Getenv("VITE_SUPABASE_ANON_KEY")),

		SQLiteDBPath:  getEnv("SQLITE_DB_PATH", "./data/expensedocs.db"),
		StorageDir:    getEnv("STORAGE_DIR", "./data/storage"),
		PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		JWTSecret:     getEnv("JWT_SECRET", defaultJWTSecret),
		JWTExpiresIn:  getEnvDuration("JWT_EXPIRES_IN", time.Hour),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "expensedocs"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "expense_events"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid.
// The remote platform URL and key are deliberately left unchecked.
func (c *Config) Validate() error {
	var errors []string

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.Host != "" && c.Host != "localhost" && net.ParseIP(c.Host) == nil {
		errors = append(errors, fmt.Sprintf("invalid host '%s': must be an IP address or localhost", c.Host))
	}

	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be one of [text json]", c.LogFormat))
	}

	// Validate data backend
	validBackends := []string{"remote", "sqlite"}
	isValidBackend := false
	for _, backend := range validBackends {
		if c.DataBackend == backend {
			isValidBackend = true
			break
		}
	}
	if !isValidBackend {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
		if c.StorageDir == "" {
			errors = append(errors, "storage directory cannot be empty when using sqlite backend")
		}
		if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errors = append(errors, fmt.Sprintf("invalid public base URL '%s': must be an absolute URL", c.PublicBaseURL))
		}
		if len(c.JWTSecret) < 16 {
			errors = append(errors, "JWT secret must be at least 16 characters when using sqlite backend")
		}
		if c.JWTExpiresIn < time.Minute {
			errors = append(errors, fmt.Sprintf("invalid JWT lifetime %v: must be at least 1 minute", c.JWTExpiresIn))
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// Addr is the listen address. An empty Host listens on every interface.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// UsesDefaultJWTSecret reports whether the built-in development secret is in use.
func (c *Config) UsesDefaultJWTSecret() bool {
	return c.JWTSecret == defaultJWTSecret
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
