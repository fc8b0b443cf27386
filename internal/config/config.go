// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Ingestion IngestionConfig
	AI        AIConfig
	Lookup    LookupConfig
	Rate      RateLimitConfig
	Security  SecurityConfig
	Logging   LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 30s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`

	// RequestTimeout is the middleware timeout for requests (default: 60s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"60s"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// URL is the PostgreSQL connection string (required)
	// Supports both DATABASE_URL and DB_URL env vars for compatibility
	URL string `env:"DATABASE_URL" envAlt:"DB_URL" required:"true"`

	// MaxConns is the maximum number of connections in the pool (default: 20)
	MaxConns int `env:"DB_MAX_CONNS" default:"20"`

	// MinConns is the minimum number of connections to keep open (default: 4)
	MinConns int `env:"DB_MIN_CONNS" default:"4"`

	// MaxConnLifetime is the maximum lifetime of a connection (default: 1h)
	MaxConnLifetime time.Duration `env:"DB_MAX_CONN_LIFETIME" default:"1h"`

	// MaxConnIdleTime is the maximum idle time before a connection is closed (default: 30m)
	MaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" default:"30m"`
}

// IngestionConfig holds source file locations for repopulation runs.
type IngestionConfig struct {
	// SuggestionFile is the path to the AI suggestion table (required)
	SuggestionFile string `env:"INGEST_SUGGESTION_FILE" required:"true"`

	// ReferenceDir is the directory holding the per-system reference
	// tables, named as each system profile expects (default: ./data)
	ReferenceDir string `env:"INGEST_REFERENCE_DIR" default:"./data"`

	// ArtifactPaths lists derived files removed during a reset
	// (comma-separated)
	ArtifactPaths []string `env:"INGEST_ARTIFACT_PATHS"`

	// SourceLabel is recorded on every mapping created by ingestion
	// (default: ai_discovery)
	SourceLabel string `env:"INGEST_SOURCE_LABEL" default:"ai_discovery"`
}

// AIConfig holds the justification collaborator settings.
type AIConfig struct {
	// Enabled controls whether mappings get AI justifications
	// (default: true). When disabled, placeholders are stored instead.
	Enabled bool `env:"AI_ENABLED" default:"true"`

	// APIKey authenticates against the completion API
	APIKey string `env:"AI_API_KEY"`

	// Model is the completion model name (default: gpt-4o-mini)
	Model string `env:"AI_MODEL" default:"gpt-4o-mini"`

	// MaxTokens bounds each completion (default: 256)
	MaxTokens int `env:"AI_MAX_TOKENS" default:"256"`
}

// LookupConfig holds the classification lookup service settings.
type LookupConfig struct {
	// Enabled controls whether entry enrichment is available (default: false)
	Enabled bool `env:"LOOKUP_ENABLED" default:"false"`

	// BaseURL is the API root of the terminology service
	BaseURL string `env:"LOOKUP_BASE_URL"`

	// TokenURL is the OAuth2 client-credentials token endpoint
	TokenURL string `env:"LOOKUP_TOKEN_URL"`

	// ClientID and ClientSecret authenticate the token request
	ClientID     string `env:"LOOKUP_CLIENT_ID"`
	ClientSecret string `env:"LOOKUP_CLIENT_SECRET"`

	// Scopes is a comma-separated list of token scopes
	Scopes []string `env:"LOOKUP_SCOPES"`

	// Timeout is the per-request timeout (default: 15s)
	Timeout time.Duration `env:"LOOKUP_TIMEOUT" default:"15s"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the default rate limit per IP (default: 100)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"100"`

	// MutationLimit is requests per minute for curation write endpoints (default: 30)
	MutationLimit int `env:"RATE_LIMIT_MUTATION" default:"30"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
