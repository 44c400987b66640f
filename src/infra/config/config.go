// Package config handles application configuration via environment variables.
// It uses kelseyhightower/envconfig for parsing and provides sensible defaults.
// A .env file in the working directory is loaded first when present.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	_ "github.com/joho/godotenv/autoload"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
// Values are loaded from environment variables with the prefix "APP".
// The unprefixed name is accepted as well, so DB_HOST and APP_DB_HOST both work.
type Config struct {
	// Server configuration (embedded to flatten env vars)
	Server ServerConfig

	// Database configuration (embedded to flatten env vars)
	Database DatabaseConfig

	// Logging configuration (embedded to flatten env vars)
	Log LogConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Port is the HTTP server port (default: 3000)
	Port int `envconfig:"PORT" default:"3000" validate:"min=1,max=65535"`

	// Host is the HTTP server host (default: 0.0.0.0)
	Host string `envconfig:"HOST" default:"0.0.0.0"`

	// ReadTimeout is the maximum duration for reading the entire request (default: 10s)
	ReadTimeout time.Duration `envconfig:"READ_TIMEOUT" default:"10s"`

	// WriteTimeout is the maximum duration before timing out writes of the response (default: 30s)
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"30s"`

	// ShutdownTimeout is the maximum duration to wait for active connections to finish (default: 30s)
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"30s"`

	// Environment is reported by the health endpoint (default: development)
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// Version is reported by the health and index endpoints (default: 1.0.0)
	Version string `envconfig:"VERSION" default:"1.0.0"`
}

// DatabaseConfig holds PostgreSQL connection and pool settings.
type DatabaseConfig struct {
	// Host is the database host (default: localhost)
	Host string `envconfig:"DB_HOST" default:"localhost" validate:"required"`

	// Port is the database port (default: 5432)
	Port int `envconfig:"DB_PORT" default:"5432" validate:"min=1,max=65535"`

	// User is the database user (default: postgres)
	User string `envconfig:"DB_USER" default:"postgres" validate:"required"`

	// Password is the database password (required in production)
	Password string `envconfig:"DB_PASSWORD" default:"postgres"`

	// Name is the database name (default: fluxocaixa)
	Name string `envconfig:"DB_NAME" default:"fluxocaixa" validate:"required"`

	// SSLMode is the SSL mode for the connection (default: disable)
	SSLMode string `envconfig:"DB_SSLMODE" default:"disable"`

	// PoolMax is the maximum number of pooled connections (default: 20)
	PoolMax int `envconfig:"DB_POOL_MAX" default:"20" validate:"min=1"`

	// IdleTimeoutMS closes connections idle for longer, in milliseconds (default: 30000)
	IdleTimeoutMS int `envconfig:"DB_IDLE_TIMEOUT" default:"30000" validate:"min=0"`

	// ConnectionTimeoutMS bounds how long a lease waits for a connection, in milliseconds (default: 2000)
	ConnectionTimeoutMS int `envconfig:"DB_CONNECTION_TIMEOUT" default:"2000" validate:"min=1"`

	// ShutdownGrace is how long shutdown waits for leased connections (default: 10s)
	ShutdownGrace time.Duration `envconfig:"DB_SHUTDOWN_GRACE" default:"10s"`

	// SlowQueryThreshold marks queries that should be logged as slow (default: 500ms)
	SlowQueryThreshold time.Duration `envconfig:"DB_SLOW_QUERY_THRESHOLD" default:"500ms"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	// Level is the log level: debug, info, warn, error (default: info)
	Level string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn warning error DEBUG INFO WARN WARNING ERROR"`

	// Format is the log format: json, text, plain (default: json)
	Format string `envconfig:"LOG_FORMAT" default:"json"`
}

// DSN returns the PostgreSQL connection string.
// The password is escaped so reserved characters do not break the URL.
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		url.QueryEscape(c.User), url.QueryEscape(c.Password),
		net.JoinHostPort(c.Host, strconv.Itoa(c.Port)), c.Name, c.SSLMode,
	)
}

// IdleTimeout returns IdleTimeoutMS as a duration.
func (c *DatabaseConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutMS) * time.Millisecond
}

// ConnectionTimeout returns ConnectionTimeoutMS as a duration.
func (c *DatabaseConfig) ConnectionTimeout() time.Duration {
	return time.Duration(c.ConnectionTimeoutMS) * time.Millisecond
}

// Addr returns the server address in host:port format.
func (c *ServerConfig) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load reads configuration from environment variables.
// It returns an error if variables are malformed or fail validation.
func Load() (*Config, error) {
	var cfg Config

	// Load each config section separately to flatten env var names
	// This allows env vars like APP_PORT instead of APP_SERVER_PORT
	if err := envconfig.Process("APP", &cfg.Server); err != nil {
		return nil, fmt.Errorf("failed to load server config: %w", err)
	}
	if err := envconfig.Process("APP", &cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to load database config: %w", err)
	}
	if err := envconfig.Process("APP", &cfg.Log); err != nil {
		return nil, fmt.Errorf("failed to load log config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
