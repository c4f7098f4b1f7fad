// Package config loads the API's configuration from environment variables.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"
)

// Config holds everything the server needs at startup.
type Config struct {
	ListenAddr string

	PostgresHost     string
	PostgresPort     string
	PostgresDB       string
	PostgresUser     string
	PostgresPassword string

	// AnthropicAPIKey may be empty; the generative parser and summarizer
	// are then left unconfigured and the engine runs deterministically.
	AnthropicAPIKey string
	AnthropicModel  string

	// ModelSummarizer switches the answer phrasing from fixed templates to
	// the completion service.
	ModelSummarizer bool

	JWTSecret string
	TokenTTL  time.Duration

	Verbose bool
}

// Load reads configuration from the environment. JWT_SECRET is the only
// required variable.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:       getenv("LISTEN_ADDR", ":8080"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getenv("POSTGRES_PORT", "5432"),
		PostgresDB:       getenv("POSTGRES_DB", "homewatt"),
		PostgresUser:     getenv("POSTGRES_USER", "homewatt"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "homewatt"),
		AnthropicAPIKey:  os.Getenv("ANTHROPIC_API_KEY"),
		AnthropicModel:   getenv("ANTHROPIC_MODEL", "claude-3-5-sonnet-20240620"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		TokenTTL:         30 * time.Minute,
		Verbose:          boolenv("VERBOSE"),
		ModelSummarizer:  boolenv("MODEL_SUMMARIZER"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if v := os.Getenv("ACCESS_TOKEN_EXPIRE_MINUTES"); v != "" {
		minutes, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid ACCESS_TOKEN_EXPIRE_MINUTES: %w", err)
		}
		cfg.TokenTTL = time.Duration(minutes) * time.Minute
	}

	return cfg, nil
}

// PostgresDSN renders the connection string for pgx.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		url.QueryEscape(c.PostgresUser), url.QueryEscape(c.PostgresPassword),
		c.PostgresHost, c.PostgresPort, c.PostgresDB)
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func boolenv(key string) bool {
	v, _ := strconv.ParseBool(os.Getenv(key))
	return v
}
