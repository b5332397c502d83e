// Package config builds the immutable runtime configuration. Secrets come
// from the environment (a .env file is honoured when present); everything
// else is a tunable with a default matching the reference deployment.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	envGoogleAPIKey   = "GOOGLE_API_KEY"
	envSearchEngineID = "SEARCH_ENGINE_ID"
	envDeepSeekAPIKey = "DEEPSEEK_API_KEY"
)

// Config carries everything the pipeline components need. It is constructed
// once at startup and passed by reference; nothing mutates it afterwards.
type Config struct {
	// Required secrets.
	GoogleAPIKey   string
	SearchEngineID string
	DeepSeekAPIKey string

	// Store location. A plain path selects the embedded sqlite store; a
	// postgres:// DSN selects the pgx-backed store.
	DatabaseDSN string

	// Optional path to a YAML strategy file overriding the built-in
	// search targets, modifiers, and blacklist.
	StrategyFile string

	// Pipeline tunables.
	MaxWorkers     int
	ResultsPerTask int
	TaskPacing     time.Duration

	// Network tunables.
	RequestTimeout time.Duration
	RetryAttempts  int
	RetryDelay     time.Duration

	// Content quality gate: extracted text shorter than this is noise.
	MinContentLength int

	// Metrics server port; 0 disables the listener.
	MetricsPort int
}

// Load reads the environment (after a best-effort .env load) and returns a
// validated Config. A missing secret is a startup failure, not something to
// retry per task.
func Load() (*Config, error) {
	// Ignore the error: a missing .env file just means the environment is
	// already populated.
	_ = godotenv.Load()

	cfg := &Config{
		GoogleAPIKey:   os.Getenv(envGoogleAPIKey),
		SearchEngineID: os.Getenv(envSearchEngineID),
		DeepSeekAPIKey: os.Getenv(envDeepSeekAPIKey),

		DatabaseDSN: "news.db",

		MaxWorkers:     10,
		ResultsPerTask: 5,
		TaskPacing:     time.Second,

		RequestTimeout: 20 * time.Second,
		RetryAttempts:  3,
		RetryDelay:     2 * time.Second,

		MinContentLength: 200,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the invariants Load promises. It is exported so tests and
// alternative constructors can reuse it.
func (c *Config) Validate() error {
	missing := []string{}
	if c.GoogleAPIKey == "" {
		missing = append(missing, envGoogleAPIKey)
	}
	if c.SearchEngineID == "" {
		missing = append(missing, envSearchEngineID)
	}
	if c.DeepSeekAPIKey == "" {
		missing = append(missing, envDeepSeekAPIKey)
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required environment variables: %v", missing)
	}

	if c.MaxWorkers <= 0 {
		return fmt.Errorf("MaxWorkers must be positive, got %d", c.MaxWorkers)
	}
	if c.ResultsPerTask <= 0 {
		return fmt.Errorf("ResultsPerTask must be positive, got %d", c.ResultsPerTask)
	}
	if c.RetryAttempts <= 0 {
		return fmt.Errorf("RetryAttempts must be positive, got %d", c.RetryAttempts)
	}

	return nil
}
