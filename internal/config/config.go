// Package config provides configuration loading and validation for the
// design-review pipeline. The configuration is an explicit struct constructed
// once at startup and passed into every component; there is no process-wide
// mutable singleton.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
)

// Default limits for document intake and evaluator payloads.
const (
	// DefaultMaxDocumentSizeMB bounds the source specification size.
	DefaultMaxDocumentSizeMB = 4.5
	// DefaultPayloadBudget is the character budget for serialized evaluator
	// payloads; variable assignments are trimmed until they fit.
	DefaultPayloadBudget = 400
	// DefaultPollInterval is the sleep between build-workflow status checks.
	DefaultPollInterval = 15 * time.Second
	// MaxProposalDocuments is the hard cap on documents in one proposal set.
	MaxProposalDocuments = 5
)

// Config holds all pipeline settings. Fields may be loaded from a JSON file,
// the environment, or CLI flags; missing values use defaults.
type Config struct {
	// Directories
	OutputDir string `json:"output_dir,omitempty" validate:"required"` // transcription + ledger output
	CacheDir  string `json:"cache_dir,omitempty" validate:"required"`  // content-addressed cache

	// Document intake
	MaxDocumentSizeMB float64 `json:"max_document_size_mb,omitempty" validate:"gt=0"`

	// External capabilities
	APIKey          string `json:"api_key,omitempty"`          // extraction/transcription model API key
	Model           string `json:"model,omitempty"`            // transcription model override
	ServiceEndpoint string `json:"service_endpoint,omitempty"` // formal-policy service base URL
	ServiceToken    string `json:"service_token,omitempty"`    // formal-policy service auth token
	DatabaseURL     string `json:"database_url,omitempty"`     // optional Postgres artifact mirror

	// Behavior
	PayloadBudget int           `json:"payload_budget,omitempty" validate:"gt=0"`
	PollInterval  time.Duration `json:"-"`
	Verbose       bool          `json:"verbose,omitempty"`
}

// Default returns a configuration with all defaults applied.
func Default() *Config {
	return &Config{
		OutputDir:         "artifacts",
		CacheDir:          filepath.Join("data", "cache"),
		MaxDocumentSizeMB: DefaultMaxDocumentSizeMB,
		PayloadBudget:     DefaultPayloadBudget,
		PollInterval:      DefaultPollInterval,
	}
}

// FromEnv returns the default configuration overridden by environment
// variables.
func FromEnv() *Config {
	cfg := Default()
	if v := os.Getenv("OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}
	if v := os.Getenv("CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	if v := os.Getenv("MAX_DOCUMENT_SIZE_MB"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.MaxDocumentSizeMB = f
		}
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.APIKey = v
	}
	if v := os.Getenv("MODEL"); v != "" {
		cfg.Model = v
	}
	if v := os.Getenv("REASONING_ENDPOINT"); v != "" {
		cfg.ServiceEndpoint = v
	}
	if v := os.Getenv("REASONING_TOKEN"); v != "" {
		cfg.ServiceToken = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	return cfg
}

// LoadFile merges settings from a JSON config file over the receiver and
// returns the result. Missing file fields keep their current values.
func (c *Config) LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	merged := *c
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	return &merged, nil
}

// Validate checks the configuration and creates the output and cache
// directories.
func (c *Config) Validate() error {
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	for _, dir := range []string{c.OutputDir, c.CacheDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}
	return nil
}

// MaxDocumentSizeBytes returns the intake size limit in bytes.
func (c *Config) MaxDocumentSizeBytes() int64 {
	return int64(c.MaxDocumentSizeMB * 1024 * 1024)
}
