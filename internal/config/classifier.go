package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	EnvClassifierBaseURL      = "CONTADOR_CLASSIFIER_BASE_URL"
	EnvClassifierAPIKey       = "CONTADOR_CLASSIFIER_API_KEY"
	EnvClassifierModel        = "CONTADOR_CLASSIFIER_MODEL"
	EnvClassifierRequestDelay = "CONTADOR_CLASSIFIER_REQUEST_DELAY"
	EnvClassifierBackoff      = "CONTADOR_CLASSIFIER_RATE_LIMIT_BACKOFF"
	EnvClassifierMaxRetries   = "CONTADOR_CLASSIFIER_MAX_RETRIES"
)

// ClassifierConfig holds the document model endpoint parameters.
type ClassifierConfig struct {
	BaseURL          string `toml:"base_url"`
	APIKey           string `toml:"api_key"`
	Model            string `toml:"model"`
	RequestDelay     string `toml:"request_delay"`
	RateLimitBackoff string `toml:"rate_limit_backoff"`
	MaxRetries       int    `toml:"max_retries"`
}

// RequestDelayDuration returns RequestDelay as a time.Duration.
func (c *ClassifierConfig) RequestDelayDuration() time.Duration {
	d, _ := time.ParseDuration(c.RequestDelay)
	return d
}

// RateLimitBackoffDuration returns RateLimitBackoff as a time.Duration.
func (c *ClassifierConfig) RateLimitBackoffDuration() time.Duration {
	d, _ := time.ParseDuration(c.RateLimitBackoff)
	return d
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ClassifierConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from overlay.
func (c *ClassifierConfig) Merge(overlay *ClassifierConfig) {
	if overlay.BaseURL != "" {
		c.BaseURL = overlay.BaseURL
	}
	if overlay.APIKey != "" {
		c.APIKey = overlay.APIKey
	}
	if overlay.Model != "" {
		c.Model = overlay.Model
	}
	if overlay.RequestDelay != "" {
		c.RequestDelay = overlay.RequestDelay
	}
	if overlay.RateLimitBackoff != "" {
		c.RateLimitBackoff = overlay.RateLimitBackoff
	}
	if overlay.MaxRetries != 0 {
		c.MaxRetries = overlay.MaxRetries
	}
}

func (c *ClassifierConfig) loadDefaults() {
	if c.Model == "" {
		c.Model = "gemini-2.0-flash"
	}
	if c.RequestDelay == "" {
		c.RequestDelay = "2s"
	}
	if c.RateLimitBackoff == "" {
		c.RateLimitBackoff = "30s"
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 3
	}
}

func (c *ClassifierConfig) loadEnv() {
	if v := os.Getenv(EnvClassifierBaseURL); v != "" {
		c.BaseURL = v
	}
	if v := os.Getenv(EnvClassifierAPIKey); v != "" {
		c.APIKey = v
	}
	if v := os.Getenv(EnvClassifierModel); v != "" {
		c.Model = v
	}
	if v := os.Getenv(EnvClassifierRequestDelay); v != "" {
		c.RequestDelay = v
	}
	if v := os.Getenv(EnvClassifierBackoff); v != "" {
		c.RateLimitBackoff = v
	}
	if v := os.Getenv(EnvClassifierMaxRetries); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.MaxRetries = n
		}
	}
}

func (c *ClassifierConfig) validate() error {
	if c.APIKey == "" {
		return fmt.Errorf("api_key is required")
	}
	if _, err := time.ParseDuration(c.RequestDelay); err != nil {
		return fmt.Errorf("invalid request_delay: %w", err)
	}
	if _, err := time.ParseDuration(c.RateLimitBackoff); err != nil {
		return fmt.Errorf("invalid rate_limit_backoff: %w", err)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("max_retries must be positive")
	}
	return nil
}
