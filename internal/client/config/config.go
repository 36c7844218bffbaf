package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds runtime settings for the Coffeedia CLI.
//
// ExpiryCheckInterval is how often the session maintenance loop wakes up;
// RefreshThreshold is how close to expiry an access token must be before
// it is refreshed proactively.
type Config struct {
	ServerURL           string
	APIPrefix           string
	DatabasePath        string
	RequestTimeout      time.Duration
	ExpiryCheckInterval time.Duration
	RefreshThreshold    time.Duration
	LogLevel            string
	LogFormat           string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.APIPrefix = "/api"
	c.DatabasePath = "coffeedia.db"
	c.RequestTimeout = 10 * time.Second
	c.ExpiryCheckInterval = 60 * time.Second
	c.RefreshThreshold = 5 * time.Minute
	c.LogLevel = "info"
	c.LogFormat = "text"
}

// Validate reports settings the client cannot run with.
func (c *Config) Validate() error {
	if c.ServerURL == "" {
		return fmt.Errorf("server url is required")
	}
	if c.ExpiryCheckInterval <= 0 {
		return fmt.Errorf("expiry check interval must be positive, got %s", c.ExpiryCheckInterval)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.RefreshThreshold < 0 {
		return fmt.Errorf("refresh threshold must not be negative, got %s", c.RefreshThreshold)
	}
	return nil
}

// LoadConfig constructs a Config from defaults, environment, JSON and flags,
// later sources taking precedence over earlier ones.
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	env, err := environment(".env")
	if err != nil {
		return nil, err
	}
	if err := parseEnv(cfg, env); err != nil {
		return nil, err
	}

	args := os.Args[1:]
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
