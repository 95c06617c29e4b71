// Package config provides configuration management for the Bumbeez CLI.
// Settings come from environment variables (optionally seeded from a .env
// file); credentials live in files under the Bumbeez home directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	// DefaultAPIURL is the local development API endpoint
	DefaultAPIURL = "http://localhost:3000"

	// ConfigDirName is the name of the config directory
	ConfigDirName = ".bumbeez"

	// CredentialsFileName holds the encrypted refresh token
	CredentialsFileName = "credentials.json"

	// KeyFileName holds the generated store key when BUMBEEZ_STORE_KEY is unset
	KeyFileName = "store.key"

	// DefaultTimeout is the per-request timeout
	DefaultTimeout = 10 * time.Second

	minTimeout = time.Second
	maxTimeout = 2 * time.Minute
)

// Config represents the CLI configuration
type Config struct {
	// APIURL is the base URL of the Bumbeez API
	APIURL string `env:"API_URL" envDefault:"http://localhost:3000"`

	// WebURL is the base URL of the Bumbeez web app, defaults to APIURL
	WebURL string `env:"BUMBEEZ_WEB_URL"`

	// Timeout bounds every outbound request
	Timeout time.Duration `env:"BUMBEEZ_TIMEOUT" envDefault:"10s"`

	// Home is the directory holding credentials; defaults to ~/.bumbeez
	Home string `env:"BUMBEEZ_HOME"`

	// StoreKey is the master secret for the credential store.
	// When empty a random key is generated into Home.
	StoreKey string `env:"BUMBEEZ_STORE_KEY"`

	// LogLevel is a zerolog level name
	LogLevel string `env:"BUMBEEZ_LOG_LEVEL" envDefault:"warn"`
}

// Load reads the configuration from the environment.
// A .env file in the working directory is applied first if present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if err := cfg.Sanitize(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Sanitize fills defaults and clamps values loaded from env.
func (c *Config) Sanitize() error {
	c.APIURL = strings.TrimRight(strings.TrimSpace(c.APIURL), "/")
	if c.APIURL == "" {
		c.APIURL = DefaultAPIURL
	}

	c.WebURL = strings.TrimRight(strings.TrimSpace(c.WebURL), "/")
	if c.WebURL == "" {
		c.WebURL = c.APIURL
	}

	switch {
	case c.Timeout <= 0:
		c.Timeout = DefaultTimeout
	case c.Timeout < minTimeout:
		c.Timeout = minTimeout
	case c.Timeout > maxTimeout:
		c.Timeout = maxTimeout
	}

	if c.Home == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to locate home directory: %w", err)
		}
		c.Home = filepath.Join(homeDir, ConfigDirName)
	}

	if c.LogLevel == "" {
		c.LogLevel = "warn"
	}
	return nil
}

// CredentialsPath returns the path to the encrypted credentials file
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.Home, CredentialsFileName)
}

// KeyPath returns the path to the generated store key
func (c *Config) KeyPath() string {
	return filepath.Join(c.Home, KeyFileName)
}
