// Package config loads server configuration from environment variables
// with an optional YAML file override.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound = errors.New("config file not found")
	ErrConfigParse    = errors.New("failed to parse config")
	ErrInvalidWorkers = errors.New("invalid worker count")
	ErrInvalidTimeout = errors.New("invalid render timeout")
)

// Defaults.
const (
	DefaultPort         = 5000
	DefaultFilterColumn = "Pdf_print"
	DefaultTimeout      = 30 * time.Second
)

// Config holds all server configuration.
type Config struct {
	Port          int           `yaml:"port"`
	GristServer   string        `yaml:"gristServer"`
	FilterColumn  string        `yaml:"filterColumn"`
	DatabaseURL   string        `yaml:"databaseURL"`
	Workers       int           `yaml:"workers"` // 0 = derive from GOMAXPROCS
	RenderTimeout time.Duration `yaml:"renderTimeout"`
	FontsDir      string        `yaml:"fontsDir"`
	LogLevel      string        `yaml:"logLevel"`
	LogFormat     string        `yaml:"logFormat"`
}

// Load builds the configuration: .env file (if present), then environment
// variables, then the YAML file at path (if given) on top.
func Load(path string) (*Config, error) {
	// Missing .env is fine; env vars may come from the environment itself
	_ = godotenv.Load()

	cfg := &Config{
		Port:          DefaultPort,
		GristServer:   os.Getenv("GRIST_SERVER"),
		FilterColumn:  envOr("PDF_FILTER_COLUMN", DefaultFilterColumn),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		RenderTimeout: DefaultTimeout,
		FontsDir:      os.Getenv("FONTS_DIR"),
		LogLevel:      envOr("LOG_LEVEL", "info"),
		LogFormat:     envOr("LOG_FORMAT", "text"),
	}

	if port := os.Getenv("PORT"); port != "" {
		p, err := strconv.Atoi(port)
		if err != nil {
			return nil, fmt.Errorf("%w: PORT=%q", ErrConfigParse, port)
		}
		cfg.Port = p
	}
	if workers := os.Getenv("WORKERS"); workers != "" {
		w, err := strconv.Atoi(workers)
		if err != nil {
			return nil, fmt.Errorf("%w: WORKERS=%q", ErrConfigParse, workers)
		}
		cfg.Workers = w
	}
	if timeout := os.Getenv("RENDER_TIMEOUT"); timeout != "" {
		d, err := time.ParseDuration(timeout)
		if err != nil {
			return nil, fmt.Errorf("%w: RENDER_TIMEOUT=%q", ErrConfigParse, timeout)
		}
		cfg.RenderTimeout = d
	}

	if path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadFile overlays YAML file values onto cfg.
func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path) // #nosec G304 -- operator-supplied path
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	return nil
}

// Validate checks bounds on numeric settings.
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, c.Workers)
	}
	if c.RenderTimeout <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidTimeout, c.RenderTimeout)
	}
	return nil
}

// envOr returns the environment value or a fallback when unset.
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
