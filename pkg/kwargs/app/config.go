package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/kelseyhightower/envconfig"

	"github.com/toyz/kwargs/internal/extract"
)

// EnvPrefix prefixes every environment variable read by LoadConfig
const EnvPrefix = "KWARGS"

// Config holds the runtime limits of an App
type Config struct {
	// MultipartPartLimit caps the parts accepted in one multipart body (default: 1000)
	MultipartPartLimit int `envconfig:"MULTIPART_PART_LIMIT" default:"1000"`

	// MaxBodySize caps the bytes adapters read from a request body (default: 10 MiB)
	MaxBodySize int64 `envconfig:"MAX_BODY_SIZE" default:"10485760"`

	// Debug lowers the log level and logs every registered route
	Debug bool `envconfig:"DEBUG" default:"false"`

	// Title and Version describe the application in its OpenAPI document
	Title   string `envconfig:"TITLE" default:"kwargs"`
	Version string `envconfig:"VERSION" default:"0.1.0"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MultipartPartLimit: extract.DefaultPartLimit,
		MaxBodySize:        10 << 20,
		Title:              "kwargs",
		Version:            "0.1.0",
	}
}

// LoadConfig reads KWARGS_* environment variables over the defaults
func LoadConfig() (*Config, error) {
	cfg := DefaultConfig()
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.MultipartPartLimit <= 0 {
		return nil, fmt.Errorf("%s_MULTIPART_PART_LIMIT must be positive, got %d", EnvPrefix, cfg.MultipartPartLimit)
	}
	if cfg.MaxBodySize <= 0 {
		return nil, fmt.Errorf("%s_MAX_BODY_SIZE must be positive, got %d", EnvPrefix, cfg.MaxBodySize)
	}
	return cfg, nil
}

// NewLogger creates the structured logger used by an App
func NewLogger(cfg *Config) *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil && cfg.Debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
