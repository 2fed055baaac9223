// Package config loads the mcp-pocket configuration from defaults, an
// optional JSON file and POCKET_* environment variables.
package config

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/localrivet/configurator"

	"github.com/kazuph/mcp-pocket/internal/pocket"
)

// Config represents the mcp-pocket configuration
type Config struct {
	// Pocket contains the upstream API settings.
	Pocket struct {
		// ConsumerKey and AccessToken authenticate every request.
		ConsumerKey string `json:"consumer_key" env:"CONSUMER_KEY"`
		AccessToken string `json:"access_token" env:"ACCESS_TOKEN"`

		// BaseURL is the Pocket v3 API root.
		BaseURL string `json:"base_url" env:"BASE_URL" validate:"required"`

		// Mode is "unread" (unread articles, ids, mark_as_read) or "all".
		Mode string `json:"mode" env:"MODE"`

		// TimeoutSeconds bounds each upstream request.
		TimeoutSeconds int `json:"timeout_seconds" env:"TIMEOUT_SECONDS" validate:"min:1"`
	} `json:"pocket"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	configPath string `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename = ".mcppocketconfig"
	DefaultEnvPrefix      = "POCKET"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	DefaultTimeoutSeconds = int(pocket.DefaultTimeout / time.Second)
)

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	cfg := &Config{}
	cfg.Pocket.BaseURL = pocket.DefaultBaseURL
	cfg.Pocket.Mode = string(pocket.ModeUnread)
	cfg.Pocket.TimeoutSeconds = DefaultTimeoutSeconds
	cfg.Logging.Level = DefaultLogLevel
	cfg.Logging.Format = DefaultLogFormat
	return cfg
}

// LoadConfig loads the configuration from the default path
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename)
}

// LoadConfigWithPath loads the configuration from configPath. A missing
// file is not an error: defaults and environment variables still apply.
func LoadConfigWithPath(configPath string) (*Config, error) {
	// stdout carries the MCP protocol, so config loading logs to stderr.
	stdLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))
	return load(configPath, stdLogger)
}

func load(configPath string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	cfg := NewConfig()

	if configPath == "" {
		configPath = DefaultConfigFilename
	}
	if configPath == DefaultConfigFilename {
		if foundPath, err := configurator.FindConfigFile(configPath); err == nil {
			configPath = foundPath
			logger.Debug("Found config file at " + foundPath)
		}
	}

	loader := configurator.New(logger).
		WithProvider(configurator.NewDefaultProvider())

	if _, err := os.Stat(configPath); err == nil {
		logger.Info("Loading configuration", "path", configPath)
		loader = loader.WithProvider(configurator.NewFileProvider(configPath))
	} else if os.IsNotExist(err) {
		logger.Debug("Config file not found, using defaults and environment", "path", configPath)
	} else {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	loader = loader.
		WithProvider(configurator.NewEnvProvider(DefaultEnvPrefix)).
		WithValidator(configurator.NewDefaultValidator())

	if err := loader.Load(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if _, err := pocket.ParseMode(cfg.Pocket.Mode); err != nil {
		return nil, fmt.Errorf("invalid pocket.mode: %w", err)
	}

	cfg.configPath = configPath
	return cfg, nil
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.configPath = path
	return nil
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// Credentials returns the configured credential pair and whether both
// halves are present.
func (c *Config) Credentials() (pocket.Credentials, bool) {
	creds := pocket.Credentials{
		ConsumerKey: c.Pocket.ConsumerKey,
		AccessToken: c.Pocket.AccessToken,
	}
	return creds, creds.Valid()
}

// FillCredentials sets whichever credential halves are still empty from
// fallback. Values already configured win.
func (c *Config) FillCredentials(fallback pocket.Credentials) {
	if c.Pocket.ConsumerKey == "" {
		c.Pocket.ConsumerKey = fallback.ConsumerKey
	}
	if c.Pocket.AccessToken == "" {
		c.Pocket.AccessToken = fallback.AccessToken
	}
}

// Mode returns the parsed listing mode. Load has already validated it.
func (c *Config) Mode() pocket.Mode {
	mode, err := pocket.ParseMode(c.Pocket.Mode)
	if err != nil {
		return pocket.ModeUnread
	}
	return mode
}

// Timeout returns the per-request upstream timeout.
func (c *Config) Timeout() time.Duration {
	if c.Pocket.TimeoutSeconds <= 0 {
		return pocket.DefaultTimeout
	}
	return time.Duration(c.Pocket.TimeoutSeconds) * time.Second
}
