package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kazuph/mcp-pocket/internal/pocket"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := NewConfig()

	if cfg.Pocket.BaseURL != pocket.DefaultBaseURL {
		t.Errorf("Expected base URL %q, got %q", pocket.DefaultBaseURL, cfg.Pocket.BaseURL)
	}
	if cfg.Mode() != pocket.ModeUnread {
		t.Errorf("Expected unread mode, got %q", cfg.Mode())
	}
	if cfg.Timeout() != pocket.DefaultTimeout {
		t.Errorf("Expected timeout %v, got %v", pocket.DefaultTimeout, cfg.Timeout())
	}
	if cfg.Logging.Level != DefaultLogLevel || cfg.Logging.Format != DefaultLogFormat {
		t.Errorf("Unexpected logging defaults: %+v", cfg.Logging)
	}
	if _, ok := cfg.Credentials(); ok {
		t.Error("Expected no credentials by default")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("POCKET_CONSUMER_KEY", "")
	t.Setenv("POCKET_ACCESS_TOKEN", "")

	path := filepath.Join(t.TempDir(), "missing.json")
	cfg, err := load(path, nil)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}
	if cfg.Pocket.BaseURL != pocket.DefaultBaseURL {
		t.Errorf("Expected default base URL, got %q", cfg.Pocket.BaseURL)
	}
	if cfg.GetConfigPath() != path {
		t.Errorf("Expected config path %q, got %q", path, cfg.GetConfigPath())
	}
}

func TestLoadCredentialsFromEnvironment(t *testing.T) {
	t.Setenv("POCKET_CONSUMER_KEY", "env-key")
	t.Setenv("POCKET_ACCESS_TOKEN", "env-token")

	cfg, err := load(filepath.Join(t.TempDir(), "missing.json"), nil)
	if err != nil {
		t.Fatalf("load returned error: %v", err)
	}

	creds, ok := cfg.Credentials()
	if !ok {
		t.Fatalf("Expected credentials from environment, got %+v", creds)
	}
	if creds.ConsumerKey != "env-key" || creds.AccessToken != "env-token" {
		t.Errorf("Unexpected credentials %+v", creds)
	}
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"pocket":{"base_url":"http://localhost","mode":"sometimes","timeout_seconds":5},"logging":{"level":"info"}}`), 0600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := load(path, nil); err == nil {
		t.Error("Expected error for unknown mode")
	}
}

func TestFillCredentials(t *testing.T) {
	cfg := NewConfig()
	cfg.Pocket.ConsumerKey = "from-env"

	cfg.FillCredentials(pocket.Credentials{ConsumerKey: "from-keyring", AccessToken: "token"})

	creds, ok := cfg.Credentials()
	if !ok {
		t.Fatal("Expected credentials to be complete")
	}
	if creds.ConsumerKey != "from-env" {
		t.Errorf("Configured value must win, got %q", creds.ConsumerKey)
	}
	if creds.AccessToken != "token" {
		t.Errorf("Expected fallback access token, got %q", creds.AccessToken)
	}
}

func TestModeAndTimeout(t *testing.T) {
	cfg := NewConfig()
	cfg.Pocket.Mode = "all"
	cfg.Pocket.TimeoutSeconds = 3

	if cfg.Mode() != pocket.ModeAll {
		t.Errorf("Expected all mode, got %q", cfg.Mode())
	}
	if cfg.Timeout() != 3*time.Second {
		t.Errorf("Expected 3s timeout, got %v", cfg.Timeout())
	}

	cfg.Pocket.TimeoutSeconds = 0
	if cfg.Timeout() != pocket.DefaultTimeout {
		t.Errorf("Expected default timeout for 0, got %v", cfg.Timeout())
	}
}
