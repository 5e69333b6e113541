package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// writeTempConfig writes a config file into a temp dir and returns its path.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write temp config: %v", err)
	}
	return path
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Point the default search path at an empty directory
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load without config file should fall back to defaults, got: %v", err)
	}

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default log level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Lock.Dir != "_lock" {
		t.Errorf("Expected default lock dir _lock, got %q", cfg.Lock.Dir)
	}
	if cfg.Lock.RenewalPeriod != time.Minute {
		t.Errorf("Expected default renewal period 1m, got %v", cfg.Lock.RenewalPeriod)
	}
}

func TestLoad_FromFile(t *testing.T) {
	path := writeTempConfig(t, `
logging:
  level: debug
  format: json
lock:
  dir: journal
  renewal_period: 30s
  renewal_retries: 3
  renewal_retry_delay: 250ms
  expiration_timeout: 5m
store:
  s3:
    endpoint: http://localhost:9000
    region: us-east-1
    force_path_style: true
metrics:
  enabled: true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected format json, got %q", cfg.Logging.Format)
	}
	if cfg.Lock.Dir != "journal" {
		t.Errorf("Expected lock dir journal, got %q", cfg.Lock.Dir)
	}
	if cfg.Lock.RenewalPeriod != 30*time.Second {
		t.Errorf("Expected renewal period 30s, got %v", cfg.Lock.RenewalPeriod)
	}
	if cfg.Lock.RenewalRetries != 3 {
		t.Errorf("Expected 3 renewal retries, got %d", cfg.Lock.RenewalRetries)
	}
	if cfg.Lock.RenewalRetryDelay != 250*time.Millisecond {
		t.Errorf("Expected retry delay 250ms, got %v", cfg.Lock.RenewalRetryDelay)
	}
	if cfg.Lock.ExpirationTimeout != 5*time.Minute {
		t.Errorf("Expected expiration timeout 5m, got %v", cfg.Lock.ExpirationTimeout)
	}
	if cfg.Store.S3.Endpoint != "http://localhost:9000" {
		t.Errorf("Expected custom S3 endpoint, got %q", cfg.Store.S3.Endpoint)
	}
	if !cfg.Store.S3.ForcePathStyle {
		t.Error("Expected force_path_style true")
	}
	if !cfg.Metrics.Enabled {
		t.Error("Expected metrics enabled")
	}
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeTempConfig(t, `
logging:
  level: INFO
`)
	t.Setenv("COOPFS_LOGGING_LEVEL", "DEBUG")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected env var to override file, got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "logging: [broken")

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeTempConfig(t, `
lock:
  renewal_period: banana
`)

	if _, err := Load(path); err == nil {
		t.Fatal("Expected error for unparseable duration")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	path := writeTempConfig(t, `
logging:
  format: xml
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Expected validation error for unknown log format")
	}
	if !strings.Contains(err.Error(), "validation") {
		t.Errorf("Expected validation error, got: %v", err)
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	original := GetDefaultConfig()
	original.Logging.Level = "DEBUG"
	original.Lock.ExpirationTimeout = 10 * time.Minute

	if err := SaveConfig(original, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	// Saved with restricted permissions
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Failed to stat saved config: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %v", info.Mode().Perm())
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load saved config: %v", err)
	}
	if loaded.Logging.Level != "DEBUG" {
		t.Errorf("Expected level DEBUG after round trip, got %q", loaded.Logging.Level)
	}
	if loaded.Lock.ExpirationTimeout != 10*time.Minute {
		t.Errorf("Expected expiration timeout 10m after round trip, got %v", loaded.Lock.ExpirationTimeout)
	}
}

func TestGetDefaultConfigPath(t *testing.T) {
	path := GetDefaultConfigPath()

	if !strings.Contains(path, "coopfs") {
		t.Errorf("Expected default path to contain coopfs, got %q", path)
	}
	if filepath.Base(path) != "config.yaml" {
		t.Errorf("Expected config.yaml, got %q", filepath.Base(path))
	}
}
