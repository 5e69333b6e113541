package config

import (
	"strings"
	"testing"
	"time"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	err := Validate(cfg)
	if err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_InvalidMetricsPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Port = 70000 // Out of range

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for port out of range")
	}
	if !strings.Contains(err.Error(), "max") {
		t.Errorf("Expected 'max' validation error, got: %v", err)
	}
}

func TestValidate_NegativeMetricsPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Port = -1

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for negative port")
	}
}

func TestValidate_ZeroExpirationTimeoutAllowed(t *testing.T) {
	// Zero means "treat every lease as expired"; it is a legal setting,
	// not a missing one.
	cfg := GetDefaultConfig()
	cfg.Lock.ExpirationTimeout = 0

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected zero expiration timeout to validate, got: %v", err)
	}
}

func TestValidate_ExpirationMustExceedRenewalPeriod(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Lock.RenewalPeriod = time.Minute
	cfg.Lock.ExpirationTimeout = 30 * time.Second

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for expiration timeout below renewal period")
	}
	if !strings.Contains(err.Error(), "expiration_timeout") {
		t.Errorf("Expected error to mention expiration_timeout, got: %v", err)
	}
}

func TestValidate_MissingRenewalPeriod(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Lock.RenewalPeriod = 0

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for zero renewal period")
	}
}

func TestValidate_LogLevelCaseInsensitive(t *testing.T) {
	// Validation accepts both cases; normalization happens in ApplyDefaults
	testCases := []string{"info", "INFO", "debug", "DEBUG", "warn", "WARN", "error", "ERROR"}

	for _, level := range testCases {
		cfg := GetDefaultConfig()
		cfg.Logging.Level = level

		err := Validate(cfg)
		if err != nil {
			t.Errorf("Validation failed for level %q: %v", level, err)
		}

		// Validation should NOT normalize - level should remain as-is
		if cfg.Logging.Level != level {
			t.Errorf("Expected level to remain %q after validation, got %q", level, cfg.Logging.Level)
		}
	}

	cfg := &Config{Logging: LoggingConfig{Level: "info"}}
	ApplyDefaults(cfg)
	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected ApplyDefaults to normalize 'info' to 'INFO', got %q", cfg.Logging.Level)
	}
}
