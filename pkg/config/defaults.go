package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyLockDefaults(&cfg.Lock)
	applyMetricsDefaults(&cfg.Metrics)
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyLockDefaults sets lock protocol defaults.
//
// ExpirationTimeout gets a non-zero default because zero is a meaningful
// value ("treat everything as expired"); choosing it must be an explicit
// act via the fsck flag, never the accident of an absent config key.
func applyLockDefaults(cfg *LockConfig) {
	if cfg.Dir == "" {
		cfg.Dir = "_lock"
	}
	if cfg.RenewalPeriod == 0 {
		cfg.RenewalPeriod = time.Minute
	}
	if cfg.RenewalRetries == 0 {
		cfg.RenewalRetries = 10
	}
	if cfg.RenewalRetryDelay == 0 {
		cfg.RenewalRetryDelay = 100 * time.Millisecond
	}
	if cfg.ExpirationTimeout == 0 {
		cfg.ExpirationTimeout = 2 * time.Minute
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
