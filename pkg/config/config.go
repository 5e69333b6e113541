package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config represents the coopfs configuration.
//
// This structure captures the static configuration of the tool:
//   - Logging configuration
//   - Lock protocol settings (journal directory, lease renewal, expiry)
//   - Store client settings (S3 endpoint/credentials, GCS credentials)
//   - Metrics server configuration
//
// The bucket to operate on is never part of the configuration: every
// command takes it as a bucket URI argument.
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (COOPFS_*)
//  3. Configuration file (YAML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Lock controls the cooperative locking protocol
	Lock LockConfig `mapstructure:"lock" yaml:"lock"`

	// Store contains client settings for the storage backends
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// LockConfig controls the cooperative locking protocol: where journal pairs
// live and how leases are renewed and judged expired.
type LockConfig struct {
	// Dir is the journal directory prefix inside the bucket.
	// Default: "_lock"
	Dir string `mapstructure:"dir" validate:"required" yaml:"dir"`

	// RenewalPeriod is how often a running operation refreshes its lease.
	// Default: 1m
	RenewalPeriod time.Duration `mapstructure:"renewal_period" validate:"required,gt=0" yaml:"renewal_period"`

	// RenewalRetries is how many times a failed renewal is retried before
	// the operation gives up its lease.
	// Default: 10
	RenewalRetries int `mapstructure:"renewal_retries" validate:"required,min=1" yaml:"renewal_retries"`

	// RenewalRetryDelay is the pause between renewal retries.
	// Default: 100ms
	RenewalRetryDelay time.Duration `mapstructure:"renewal_retry_delay" validate:"required,gt=0" yaml:"renewal_retry_delay"`

	// ExpirationTimeout is how stale a lease must be before repair treats
	// the operation as abandoned. The fsck flag of the same name overrides
	// this, and setting the flag to 0 treats every lease as expired.
	// Default: 2m
	ExpirationTimeout time.Duration `mapstructure:"expiration_timeout" validate:"gte=0" yaml:"expiration_timeout"`
}

// StoreConfig contains client settings for the storage backends. Which
// backend a command uses follows from the bucket URI scheme; these settings
// only affect how that backend's client is built.
type StoreConfig struct {
	// S3 configures the S3 client
	S3 S3Config `mapstructure:"s3" yaml:"s3"`

	// GCS configures the Google Cloud Storage client
	GCS GCSConfig `mapstructure:"gcs" yaml:"gcs"`
}

// S3Config contains S3 client settings. Empty values fall back to the AWS
// SDK default chain (environment, shared config, instance roles).
type S3Config struct {
	// Endpoint overrides the S3 endpoint, for S3-compatible stores such as
	// MinIO. Empty uses the default AWS endpoints.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint,omitempty"`

	// Region is the AWS region
	Region string `mapstructure:"region" yaml:"region,omitempty"`

	// AccessKeyID is the static access key. Empty falls back to the SDK
	// credential chain.
	AccessKeyID string `mapstructure:"access_key_id" yaml:"access_key_id,omitempty"`

	// SecretAccessKey is the static secret key
	SecretAccessKey string `mapstructure:"secret_access_key" yaml:"secret_access_key,omitempty"`

	// ForcePathStyle uses path-style addressing (required by MinIO)
	ForcePathStyle bool `mapstructure:"force_path_style" yaml:"force_path_style,omitempty"`
}

// GCSConfig contains Google Cloud Storage client settings.
type GCSConfig struct {
	// CredentialsFile is the path to a service account key file. Empty
	// falls back to Application Default Credentials.
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file,omitempty"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (COOPFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Owner read/write only: the file may contain static credentials
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use COOPFS_ prefix and underscores
	// Example: COOPFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("COOPFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		// Use explicitly specified config file
		v.SetConfigFile(configPath)
	} else {
		// Use default location: $XDG_CONFIG_HOME/coopfs/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		// Config file not found is acceptable - use defaults
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		// Only handle conversion to time.Duration
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			// Parse duration string like "30s", "5m", "1h"
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "coopfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		// If we can't get home dir, use current directory as last resort
		return "."
	}

	return filepath.Join(home, ".config", "coopfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}
