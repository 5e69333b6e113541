package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/marmos91/coopfs/internal/logger"
	"github.com/marmos91/coopfs/pkg/config"
	"github.com/marmos91/coopfs/pkg/cooplock"
	"github.com/marmos91/coopfs/pkg/metrics"
	"github.com/marmos91/coopfs/pkg/store"
)

// loadConfig loads the configuration and initializes the structured logger.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, err
	}

	loggerCfg := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}
	if err := logger.Init(loggerCfg); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	logger.Debug("configuration loaded", "source", getConfigSource(GetConfigFile()))
	return cfg, nil
}

// getConfigSource returns a description of where the config was loaded from.
func getConfigSource(configFile string) string {
	if configFile != "" {
		return configFile
	}
	if config.DefaultConfigExists() {
		return config.GetDefaultConfigPath()
	}
	return "defaults"
}

// signalContext returns a context that is cancelled on SIGINT or SIGTERM.
// Cancelling the operation context stops lease renewal and aborts in-flight
// steps; the journal stays behind for a later fsck run.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		select {
		case <-sigChan:
			logger.Warn("interrupt received, cancelling operation")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}

// startMetrics initializes the metrics registry and serves /metrics for the
// duration of the run when metrics are enabled. The returned stop function
// shuts the listener down and is safe to call when metrics are disabled.
func startMetrics(ctx context.Context, cfg *config.Config) func() {
	if !cfg.Metrics.Enabled {
		return func() {}
	}

	metrics.InitRegistry()

	srv := metrics.NewServer(metrics.ServerConfig{Port: cfg.Metrics.Port})
	go func() {
		if err := srv.Start(ctx); err != nil {
			logger.Warn("metrics server error", logger.Err(err))
		}
	}()

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Stop(shutdownCtx)
	}
}

// openBucket parses the bucket URI argument and opens the matching backend.
func openBucket(ctx context.Context, raw string, cfg *config.Config) (store.Store, store.BucketURI, error) {
	uri, err := store.ParseBucketURI(raw)
	if err != nil {
		return nil, store.BucketURI{}, err
	}

	st, err := config.OpenStore(ctx, uri, cfg.Store)
	if err != nil {
		return nil, store.BucketURI{}, fmt.Errorf("failed to open %s: %w", uri, err)
	}

	return st, uri, nil
}

// renewalConfig maps the lock configuration onto the lease renewer.
func renewalConfig(cfg *config.Config) cooplock.RenewerConfig {
	return cooplock.RenewerConfig{
		Period:     cfg.Lock.RenewalPeriod,
		Retries:    cfg.Lock.RenewalRetries,
		RetryDelay: cfg.Lock.RenewalRetryDelay,
	}
}
