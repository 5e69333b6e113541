// Package metrics provides Prometheus metrics collection for coopfs
// components.
//
// All metrics are optional. If the registry is never initialized, the
// constructors in pkg/metrics/prometheus return nil and components fall
// back to their zero-overhead no-op paths.
//
// Usage:
//
//	// Initialize global registry (typically in the command entry point)
//	metrics.InitRegistry()
//
//	// Create metrics instances for components
//	opMetrics := prometheus.NewOperationMetrics()
//	repairMetrics := prometheus.NewRepairMetrics()
//
//	// Or pass nil for no-op behavior
//	ops, err := dirops.New(dirops.Config{Store: st}) // No metrics
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// registry is the global Prometheus registry for all coopfs metrics.
	// Protected by registryOnce for write-once, read-many pattern
	registry     *prometheus.Registry
	registryOnce sync.Once
)

// InitRegistry initializes the global Prometheus registry.
//
// This must be called before creating any metrics instances. It's safe to
// call multiple times - subsequent calls are ignored.
//
// If not called, GetRegistry() will return nil and all metrics constructors
// will return no-op implementations.
func InitRegistry() {
	registryOnce.Do(func() {
		registry = prometheus.NewRegistry()
	})
}

// GetRegistry returns the global Prometheus registry.
//
// Returns nil if InitRegistry() has not been called, indicating metrics
// are disabled.
//
// Thread safety:
// Safe to call concurrently. The sync.Once in InitRegistry() provides
// a happens-before relationship ensuring the registry value is visible.
func GetRegistry() *prometheus.Registry {
	return registry
}

// IsEnabled returns true if metrics collection is enabled.
//
// Metrics are enabled if InitRegistry() has been called.
func IsEnabled() bool {
	return GetRegistry() != nil
}
