// Package metrics exposes mtpd's Prometheus counters, gauges, and
// histograms: responder transaction throughput, bulk transfer byte
// counts, and event-queue depth (SPEC_FULL.md's domain-stack wiring
// for prometheus/client_golang).
//
// Like the teacher's pkg/metrics, recording is opt-in: until
// InitRegistry is called, every New*Metrics constructor returns nil,
// and every metrics method is a nil-receiver no-op, so unconfigured
// builds pay zero overhead.
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
	enabled  bool
)

// InitRegistry creates the process-wide Prometheus registry and marks
// metrics as enabled. Call once during daemon startup, before
// constructing any metrics-producing component.
func InitRegistry() *prometheus.Registry {
	mu.Lock()
	defer mu.Unlock()

	registry = prometheus.NewRegistry()
	enabled = true
	return registry
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// GetRegistry returns the process-wide registry, or nil if metrics
// have not been initialized.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler returns an http.Handler serving the registry in the
// Prometheus text exposition format, or nil if metrics are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// reset clears registry state; used by tests that exercise IsEnabled/
// InitRegistry sequencing in isolation.
func reset() {
	mu.Lock()
	defer mu.Unlock()
	registry = nil
	enabled = false
}
