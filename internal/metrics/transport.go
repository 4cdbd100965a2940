package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TransportMetrics records USB bulk-endpoint throughput and container
// framing errors for internal/transport/functionfs.
type TransportMetrics struct {
	bulkBytesIn  prometheus.Counter
	bulkBytesOut prometheus.Counter
	readErrors   *prometheus.CounterVec
	signals      *prometheus.CounterVec
}

// NewTransportMetrics constructs a TransportMetrics backed by the
// process-wide registry, or nil when metrics are disabled.
func NewTransportMetrics() *TransportMetrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	return &TransportMetrics{
		bulkBytesIn: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "mtpd_transport_bulk_bytes_received_total",
				Help: "Total bytes received on the bulk-out endpoint",
			},
		),
		bulkBytesOut: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "mtpd_transport_bulk_bytes_sent_total",
				Help: "Total bytes sent on the bulk-in endpoint",
			},
		),
		readErrors: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpd_transport_read_errors_total",
				Help: "Total read errors, by endpoint",
			},
			[]string{"endpoint"}, // "control", "bulk"
		),
		signals: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpd_transport_signals_total",
				Help: "Total USB gadget signals observed, by kind",
			},
			[]string{"kind"}, // "bind", "unbind", "enable", "disable", "suspend", "resume", "reset", "cancel"
		),
	}
}

// RecordBulkBytesIn adds n to the bulk-out byte counter.
func (m *TransportMetrics) RecordBulkBytesIn(n int) {
	if m == nil {
		return
	}
	m.bulkBytesIn.Add(float64(n))
}

// RecordBulkBytesOut adds n to the bulk-in byte counter.
func (m *TransportMetrics) RecordBulkBytesOut(n int) {
	if m == nil {
		return
	}
	m.bulkBytesOut.Add(float64(n))
}

// RecordReadError increments the read-error count for one endpoint.
func (m *TransportMetrics) RecordReadError(endpoint string) {
	if m == nil {
		return
	}
	m.readErrors.WithLabelValues(endpoint).Inc()
}

// RecordSignal increments the signal count for one signal kind.
func (m *TransportMetrics) RecordSignal(kind string) {
	if m == nil {
		return
	}
	m.signals.WithLabelValues(kind).Inc()
}
