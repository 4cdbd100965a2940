package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ResponderMetrics records per-transaction throughput and outcome
// counts for the MTP responder state machine (spec.md §4.6.1).
type ResponderMetrics struct {
	transactions   *prometheus.CounterVec
	transactionDur *prometheus.HistogramVec
	responseCodes  *prometheus.CounterVec
	eventQueueLen  prometheus.Gauge
	eventsEmitted  *prometheus.CounterVec
	txCancels      prometheus.Counter
}

// NewResponderMetrics constructs a ResponderMetrics backed by the
// process-wide registry, or returns nil when metrics are disabled
// (mirrors the teacher's NewCacheMetrics nil-on-disabled pattern).
func NewResponderMetrics() *ResponderMetrics {
	reg := GetRegistry()
	if reg == nil {
		return nil
	}

	return &ResponderMetrics{
		transactions: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpd_responder_transactions_total",
				Help: "Total number of MTP transactions handled, by operation name",
			},
			[]string{"operation"},
		),
		transactionDur: promauto.With(reg).NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "mtpd_responder_transaction_duration_milliseconds",
				Help: "Duration of MTP transactions in milliseconds, by operation name",
				Buckets: []float64{
					0.5, 1, 5, 10, 50, 100, 500, 1000, 5000, 30000,
				},
			},
			[]string{"operation"},
		),
		responseCodes: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpd_responder_response_codes_total",
				Help: "Total number of responses sent, by operation name and response code",
			},
			[]string{"operation", "code"},
		),
		eventQueueLen: promauto.With(reg).NewGauge(
			prometheus.GaugeOpts{
				Name: "mtpd_responder_event_queue_length",
				Help: "Current number of events buffered for the interrupt endpoint",
			},
		),
		eventsEmitted: promauto.With(reg).NewCounterVec(
			prometheus.CounterOpts{
				Name: "mtpd_responder_events_emitted_total",
				Help: "Total number of events emitted, by event code",
			},
			[]string{"event"},
		),
		txCancels: promauto.With(reg).NewCounter(
			prometheus.CounterOpts{
				Name: "mtpd_responder_tx_cancels_total",
				Help: "Total number of CANCEL requests handled during a data phase",
			},
		),
	}
}

// ObserveTransaction records one completed transaction's operation name,
// response code, and wall-clock duration.
func (m *ResponderMetrics) ObserveTransaction(operation string, code string, duration time.Duration) {
	if m == nil {
		return
	}
	m.transactions.WithLabelValues(operation).Inc()
	m.transactionDur.WithLabelValues(operation).Observe(float64(duration.Microseconds()) / 1000)
	m.responseCodes.WithLabelValues(operation, code).Inc()
}

// RecordEventQueueLength updates the current interrupt-endpoint backlog
// depth.
func (m *ResponderMetrics) RecordEventQueueLength(n int) {
	if m == nil {
		return
	}
	m.eventQueueLen.Set(float64(n))
}

// RecordEventEmitted increments the emitted-event count for one event
// code, labelled by its hex form (e.g. "0x4002" for ObjectAdded).
func (m *ResponderMetrics) RecordEventEmitted(event string) {
	if m == nil {
		return
	}
	m.eventsEmitted.WithLabelValues(event).Inc()
}

// RecordTxCancel increments the TX_CANCEL count.
func (m *ResponderMetrics) RecordTxCancel() {
	if m == nil {
		return
	}
	m.txCancels.Inc()
}
