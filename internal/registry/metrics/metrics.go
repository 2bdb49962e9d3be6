package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var durationBuckets = []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1}

// Metrics provides observability for the registry ledger.
// All methods are safe on a nil receiver so services can run without metrics.
type Metrics struct {
	Operations        *prometheus.CounterVec
	OperationDuration *prometheus.HistogramVec
	FeesCollected     prometheus.Counter
	FeesWithdrawn     prometheus.Counter
	RecordsRegistered *prometheus.CounterVec
	AuditEvents       *prometheus.CounterVec
	EventsPublished   *prometheus.CounterVec
	EventsDropped     prometheus.Counter
	CacheLookups      *prometheus.CounterVec
}

// New registers the registry metrics with reg. Pass prometheus.DefaultRegisterer
// in production and a fresh prometheus.NewRegistry() in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_operations_total",
			Help: "Ledger operations by operation and outcome code",
		}, []string{"operation", "outcome"}),
		OperationDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nameledger_operation_duration_seconds",
			Help:    "Duration of ledger operations including the store transaction",
			Buckets: durationBuckets,
		}, []string{"operation"}),
		FeesCollected: f.NewCounter(prometheus.CounterOpts{
			Name: "nameledger_fees_collected_total",
			Help: "Fees credited to the ledger balance by register and renew",
		}),
		FeesWithdrawn: f.NewCounter(prometheus.CounterOpts{
			Name: "nameledger_fees_withdrawn_total",
			Help: "Fees moved out of the ledger balance by withdraw",
		}),
		RecordsRegistered: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_records_registered_total",
			Help: "Successful registrations by TLD",
		}, []string{"tld"}),
		AuditEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_audit_events_total",
			Help: "Audit log lines emitted by event name",
		}, []string{"event"}),
		EventsPublished: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_events_published_total",
			Help: "Notifications delivered by sink and result",
		}, []string{"sink", "result"}),
		EventsDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "nameledger_events_dropped_total",
			Help: "Notifications dropped because the async buffer was full",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "nameledger_resolve_cache_lookups_total",
			Help: "Resolve cache lookups by result (hit, miss, error, skipped)",
		}, []string{"result"}),
	}
}

// ObserveOperation records one ledger operation. outcome is "ok" or an error code.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveOperation(operation, outcome string, start time.Time) {
	if m == nil {
		return
	}
	m.Operations.WithLabelValues(operation, outcome).Inc()
	m.OperationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddFeesCollected(amount uint64) {
	if m == nil {
		return
	}
	m.FeesCollected.Add(float64(amount))
}

func (m *Metrics) AddFeesWithdrawn(amount uint64) {
	if m == nil {
		return
	}
	m.FeesWithdrawn.Add(float64(amount))
}

func (m *Metrics) IncrementRecordsRegistered(tld string) {
	if m == nil {
		return
	}
	m.RecordsRegistered.WithLabelValues(tld).Inc()
}

func (m *Metrics) IncrementAuditEvent(event string) {
	if m == nil {
		return
	}
	m.AuditEvents.WithLabelValues(event).Inc()
}

func (m *Metrics) IncrementEventsPublished(sink, result string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(sink, result).Inc()
}

func (m *Metrics) IncrementEventsDropped() {
	if m == nil {
		return
	}
	m.EventsDropped.Inc()
}

func (m *Metrics) IncrementCacheLookup(result string) {
	if m == nil {
		return
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}
