package logbook

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics contains Prometheus metrics for chain reads and repairs
type Metrics struct {
	repairsTotal        *prometheus.CounterVec
	rewrittenTotal      *prometheus.CounterVec
	repairDuration      *prometheus.HistogramVec
	cacheHitsTotal      prometheus.Counter
	cacheMissesTotal    prometheus.Counter
	discrepanciesGauge  *prometheus.GaugeVec
	publishFailureTotal prometheus.Counter
}

// NewMetrics creates and registers logbook metrics
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) initMetrics() {
	m.repairsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logbook_chain_repairs_total",
			Help: "Total number of chain repairs",
		},
		[]string{"operation", "status"}, // operation: upsert, delete, rebuild
	)
	m.rewrittenTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "logbook_rewritten_documents_total",
			Help: "Total number of road lists written back by chain repairs",
		},
		[]string{"operation"},
	)
	m.repairDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "logbook_chain_repair_duration_seconds",
			Help:    "Time taken to load, repair and persist a chain",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
		},
		[]string{"operation"},
	)
	m.cacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logbook_chain_cache_hits_total",
		Help: "Total number of calculated chain cache hits",
	})
	m.cacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logbook_chain_cache_misses_total",
		Help: "Total number of calculated chain cache misses",
	})
	m.discrepanciesGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "logbook_chain_discrepancies",
			Help: "Broken links found by the last verification of a vehicle's chain",
		},
		[]string{"vehicle_id"},
	)
	m.publishFailureTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "logbook_event_publish_failures_total",
		Help: "Total number of chain events that could not be published",
	})
}

// Describe implements prometheus.Collector
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	m.repairsTotal.Describe(ch)
	m.rewrittenTotal.Describe(ch)
	m.repairDuration.Describe(ch)
	m.cacheHitsTotal.Describe(ch)
	m.cacheMissesTotal.Describe(ch)
	m.discrepanciesGauge.Describe(ch)
	m.publishFailureTotal.Describe(ch)
}

// Collect implements prometheus.Collector
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	m.repairsTotal.Collect(ch)
	m.rewrittenTotal.Collect(ch)
	m.repairDuration.Collect(ch)
	m.cacheHitsTotal.Collect(ch)
	m.cacheMissesTotal.Collect(ch)
	m.discrepanciesGauge.Collect(ch)
	m.publishFailureTotal.Collect(ch)
}

// The recorders below accept a nil receiver so the service runs without metrics.

func (m *Metrics) recordRepair(op string, err error, rewritten int, elapsed time.Duration) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	m.repairsTotal.WithLabelValues(op, status).Inc()
	m.repairDuration.WithLabelValues(op).Observe(elapsed.Seconds())
	if err == nil {
		m.rewrittenTotal.WithLabelValues(op).Add(float64(rewritten))
	}
}

func (m *Metrics) recordCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHitsTotal.Inc()
	} else {
		m.cacheMissesTotal.Inc()
	}
}

func (m *Metrics) recordDiscrepancies(vehicleID string, n int) {
	if m == nil {
		return
	}
	m.discrepanciesGauge.WithLabelValues(vehicleID).Set(float64(n))
}

func (m *Metrics) recordPublishFailure() {
	if m == nil {
		return
	}
	m.publishFailureTotal.Inc()
}
