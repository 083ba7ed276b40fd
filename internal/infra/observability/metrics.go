package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the tracker.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration *prometheus.HistogramVec
	rowsIngested    *prometheus.CounterVec
	classified      *prometheus.CounterVec
	alertsEmitted   *prometheus.CounterVec
	webhookErrors   prometheus.Counter
	cacheHits       *prometheus.CounterVec
	cacheMisses     *prometheus.CounterVec
	requestsTotal   *prometheus.CounterVec
}

// NewMetrics creates a dedicated Prometheus registry and registers all
// application metrics in it. Using a private registry avoids "duplicate
// collector" panics when NewMetrics is called more than once (e.g. in tests).
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "pftrack_request_duration_seconds",
				Help:    "Duration of requests by operation.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		rowsIngested: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pftrack_rows_ingested_total",
				Help: "Total transaction rows ingested by account kind.",
			},
			[]string{"account_kind"},
		),
		classified: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pftrack_transactions_classified_total",
				Help: "Total transactions classified by category.",
			},
			[]string{"category"},
		),
		alertsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pftrack_alerts_emitted_total",
				Help: "Total alerts emitted by severity.",
			},
			[]string{"severity"},
		),
		webhookErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pftrack_webhook_errors_total",
				Help: "Total failed webhook deliveries.",
			},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pftrack_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pftrack_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pftrack_requests_total",
				Help: "Total requests processed.",
			},
			[]string{"status"},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// AddRowsIngested counts parsed transaction rows for one account kind.
func (m *Metrics) AddRowsIngested(accountKind string, n int) {
	m.rowsIngested.WithLabelValues(accountKind).Add(float64(n))
}

// IncrClassified increments the classification counter per category.
func (m *Metrics) IncrClassified(category string) {
	m.classified.WithLabelValues(category).Inc()
}

// IncrAlert increments the alert counter per severity.
func (m *Metrics) IncrAlert(severity string) {
	m.alertsEmitted.WithLabelValues(severity).Inc()
}

// IncrWebhookError increments the webhook delivery failure counter.
func (m *Metrics) IncrWebhookError() {
	m.webhookErrors.Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// IncrRequest increments the request counter with a status label.
func (m *Metrics) IncrRequest(status string) {
	m.requestsTotal.WithLabelValues(status).Inc()
}

// Snapshot is a point-in-time view of ingestion counters, served by
// the metrics summary endpoint.
type Snapshot struct {
	RowsIngested      float64 `json:"rows_ingested"`
	TotalRequests     float64 `json:"total_requests"`
	ErrorRate         float64 `json:"error_rate"`
	CacheHitRate      float64 `json:"cache_hit_rate"`
	WebhookErrors     float64 `json:"webhook_errors"`
	AlertsEmitted     float64 `json:"alerts_emitted"`
	CriticalAlertRate float64 `json:"critical_alert_rate"`
}

// GetSnapshot gathers current counter values.
func (m *Metrics) GetSnapshot() *Snapshot {
	rows := getCounterValue(m.rowsIngested, "checking") + getCounterValue(m.rowsIngested, "credit-card")
	totalRequests := getCounterValue(m.requestsTotal, "success") + getCounterValue(m.requestsTotal, "error")
	errorCount := getCounterValue(m.requestsTotal, "error")
	cacheHits := getCounterValue(m.cacheHits, "transactions")
	cacheMisses := getCounterValue(m.cacheMisses, "transactions")

	critical := getCounterValue(m.alertsEmitted, "critical")
	warnings := getCounterValue(m.alertsEmitted, "warning")
	infos := getCounterValue(m.alertsEmitted, "info")
	alerts := critical + warnings + infos

	errorRate := float64(0)
	if totalRequests > 0 {
		errorRate = errorCount / totalRequests
	}
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}
	criticalRate := float64(0)
	if alerts > 0 {
		criticalRate = critical / alerts
	}

	webhookErr := float64(0)
	dm := &dto.Metric{}
	if err := m.webhookErrors.Write(dm); err == nil && dm.Counter != nil && dm.Counter.Value != nil {
		webhookErr = *dm.Counter.Value
	}

	return &Snapshot{
		RowsIngested:      rows,
		TotalRequests:     totalRequests,
		ErrorRate:         errorRate,
		CacheHitRate:      cacheHitRate,
		WebhookErrors:     webhookErr,
		AlertsEmitted:     alerts,
		CriticalAlertRate: criticalRate,
	}
}

// getCounterValue extracts the current float64 value from a CounterVec for a given label.
func getCounterValue(cv *prometheus.CounterVec, label string) float64 {
	counter := cv.WithLabelValues(label)
	m := &dto.Metric{}
	if err := counter.(prometheus.Metric).Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}
