package observability

import (
	"time"

	"github.com/boddenberg/studio-manager-bfa-go/internal/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics holds all Prometheus metrics for the BFA.
type Metrics struct {
	// Registry is the Prometheus registry that owns these metrics.
	// Exposed so the /metrics endpoint can use it.
	Registry *prometheus.Registry

	requestDuration     *prometheus.HistogramVec
	externalErrors      *prometheus.CounterVec
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	tokensUsed          *prometheus.CounterVec
	storageOps          *prometheus.CounterVec
	persistenceFailures *prometheus.CounterVec
	notifications       *prometheus.CounterVec
	activeSessions      prometheus.Gauge
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
				Name:    "studio_operation_duration_seconds",
				Help:    "Duration of orchestrator operations.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		externalErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_external_errors_total",
				Help: "Total errors from external services.",
			},
			[]string{"service"},
		),
		cacheHits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_cache_hits_total",
				Help: "Total cache hits.",
			},
			[]string{"cache"},
		),
		cacheMisses: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_cache_misses_total",
				Help: "Total cache misses.",
			},
			[]string{"cache"},
		),
		tokensUsed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_llm_tokens_total",
				Help: "Total LLM tokens consumed.",
			},
			[]string{"type"},
		),
		storageOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_storage_operations_total",
				Help: "Data store operations by kind, backend and result.",
			},
			[]string{"op", "backend", "result"},
		),
		persistenceFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_persistence_failures_total",
				Help: "Mutations kept in memory whose write to storage failed.",
			},
			[]string{"collection"},
		),
		notifications: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "studio_notifications_derived_total",
				Help: "Notifications derived, by type.",
			},
			[]string{"type"},
		),
		activeSessions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "studio_active_sessions",
				Help: "Sessions currently open.",
			},
		),
	}
}

// RecordRequestDuration records the duration of an operation.
func (m *Metrics) RecordRequestDuration(operation string, d time.Duration) {
	m.requestDuration.WithLabelValues(operation).Observe(d.Seconds())
}

// IncrExternalError increments the external error counter.
func (m *Metrics) IncrExternalError(service string) {
	m.externalErrors.WithLabelValues(service).Inc()
}

// IncrCacheHit increments the cache hit counter.
func (m *Metrics) IncrCacheHit(cache string) {
	m.cacheHits.WithLabelValues(cache).Inc()
}

// IncrCacheMiss increments the cache miss counter.
func (m *Metrics) IncrCacheMiss(cache string) {
	m.cacheMisses.WithLabelValues(cache).Inc()
}

// RecordTokens records prompt and completion token usage.
func (m *Metrics) RecordTokens(prompt, completion int) {
	m.tokensUsed.WithLabelValues("prompt").Add(float64(prompt))
	m.tokensUsed.WithLabelValues("completion").Add(float64(completion))
}

// IncrStorageOp counts a data store call. result is "ok", "miss" or "error".
func (m *Metrics) IncrStorageOp(op, backend, result string) {
	m.storageOps.WithLabelValues(op, backend, result).Inc()
}

// IncrPersistenceFailure counts a mutation whose write failed.
func (m *Metrics) IncrPersistenceFailure(collection string) {
	m.persistenceFailures.WithLabelValues(collection).Inc()
}

// IncrNotifications counts derived notifications per type.
func (m *Metrics) IncrNotifications(notificationType string, n int) {
	if n > 0 {
		m.notifications.WithLabelValues(notificationType).Add(float64(n))
	}
}

// SessionOpened and SessionClosed track the active sessions gauge.
func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }

func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }

// GetAppSnapshot returns the values served by GET /v1/metrics/app.
func (m *Metrics) GetAppSnapshot() *domain.AppMetrics {
	reads := sumCounters(m.storageOps, "get")
	writes := sumCounters(m.storageOps, "set") + sumCounters(m.storageOps, "delete")
	storageErrors := sumCountersByResult(m.storageOps, "error")

	cacheHits := getCounterValue(m.cacheHits.WithLabelValues("users"))
	cacheMisses := getCounterValue(m.cacheMisses.WithLabelValues("users"))
	cacheHitRate := float64(0)
	if cacheHits+cacheMisses > 0 {
		cacheHitRate = cacheHits / (cacheHits + cacheMisses)
	}

	var persistFailures float64
	for _, c := range []string{
		domain.CollectionJobs, domain.CollectionClients, domain.CollectionContracts,
		domain.CollectionDraftNotes, domain.CollectionSettings,
	} {
		persistFailures += getCounterValue(m.persistenceFailures.WithLabelValues(c))
	}

	return &domain.AppMetrics{
		ActiveSessions:      int64(getGaugeValue(m.activeSessions)),
		StorageReads:        int64(reads),
		StorageWrites:       int64(writes),
		StorageErrors:       int64(storageErrors),
		PersistenceFailures: int64(persistFailures),
		AIPromptTokens:      int64(getCounterValue(m.tokensUsed.WithLabelValues("prompt"))),
		AICompletionTokens:  int64(getCounterValue(m.tokensUsed.WithLabelValues("completion"))),
		CacheHitRate:        cacheHitRate,
	}
}

var (
	storageBackends = []string{"remote", "local"}
	storageResults  = []string{"ok", "miss", "error"}
	storageOpKinds  = []string{"get", "set", "delete"}
)

func sumCounters(cv *prometheus.CounterVec, op string) float64 {
	var total float64
	for _, b := range storageBackends {
		for _, r := range storageResults {
			total += getCounterValue(cv.WithLabelValues(op, b, r))
		}
	}
	return total
}

func sumCountersByResult(cv *prometheus.CounterVec, result string) float64 {
	var total float64
	for _, op := range storageOpKinds {
		for _, b := range storageBackends {
			total += getCounterValue(cv.WithLabelValues(op, b, result))
		}
	}
	return total
}

// getCounterValue extracts the current float64 value of a counter.
func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	if m.Counter != nil && m.Counter.Value != nil {
		return *m.Counter.Value
	}
	return 0
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	if m.Gauge != nil && m.Gauge.Value != nil {
		return *m.Gauge.Value
	}
	return 0
}
