package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HealthChecks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_health_checks_total",
			Help: "Total number of tenant health checks by result",
		},
		[]string{"status"},
	)

	HealthCheckDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tenant_health_check_duration_seconds",
			Help:    "Round-trip time of tenant health checks",
			Buckets: prometheus.DefBuckets,
		},
	)

	SyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_usage_sync_total",
			Help: "Total number of tenant usage syncs by outcome",
		},
		[]string{"outcome"},
	)

	SyncJobsProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sync_jobs_processed_total",
			Help: "Total number of queued sync jobs processed by workers",
		},
	)

	SyncQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_queue_depth",
			Help: "Current RabbitMQ depth of the tenant sync job queue",
		},
	)

	WorkerActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "sync_worker_active_goroutines",
			Help: "Number of active sync worker goroutines",
		},
	)

	TenantClients = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tenant_clients_cached",
			Help: "Number of cached tenant HTTP clients",
		},
	)

	ModuleReplaces = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tenant_module_replace_total",
			Help: "Total number of module set replacements by outcome",
		},
		[]string{"outcome"},
	)
)

// Init registers metrics with Prometheus
func Init() {
	prometheus.MustRegister(HealthChecks)
	prometheus.MustRegister(HealthCheckDuration)
	prometheus.MustRegister(SyncRuns)
	prometheus.MustRegister(SyncJobsProcessed)
	prometheus.MustRegister(SyncQueueDepth)
	prometheus.MustRegister(WorkerActive)
	prometheus.MustRegister(TenantClients)
	prometheus.MustRegister(ModuleReplaces)
}

// Handler returns the Prometheus metrics HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
