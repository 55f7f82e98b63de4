package server

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/f-sync/followcheck/internal/relationships"
	"github.com/f-sync/followcheck/internal/views"
)

const (
	metricsNamespace      = "followcheck"
	metricsSubsystem      = "ingestion"
	metricLabelSource     = "source"
	metricLabelOutcome    = "outcome"
	metricLabelList       = "list"
	ingestionSourceUpload = "archive"
	ingestionSourceSample = "sample"
	outcomeSuccess        = "success"
	outcomeRejected       = "rejected"
	outcomeStoreFailure   = "store_failure"
)

// Metrics collects ingestion and snapshot metrics on a registry owned by the router.
type Metrics struct {
	registry          *prometheus.Registry
	ingestions        *prometheus.CounterVec
	ingestionDuration *prometheus.HistogramVec
	listSizes         *prometheus.GaugeVec
}

// NewMetrics registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		// Labels: source (archive, sample), outcome (success, rejected, store_failure or an error kind)
		ingestions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "total",
			Help:      "Ingestions by source and outcome",
		}, []string{metricLabelSource, metricLabelOutcome}),
		ingestionDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "duration_seconds",
			Help:      "Time spent ingesting an archive or generating a sample",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{metricLabelSource}),
		listSizes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: "snapshot",
			Name:      "list_size",
			Help:      "Entries per list of the current snapshot",
		}, []string{metricLabelList}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (metrics *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{Registry: metrics.registry})
}

func (metrics *Metrics) observeIngestion(source string, outcome string, elapsed time.Duration) {
	metrics.ingestions.WithLabelValues(source, outcome).Inc()
	metrics.ingestionDuration.WithLabelValues(source).Observe(elapsed.Seconds())
}

func (metrics *Metrics) observeSnapshot(snapshot relationships.Snapshot, loaded bool) {
	statistics := views.Summarize(snapshot)
	if !loaded {
		statistics = views.Statistics{}
	}
	metrics.listSizes.WithLabelValues(string(views.ListFollowers)).Set(float64(statistics.Followers))
	metrics.listSizes.WithLabelValues(string(views.ListFollowing)).Set(float64(statistics.Following))
	metrics.listSizes.WithLabelValues(string(views.ListNotFollowingBack)).Set(float64(statistics.NotFollowingBack))
	metrics.listSizes.WithLabelValues(string(views.ListIgnored)).Set(float64(statistics.Ignored))
	metrics.listSizes.WithLabelValues(string(views.ListPending)).Set(float64(statistics.Pending))
}
