package ingest

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Cycle outcomes
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Metrics holds prometheus metrics of ingestion cycles.
// Metrics are registered in own registry
type Metrics struct {
	registry *prometheus.Registry

	EventsEmitted *prometheus.CounterVec
	Cycles        *prometheus.CounterVec
	Watermark     *prometheus.GaugeVec
	FetchDuration *prometheus.HistogramVec
}

// NewMetrics creates metrics registered in a new registry
func NewMetrics(namespace string) *Metrics {
	if namespace == "" {
		namespace = "statements_connector"
	}
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Metrics{
		registry: registry,
		EventsEmitted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_emitted_total",
			Help:      "Total number of events written to a sink",
		}, []string{"feed"}),
		Cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_total",
			Help:      "Total number of feed cycles by outcome",
		}, []string{"feed", "outcome"}),
		Watermark: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "watermark_timestamp_seconds",
			Help:      "Latest ingested event timestamp of a feed",
		}, []string{"feed"}),
		FetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "fetch_duration_seconds",
			Help:      "Statement fetch duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"feed"}),
	}
}

// Handler returns http handler that exposes the metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
