// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "costmeter"

type Metrics struct {
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	GrpcRequestsTotal *prometheus.CounterVec

	EventsIngested     prometheus.Counter
	IngestBatches      *prometheus.CounterVec
	AlertsCreated      *prometheus.CounterVec
	AlertsDeduplicated *prometheus.CounterVec
	EventsRecalculated prometheus.Counter
	CacheRefreshes     *prometheus.CounterVec
	CacheRefreshTime   prometheus.Histogram
}

var (
	instance *Metrics
	once     sync.Once
)

func Get() *Metrics {
	once.Do(func() {
		instance = newMetrics(prometheus.DefaultRegisterer)
	})
	return instance
}

func newMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		HTTPRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),
		HTTPRequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_in_flight",
			Help:      "Number of HTTP requests being served",
		}),
		GrpcRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "grpc",
				Name:      "requests_total",
				Help:      "Total number of gRPC requests",
			},
			[]string{"method", "code"},
		),
		EventsIngested: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "events",
			Name:      "ingested_total",
			Help:      "Events persisted through ingest",
		}),
		IngestBatches: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "events",
				Name:      "ingest_batches_total",
				Help:      "Ingest batches by outcome",
			},
			[]string{"outcome"},
		),
		AlertsCreated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alerts",
				Name:      "created_total",
				Help:      "Alerts created",
			},
			[]string{"alert_type", "severity"},
		),
		AlertsDeduplicated: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "alerts",
				Name:      "deduplicated_total",
				Help:      "Triggered alerts dropped by the dedup window",
			},
			[]string{"alert_type"},
		),
		EventsRecalculated: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pricing",
			Name:      "events_recalculated_total",
			Help:      "Events whose cost was recomputed",
		}),
		CacheRefreshes: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "sessionlog",
				Name:      "cache_refreshes_total",
				Help:      "Session log cache refreshes by outcome",
			},
			[]string{"outcome"},
		),
		CacheRefreshTime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "sessionlog",
			Name:      "cache_refresh_duration_seconds",
			Help:      "Time spent parsing session logs",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		}),
	}
}

func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordAlert(alertType, severity string, created bool) {
	if created {
		m.AlertsCreated.WithLabelValues(alertType, severity).Inc()
		return
	}
	m.AlertsDeduplicated.WithLabelValues(alertType).Inc()
}

func (m *Metrics) RecordCacheRefresh(err error, duration time.Duration) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CacheRefreshes.WithLabelValues(outcome).Inc()
	m.CacheRefreshTime.Observe(duration.Seconds())
}
