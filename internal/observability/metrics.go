// Package observability provides Prometheus metrics for the application.
package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "titan"

// Purge reasons.
const (
	PurgeBeforeJob = "before_job"
	PurgeManual    = "manual"
	PurgeExpired   = "expired"
)

// Metrics holds all application metrics.
type Metrics struct {
	registry *prometheus.Registry

	// Download metrics
	DownloadsTotal      *prometheus.CounterVec
	DownloadsInProgress prometheus.Gauge
	DownloadDuration    *prometheus.HistogramVec
	DownloadBytes       prometheus.Counter

	// History metrics
	HistoryAppendsTotal *prometheus.CounterVec
	HistoryWipesTotal   prometheus.Counter

	// Storage metrics
	FilesPurgedTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Proxy metrics
	ProxiesConfigured prometheus.Gauge
}

// New creates a registry with the Go and process collectors and registers all application metrics on it.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		DownloadsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "total",
			Help:      "Total number of download requests by media kind and outcome",
		}, []string{"kind", "status"}),
		DownloadsInProgress: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "in_progress",
			Help:      "Number of extractions currently running",
		}),
		DownloadDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "duration_seconds",
			Help:      "Histogram of extraction duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800},
		}, []string{"kind"}),
		DownloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "downloads",
			Name:      "bytes_total",
			Help:      "Total size of produced files in bytes",
		}),

		HistoryAppendsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "appends_total",
			Help:      "Total number of history appends by outcome",
		}, []string{"status"}),
		HistoryWipesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "history",
			Name:      "wipes_total",
			Help:      "Total number of history wipes",
		}),

		FilesPurgedTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "storage",
			Name:      "files_purged_total",
			Help:      "Total number of files removed from the download directory",
		}, []string{"reason"}),

		HTTPRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Histogram of HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "path"}),
		HTTPResponseSize: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "response_size_bytes",
			Help:      "Histogram of HTTP response sizes in bytes",
			Buckets:   []float64{100, 1000, 10000, 100000, 1000000, 10000000},
		}, []string{"method", "path"}),

		ProxiesConfigured: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "configured",
			Help:      "Number of configured proxies",
		}),
	}
}

// Handler returns the Prometheus HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// DownloadStarted marks an extraction as running and returns a function that records its outcome.
func (m *Metrics) DownloadStarted(kind string) func(status string) {
	start := time.Now()

	m.DownloadsInProgress.Inc()

	return func(status string) {
		m.DownloadsInProgress.Dec()
		m.DownloadDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		m.DownloadsTotal.WithLabelValues(kind, status).Inc()
	}
}

// RecordDownloadRejected counts a request refused before extraction started.
func (m *Metrics) RecordDownloadRejected(kind, reason string) {
	m.DownloadsTotal.WithLabelValues(kind, reason).Inc()
}

// RecordDownloadBytes adds the size of a produced file.
func (m *Metrics) RecordDownloadBytes(n int64) {
	if n > 0 {
		m.DownloadBytes.Add(float64(n))
	}
}

// RecordHistoryAppend records the outcome of a history append.
func (m *Metrics) RecordHistoryAppend(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}

	m.HistoryAppendsTotal.WithLabelValues(status).Inc()
}

// RecordHistoryWipe counts a history wipe.
func (m *Metrics) RecordHistoryWipe() {
	m.HistoryWipesTotal.Inc()
}

// RecordPurge adds removed files under reason.
func (m *Metrics) RecordPurge(reason string, files int) {
	m.FilesPurgedTotal.WithLabelValues(reason).Add(float64(files))
}

// RecordHTTPRequest records HTTP request metrics.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration, size int) {
	statusStr := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(size))
}

// SetProxiesConfigured sets the number of configured proxies.
func (m *Metrics) SetProxiesConfigured(count int) {
	m.ProxiesConfigured.Set(float64(count))
}
