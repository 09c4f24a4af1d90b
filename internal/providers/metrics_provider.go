package providers

import (
	"time"

	"datasync/internal/structures"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits(category string)
	IncCacheMisses(category string)
	IncPagesFetched(endpoint string)
	IncFetchErrors(endpoint string, class string)
	ObservePageDuration(endpoint string, duration time.Duration)
	AddRecordsMerged(category string, kind string, count int)
	ObserveSaveDuration(category string, duration time.Duration)
	SetRecordsTotal(category string, count int)
	IncCategoryFailures(category string)
	SetLastRun(t time.Time)
}

type MetricsProvider struct {
	requestsTotal    *prometheus.CounterVec
	requestDuration  *prometheus.HistogramVec
	cacheHits        *prometheus.CounterVec
	cacheMisses      *prometheus.CounterVec
	pagesFetched     *prometheus.CounterVec
	fetchErrors      *prometheus.CounterVec
	pageDuration     *prometheus.HistogramVec
	recordsMerged    *prometheus.CounterVec
	saveDuration     *prometheus.HistogramVec
	recordsTotal     *prometheus.GaugeVec
	categoryFailures *prometheus.CounterVec
	lastRun          prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits(category string) {
	m.cacheHits.WithLabelValues(category).Inc()
}

func (m *MetricsProvider) IncCacheMisses(category string) {
	m.cacheMisses.WithLabelValues(category).Inc()
}

func (m *MetricsProvider) IncPagesFetched(endpoint string) {
	m.pagesFetched.WithLabelValues(endpoint).Inc()
}

func (m *MetricsProvider) IncFetchErrors(endpoint string, class string) {
	m.fetchErrors.WithLabelValues(endpoint, class).Inc()
}

func (m *MetricsProvider) ObservePageDuration(endpoint string, duration time.Duration) {
	m.pageDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) AddRecordsMerged(category string, kind string, count int) {
	m.recordsMerged.WithLabelValues(category, kind).Add(float64(count))
}

func (m *MetricsProvider) ObserveSaveDuration(category string, duration time.Duration) {
	m.saveDuration.WithLabelValues(category).Observe(duration.Seconds())
}

func (m *MetricsProvider) SetRecordsTotal(category string, count int) {
	m.recordsTotal.WithLabelValues(category).Set(float64(count))
}

func (m *MetricsProvider) IncCategoryFailures(category string) {
	m.categoryFailures.WithLabelValues(category).Inc()
}

func (m *MetricsProvider) SetLastRun(t time.Time) {
	m.lastRun.Set(float64(t.Unix()))
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "datasync_requests_total",
			Help: "Total number of HTTP requests served",
		}, []string{"endpoint", "status"}),
		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "datasync_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		cacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "datasync_cache_hits_total",
			Help: "Total number of snapshot cache hits",
		}, []string{"category"}),
		cacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "datasync_cache_misses_total",
			Help: "Total number of snapshot cache misses",
		}, []string{"category"}),
		pagesFetched: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "datasync_pages_fetched_total",
			Help: "Total number of non-empty pages fetched from the source API",
		}, []string{"endpoint"}),
		fetchErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "datasync_fetch_errors_total",
			Help: "Total number of page requests that ended pagination with an error",
		}, []string{"endpoint", "class"}),
		pageDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "datasync_page_duration_seconds",
			Help:    "Source API page request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),
		recordsMerged: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "datasync_records_merged_total",
			Help: "Total number of rows inserted or updated in snapshots",
		}, []string{"category", "kind"}),
		saveDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "datasync_save_duration_seconds",
			Help:    "Duration of snapshot save operations in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"category"}),
		recordsTotal: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "datasync_snapshot_rows",
			Help: "Number of rows in the last written snapshot per category",
		}, []string{"category"}),
		categoryFailures: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "datasync_category_failures_total",
			Help: "Total number of failed category syncs",
		}, []string{"category"}),
		lastRun: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "datasync_last_run_timestamp_seconds",
			Help: "Unix time of the last finished pipeline run",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits(_ string)                            {}
func (n *noopMetrics) IncCacheMisses(_ string)                          {}
func (n *noopMetrics) IncPagesFetched(_ string)                         {}
func (n *noopMetrics) IncFetchErrors(_ string, _ string)                {}
func (n *noopMetrics) ObservePageDuration(_ string, _ time.Duration)    {}
func (n *noopMetrics) AddRecordsMerged(_ string, _ string, _ int)       {}
func (n *noopMetrics) ObserveSaveDuration(_ string, _ time.Duration)    {}
func (n *noopMetrics) SetRecordsTotal(_ string, _ int)                  {}
func (n *noopMetrics) IncCategoryFailures(_ string)                     {}
func (n *noopMetrics) SetLastRun(_ time.Time)                           {}
