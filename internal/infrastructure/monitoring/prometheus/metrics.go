package prometheus

import (
	"strconv"
	"time"
)

// AppMetrics holds every metric the service emits, grouped by layer.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec

	// Insight layer
	InsightRequestsTotal   CounterVec
	InsightRequestDuration HistogramVec
	ResultCacheHitsTotal   CounterVec
	ResultCacheMissesTotal CounterVec

	// Query cache / translator layer
	QueryResolutionsTotal   CounterVec
	QueryResolutionDuration HistogramVec
	QueryCacheEntries       GaugeVec
	TranslatorRequestsTotal CounterVec
	TranslatorDuration      HistogramVec
	VectorSearchDuration    HistogramVec

	// Refresh layer
	RefreshTotal        CounterVec
	RefreshDuration     HistogramVec
	RefreshLastSuccess  GaugeVec
	InsightSnapshotSize GaugeVec
	FactsEventsTotal    CounterVec

	// Infrastructure layer
	DBQueryDuration HistogramVec
	FactRowsLoaded  CounterVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Default buckets
var (
	DefaultHTTPDurationBuckets    = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultRefreshDurationBuckets = []float64{1, 5, 10, 30, 60, 120, 300, 600}
	DefaultDBDurationBuckets      = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultLLMDurationBuckets     = []float64{.5, 1, 2, 5, 10, 30, 60}
)

// NewAppMetrics registers all metrics on the collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "Active HTTP requests", "method")

	// Insight
	m.InsightRequestsTotal = collector.RegisterCounter("insight_requests_total", "Insight operations served", "operation", "status")
	m.InsightRequestDuration = collector.RegisterHistogram("insight_request_duration_seconds", "Insight operation duration", DefaultHTTPDurationBuckets, "operation")
	m.ResultCacheHitsTotal = collector.RegisterCounter("result_cache_hits_total", "Result cache hits", "operation")
	m.ResultCacheMissesTotal = collector.RegisterCounter("result_cache_misses_total", "Result cache misses", "operation")

	// Query cache / translator
	m.QueryResolutionsTotal = collector.RegisterCounter("query_resolutions_total", "Natural language query resolutions", "outcome")
	m.QueryResolutionDuration = collector.RegisterHistogram("query_resolution_duration_seconds", "Query resolution duration", DefaultLLMDurationBuckets, "outcome")
	m.QueryCacheEntries = collector.RegisterGauge("query_cache_entries", "Query mapping cache entries", "schema_version")
	m.TranslatorRequestsTotal = collector.RegisterCounter("translator_requests_total", "Translator calls", "status")
	m.TranslatorDuration = collector.RegisterHistogram("translator_duration_seconds", "Translator call duration", DefaultLLMDurationBuckets, "operation")
	m.VectorSearchDuration = collector.RegisterHistogram("vector_search_duration_seconds", "Vector index search duration", DefaultDBDurationBuckets, "index")

	// Refresh
	m.RefreshTotal = collector.RegisterCounter("refresh_total", "Insight refresh runs", "status")
	m.RefreshDuration = collector.RegisterHistogram("refresh_duration_seconds", "Insight refresh duration", DefaultRefreshDurationBuckets)
	m.RefreshLastSuccess = collector.RegisterGauge("refresh_last_success_timestamp_seconds", "Unix time of last successful refresh")
	m.InsightSnapshotSize = collector.RegisterGauge("insight_snapshot_size", "Advanced insights in the live snapshot", "level")
	m.FactsEventsTotal = collector.RegisterCounter("facts_events_total", "Fact update events consumed", "status")

	// Infrastructure
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "operation")
	m.FactRowsLoaded = collector.RegisterCounter("fact_rows_loaded_total", "Fact rows loaded from storage", "table")

	// System health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Health check status (1=up, 0=down)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Total errors", "component", "code")

	return m
}

// Helpers

func RecordHTTPRequest(metrics *AppMetrics, method, path string, statusCode int, duration time.Duration) {
	metrics.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(statusCode)).Inc()
	metrics.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func RecordQueryResolution(metrics *AppMetrics, outcome string, duration time.Duration) {
	metrics.QueryResolutionsTotal.WithLabelValues(outcome).Inc()
	metrics.QueryResolutionDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

func RecordTranslatorCall(metrics *AppMetrics, operation string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.TranslatorRequestsTotal.WithLabelValues(status).Inc()
	metrics.TranslatorDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func RecordRefresh(metrics *AppMetrics, success bool, duration time.Duration, finishedAt time.Time) {
	status := "success"
	if !success {
		status = "failure"
	}
	metrics.RefreshTotal.WithLabelValues(status).Inc()
	metrics.RefreshDuration.WithLabelValues().Observe(duration.Seconds())
	if success {
		metrics.RefreshLastSuccess.WithLabelValues().Set(float64(finishedAt.Unix()))
	}
}

func RecordResultCacheAccess(metrics *AppMetrics, operation string, hit bool) {
	if hit {
		metrics.ResultCacheHitsTotal.WithLabelValues(operation).Inc()
	} else {
		metrics.ResultCacheMissesTotal.WithLabelValues(operation).Inc()
	}
}

func RecordError(metrics *AppMetrics, component, code string) {
	metrics.ErrorsTotal.WithLabelValues(component, code).Inc()
}
