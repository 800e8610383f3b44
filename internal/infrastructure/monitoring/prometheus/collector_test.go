package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/geoinsight/geoinsight/internal/infrastructure/monitoring/logging"
)

func newTestCollector(t *testing.T) MetricsCollector {
	t.Helper()
	c, err := NewMetricsCollector(CollectorConfig{
		Namespace: "test",
		Subsystem: "unit",
	}, logging.NewNopLogger())
	require.NoError(t, err)
	return c
}

func scrape(t *testing.T, collector MetricsCollector) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	collector.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	return w.Body.String()
}

func TestNewMetricsCollectorRequiresNamespace(t *testing.T) {
	_, err := NewMetricsCollector(CollectorConfig{}, logging.NewNopLogger())
	assert.Error(t, err)
}

func TestRegisterCounterWithLabels(t *testing.T) {
	c := newTestCollector(t)
	counter := c.RegisterCounter("http_requests", "HTTP requests", "method")
	counter.WithLabelValues("GET").Add(5)

	output := scrape(t, c)
	assert.Contains(t, output, `test_unit_http_requests{method="GET"} 5`)
}

func TestRegisterCounterDuplicateReturnsSameVector(t *testing.T) {
	c := newTestCollector(t)
	c1 := c.RegisterCounter("dup_counter", "help")
	c2 := c.RegisterCounter("dup_counter", "help")

	c1.WithLabelValues().Inc()
	c2.WithLabelValues().Inc()

	output := scrape(t, c)
	assert.Contains(t, output, "test_unit_dup_counter 2")
}

func TestRegisterGaugeSetAndSub(t *testing.T) {
	c := newTestCollector(t)
	gauge := c.RegisterGauge("snapshot_size", "help", "level")
	gauge.WithLabelValues("sig").Set(40)
	gauge.WithLabelValues("sig").Sub(5)

	output := scrape(t, c)
	assert.Contains(t, output, `test_unit_snapshot_size{level="sig"} 35`)
}

func TestRegisterHistogramObserves(t *testing.T) {
	c := newTestCollector(t)
	hist := c.RegisterHistogram("op_duration_seconds", "help", DefaultHTTPDurationBuckets, "operation")
	hist.WithLabelValues("rankings").Observe(0.2)
	hist.WithLabelValues("rankings").Observe(0.7)

	output := scrape(t, c)
	assert.Contains(t, output, `test_unit_op_duration_seconds_count{operation="rankings"} 2`)
}

func TestRegisterCounterNameCollisionAcrossTypesIsNoop(t *testing.T) {
	c := newTestCollector(t)
	c.RegisterGauge("mixed", "help")

	// Same name, different type: callers get a safe no-op instead of a panic.
	counter := c.RegisterCounter("mixed", "help")
	assert.NotPanics(t, func() { counter.WithLabelValues().Inc() })
}

func TestTimerObservesElapsed(t *testing.T) {
	c := newTestCollector(t)
	hist := c.RegisterHistogram("timed_seconds", "help", nil)

	timer := NewTimer(hist.WithLabelValues())
	time.Sleep(10 * time.Millisecond)
	timer.ObserveDuration()

	output := scrape(t, c)
	assert.Contains(t, output, "test_unit_timed_seconds_count 1")
}

func TestNilTimerHistogram(t *testing.T) {
	timer := NewTimer(nil)
	assert.NotPanics(t, timer.ObserveDuration)
}
