package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// HTTPMetrics — метрики HTTP API по шаблону маршрута.
type HTTPMetrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewHTTPMetrics создаёт метрики HTTP API в указанном registerer.
func NewHTTPMetrics(registerer prometheus.Registerer) *HTTPMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &HTTPMetrics{
		requests: registerCounterVec(registerer, prometheus.CounterOpts{
			Name: "checkout_http_requests_total",
			Help: "Total number of HTTP API requests grouped by route, method and status code.",
		}, []string{"route", "method", "code"}),
		duration: registerHistogramVec(registerer, prometheus.HistogramOpts{
			Name:    "checkout_http_request_duration_seconds",
			Help:    "HTTP API request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
	}
}

// Observe учитывает завершённый запрос.
func (m *HTTPMetrics) Observe(route, method string, code int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.duration.WithLabelValues(route, method).Observe(duration.Seconds())
}
