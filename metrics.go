package main

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics holds the request collectors. It uses its own registry so that
// nothing else in the process ends up on /metrics.
type metrics struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	responseBytes   prometheus.Counter
	requestDuration *prometheus.HistogramVec
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staticserve_requests_total",
			Help: "Requests handled, by method and status code.",
		}, []string{"method", "code"}),
		responseBytes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "staticserve_response_bytes_total",
			Help: "Body bytes written to clients.",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "staticserve_request_duration_seconds",
			Help:    "Time from reading the request to finishing the response.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method"}),
	}
	m.registry.MustRegister(m.requestsTotal, m.responseBytes, m.requestDuration)
	return m
}

// methodLabel folds anything the server doesn't serve into one label value,
// so clients can't grow the label set.
func methodLabel(method string) string {
	switch method {
	case http.MethodGet, http.MethodHead:
		return method
	default:
		return "other"
	}
}

func (m *metrics) observe(method string, code int, n int64, d time.Duration) {
	if m == nil {
		return
	}
	method = methodLabel(method)
	m.requestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	m.responseBytes.Add(float64(n))
	m.requestDuration.WithLabelValues(method).Observe(d.Seconds())
}

func (m *metrics) handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
	return mux
}

func (m *metrics) serve(ln net.Listener) error {
	return serveUntilClosed(&http.Server{Handler: m.handler()}, ln)
}
