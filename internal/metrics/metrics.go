package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "blobstream"

// Metrics holds the collectors for the stream endpoint on a private registry,
// so tests can create as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	bytes    prometheus.Counter
	aborted  prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Stream requests by outcome.",
		}, []string{"outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Time to serve a stream request, including the body transfer.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 4, 8),
		}, []string{"outcome"}),
		bytes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_streamed_total",
			Help:      "Blob bytes written to clients.",
		}),
		aborted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "streams_aborted_total",
			Help:      "Streams cut short after the response status was sent.",
		}),
	}

	m.registry.MustRegister(
		m.requests,
		m.duration,
		m.bytes,
		m.aborted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(outcome string, start time.Time) {
	m.requests.WithLabelValues(outcome).Inc()
	m.duration.WithLabelValues(outcome).Observe(time.Since(start).Seconds())
}

func (m *Metrics) AddBytes(n int64) {
	if n > 0 {
		m.bytes.Add(float64(n))
	}
}

func (m *Metrics) StreamAborted() {
	m.aborted.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
