package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"portal/internal/login"
)

var _ login.Recorder = (*Metrics)(nil)

// Metrics holds the portal's collectors on a dedicated registry. It
// satisfies login.Recorder.
type Metrics struct {
	registry *prometheus.Registry

	sessionReads    *prometheus.CounterVec
	sessionWrites   *prometheus.CounterVec
	sessionClears   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	streamConnected prometheus.Gauge
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		sessionReads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_reads_total",
			Help:      "Session store reads by outcome",
		}, []string{"outcome"}),
		sessionWrites: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_writes_total",
			Help:      "Session store writes by result",
		}, []string{"result"}),
		sessionClears: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_clears_total",
			Help:      "Session store clears by result",
		}, []string{"result"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:                   namespace,
			Name:                        "http_request_duration_seconds",
			Help:                        "HTTP request latency by route and status",
			NativeHistogramBucketFactor: 1.1,
		}, []string{"route", "status"}),
		streamConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "info_stream_connected",
			Help:      "1 while the backend info stream is connected",
		}),
	}

	m.registry.MustRegister(
		m.sessionReads,
		m.sessionWrites,
		m.sessionClears,
		m.requestDuration,
		m.streamConnected,
	)
	return m
}

func (m *Metrics) ObserveRead(outcome string) {
	m.sessionReads.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveWrite(err error) {
	m.sessionWrites.WithLabelValues(result(err)).Inc()
}

func (m *Metrics) ObserveClear(err error) {
	m.sessionClears.WithLabelValues(result(err)).Inc()
}

// ObserveRequest records one served request. route is the chi route
// pattern, not the raw path.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	m.requestDuration.WithLabelValues(route, strconv.Itoa(status)).Observe(d.Seconds())
}

func (m *Metrics) SetStreamConnected(connected bool) {
	if connected {
		m.streamConnected.Set(1)
		return
	}
	m.streamConnected.Set(0)
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
