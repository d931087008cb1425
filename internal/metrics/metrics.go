// Package metrics exposes Prometheus instrumentation for the capture, command, and HTTP paths.
package metrics

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"pkt.systems/tabcast/schema"
)

const namespace = "tabcast"

// Metrics holds the process collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	FramesCaptured  prometheus.Counter
	CaptureFailures *prometheus.CounterVec
	CaptureDuration prometheus.Histogram
	FrameBytes      prometheus.Gauge
	Commands        *prometheus.CounterVec
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	TabsOpen        prometheus.Gauge
}

// New constructs the collectors and registers them with a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_captured_total",
			Help:      "Frames captured and encoded.",
		}),
		CaptureFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_failures_total",
			Help:      "Capture attempts that produced no frame, by reason.",
		}, []string{"reason"}),
		CaptureDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_duration_seconds",
			Help:      "Time spent grabbing and encoding one frame.",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1},
		}),
		FrameBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "frame_bytes",
			Help:      "Size of the latest encoded frame.",
		}),
		Commands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_total",
			Help:      "Dispatched UI commands by kind and outcome.",
		}, []string{"kind", "outcome"}),
		Requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Stream server requests by path and status.",
		}, []string{"path", "status"}),
		RequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Stream server request latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path"}),
		TabsOpen: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "tabs_open",
			Help:      "Open tabs.",
		}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordCapture records one capture attempt.
func (m *Metrics) RecordCapture(elapsed time.Duration, size int, err error) {
	if m == nil {
		return
	}
	m.CaptureDuration.Observe(elapsed.Seconds())
	if err != nil {
		reason := "failed"
		if errors.Is(err, schema.ErrUnavailable) {
			reason = "unavailable"
		}
		m.CaptureFailures.WithLabelValues(reason).Inc()
		return
	}
	m.FramesCaptured.Inc()
	m.FrameBytes.Set(float64(size))
}

// RecordCommand records one dispatched command.
func (m *Metrics) RecordCommand(kind, outcome string) {
	if m == nil {
		return
	}
	m.Commands.WithLabelValues(kind, outcome).Inc()
}

// RecordRequest records one HTTP request.
func (m *Metrics) RecordRequest(path string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(path, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path).Observe(elapsed.Seconds())
}

// OnTabEvent tracks the open tab count.
func (m *Metrics) OnTabEvent(event schema.TabEvent) {
	if m == nil {
		return
	}
	m.TabsOpen.Set(float64(event.TabCount))
}
