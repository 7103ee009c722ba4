// Package metrics exposes Prometheus collectors for the dispatcher and the
// connection health check. All methods are safe on a nil *Metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "rover_"

// Metrics holds every go-rover collector.
type Metrics struct {
	commands       *prometheus.CounterVec
	dispatchLat    prometheus.Histogram
	inFlight       prometheus.Gauge
	alerts         *prometheus.CounterVec
	healthChecks   *prometheus.CounterVec
	healthLatency  prometheus.Gauge
	connected      prometheus.Gauge
	gestureEvents  *prometheus.CounterVec
	networksListed prometheus.Gauge
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// Default returns collectors registered on prometheus.DefaultRegisterer.
func Default() *Metrics {
	defaultOnce.Do(func() {
		defaultMetrics = New(prometheus.DefaultRegisterer)
	})
	return defaultMetrics
}

// New creates collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		commands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "commands_total",
			Help: "Commands dispatched to the device, by kind and result",
		}, []string{"kind", "result"}),
		dispatchLat: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    metricPrefix + "dispatch_duration_seconds",
			Help:    "Round-trip time of command requests",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "dispatch_in_flight",
			Help: "Command requests currently awaiting a response",
		}),
		alerts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "alerts_total",
			Help: "User-facing alerts raised, by title",
		}, []string{"title"}),
		healthChecks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "health_checks_total",
			Help: "Health checks performed, by result",
		}, []string{"result"}),
		healthLatency: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "health_latency_ms",
			Help: "Round-trip time of the last successful health check",
		}),
		connected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "connected",
			Help: "1 when the last health check succeeded",
		}),
		gestureEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: metricPrefix + "gesture_events_total",
			Help: "Gesture events received, by type",
		}, []string{"type"}),
		networksListed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "wifi_networks",
			Help: "Distinct networks returned by the last scan",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.commands,
			m.dispatchLat,
			m.inFlight,
			m.alerts,
			m.healthChecks,
			m.healthLatency,
			m.connected,
			m.gestureEvents,
			m.networksListed,
		)
	}
	return m
}

// DispatchStarted marks a request as in flight.
func (m *Metrics) DispatchStarted() {
	if m == nil {
		return
	}
	m.inFlight.Inc()
}

// DispatchDone records a finished request.
func (m *Metrics) DispatchDone(kind string, ok bool, d time.Duration) {
	if m == nil {
		return
	}
	m.inFlight.Dec()
	m.commands.WithLabelValues(kind, result(ok)).Inc()
	m.dispatchLat.Observe(d.Seconds())
}

// Alert counts a user-facing alert.
func (m *Metrics) Alert(title string) {
	if m == nil {
		return
	}
	m.alerts.WithLabelValues(title).Inc()
}

// HealthCheck records a health check result.
func (m *Metrics) HealthCheck(ok bool, latency time.Duration) {
	if m == nil {
		return
	}
	m.healthChecks.WithLabelValues(result(ok)).Inc()
	if ok {
		m.connected.Set(1)
		m.healthLatency.Set(float64(latency.Milliseconds()))
	} else {
		m.connected.Set(0)
	}
}

// Gesture counts an inbound gesture event.
func (m *Metrics) Gesture(eventType string) {
	if m == nil {
		return
	}
	m.gestureEvents.WithLabelValues(eventType).Inc()
}

// Networks records the size of the last scan result.
func (m *Metrics) Networks(n int) {
	if m == nil {
		return
	}
	m.networksListed.Set(float64(n))
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
