package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics groups every collector the service exports. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	RequestCount    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	ProbesTotal  *prometheus.CounterVec
	ProbeLatency *prometheus.HistogramVec

	ScheduledEntries   prometheus.Gauge
	ProbesInFlight     prometheus.Gauge
	SchedulerSaturated prometheus.Counter

	AlertsPublished *prometheus.CounterVec
	AlertsDropped   prometheus.Counter
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestCount: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keepalive_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"path", "method", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keepalive_http_request_duration_seconds",
				Help:    "Histogram of response durations",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"path", "method"},
		),
		ProbesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keepalive_probes_total",
				Help: "Number of probes by outcome and error kind",
			},
			[]string{"outcome", "error_kind"},
		),
		ProbeLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "keepalive_probe_duration_seconds",
				Help:    "Duration of URL probes",
				Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"outcome"},
		),
		ScheduledEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keepalive_scheduler_entries",
			Help: "Number of live schedule entries",
		}),
		ProbesInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "keepalive_probes_in_flight",
			Help: "Number of probes currently running",
		}),
		SchedulerSaturated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keepalive_scheduler_saturated_total",
			Help: "Times a due entry found the worker queue full",
		}),
		AlertsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "keepalive_alerts_published_total",
				Help: "Alert events handed to the sink, by result",
			},
			[]string{"type", "result"},
		),
		AlertsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "keepalive_alerts_dropped_total",
			Help: "Alert events dropped because the queue was full",
		}),
	}

	reg.MustRegister(
		m.RequestCount, m.RequestDuration,
		m.ProbesTotal, m.ProbeLatency,
		m.ScheduledEntries, m.ProbesInFlight, m.SchedulerSaturated,
		m.AlertsPublished, m.AlertsDropped,
	)
	return m
}

// Observe records one served HTTP request.
func (m *Metrics) Observe(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

func (m *Metrics) ProbeObserved(success bool, errorKind string, latency time.Duration) {
	if m == nil {
		return
	}
	outcome := "success"
	if !success {
		outcome = "failure"
	}
	m.ProbesTotal.WithLabelValues(outcome, errorKind).Inc()
	m.ProbeLatency.WithLabelValues(outcome).Observe(latency.Seconds())
}

func (m *Metrics) SetEntries(n int) {
	if m == nil {
		return
	}
	m.ScheduledEntries.Set(float64(n))
}

func (m *Metrics) ProbeStarted() {
	if m == nil {
		return
	}
	m.ProbesInFlight.Inc()
}

func (m *Metrics) ProbeFinished() {
	if m == nil {
		return
	}
	m.ProbesInFlight.Dec()
}

func (m *Metrics) Saturated() {
	if m == nil {
		return
	}
	m.SchedulerSaturated.Inc()
}

func (m *Metrics) AlertPublished(eventType string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.AlertsPublished.WithLabelValues(eventType, result).Inc()
}

func (m *Metrics) AlertDropped() {
	if m == nil {
		return
	}
	m.AlertsDropped.Inc()
}
