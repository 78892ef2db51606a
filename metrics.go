package vhkb

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts device traffic. A nil *Metrics records nothing.
type Metrics struct {
	requests   *prometheus.CounterVec
	retries    prometheus.Counter
	exhausted  *prometheus.CounterVec
	timerLevel prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vhkb_device_requests_total",
			Help: "Device request attempts by operation and result",
		}, []string{"op", "result"}),
		retries: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vhkb_device_retries_total",
			Help: "Waits between failed device request attempts",
		}),
		exhausted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vhkb_device_unreachable_total",
			Help: "Device requests that failed every attempt",
		}, []string{"op"}),
		timerLevel: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vhkb_timer_level",
			Help: "Last timer level reported to HomeKit (percent)",
		}),
	}
	reg.MustRegister(m.requests, m.retries, m.exhausted, m.timerLevel)
	return m
}

func (m *Metrics) request(op string, ok bool) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.requests.WithLabelValues(op, result).Inc()
}

func (m *Metrics) retry() {
	if m == nil {
		return
	}
	m.retries.Inc()
}

func (m *Metrics) unreachable(op string) {
	if m == nil {
		return
	}
	m.exhausted.WithLabelValues(op).Inc()
}

func (m *Metrics) timer(level int) {
	if m == nil {
		return
	}
	m.timerLevel.Set(float64(level))
}
