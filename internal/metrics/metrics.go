// Package metrics collects Prometheus counters for auth sessions and HTTP traffic.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Auth event outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// Recorder is what services and middleware report to.
type Recorder interface {
	AuthEvent(op, outcome string)
	HTTPRequest(route string, status int, d time.Duration)
}

// Collector is the Prometheus-backed Recorder.
type Collector struct {
	auth     *prometheus.CounterVec
	status   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewCollector creates the metrics and registers them on reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		auth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_auth_events_total",
			Help: "Auth operations by operation and outcome.",
		}, []string{"op", "outcome"}),
		status: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "storefront_http_requests_total",
			Help: "HTTP responses by route pattern and status code.",
		}, []string{"route", "status_code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "storefront_http_request_duration_seconds",
			Help:    "HTTP request latency by route pattern.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
	}
	reg.MustRegister(c.auth, c.status, c.duration)
	return c
}

// AuthEvent counts one auth operation.
func (c *Collector) AuthEvent(op, outcome string) {
	c.auth.WithLabelValues(op, outcome).Inc()
}

// HTTPRequest counts one response and observes its latency.
func (c *Collector) HTTPRequest(route string, status int, d time.Duration) {
	c.status.WithLabelValues(route, strconv.Itoa(status)).Inc()
	c.duration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Nop discards everything.
type Nop struct{}

func (Nop) AuthEvent(string, string) {}

func (Nop) HTTPRequest(string, int, time.Duration) {}
