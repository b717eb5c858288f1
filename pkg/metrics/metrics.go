// Package metrics exposes persona's Prometheus collectors.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	dto "github.com/prometheus/client_model/go"
)

// Turn outcomes.
const (
	OutcomeOK              = "ok"
	OutcomeInvalidRequest  = "invalid_request"
	OutcomeMisconfigured   = "misconfigured"
	OutcomeUpstreamFailure = "upstream_failure"
	OutcomeStoreFailure    = "store_failure"
)

// Event publishing results.
const (
	EventPublished = "published"
	EventFailed    = "failed"
	EventDropped   = "dropped"
)

var (
	turnsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_turns_total",
			Help: "Total number of chat turns by outcome",
		},
		[]string{"outcome"},
	)

	upstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "persona_upstream_duration_seconds",
			Help:    "Remote model call duration in seconds",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"provider", "outcome"},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "persona_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	eventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "persona_events_total",
			Help: "Turn events by publishing result",
		},
		[]string{"result"},
	)

	initOnce sync.Once
)

// Init registers all collectors with the default registry. Safe to call
// more than once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			turnsTotal,
			upstreamDuration,
			httpRequestsTotal,
			httpRequestDuration,
			eventsTotal,
		)
	})
}

// Handler serves the default registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordTurn counts one orchestrated turn.
func RecordTurn(outcome string) {
	turnsTotal.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records one remote model call.
func ObserveUpstream(provider, outcome string, d time.Duration) {
	upstreamDuration.WithLabelValues(provider, outcome).Observe(d.Seconds())
}

// RecordHTTP records one served HTTP request.
func RecordHTTP(method, route string, status int, d time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordEvent counts one turn event by result.
func RecordEvent(result string) {
	eventsTotal.WithLabelValues(result).Inc()
}

// TurnCount returns the current counter value for outcome.
func TurnCount(outcome string) float64 {
	return counterValue(turnsTotal.WithLabelValues(outcome))
}

// EventCount returns the current counter value for result.
func EventCount(result string) float64 {
	return counterValue(eventsTotal.WithLabelValues(result))
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
