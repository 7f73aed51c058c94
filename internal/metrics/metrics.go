// Package metrics provides Prometheus metrics collection for the masking proxy.
package metrics

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "payload_masker"

// Payload directions.
const (
	DirectionRequest  = "request"
	DirectionResponse = "response"
)

// Payload outcomes.
const (
	OutcomeMasked  = "masked"  // parsed and at least one field masked
	OutcomeClean   = "clean"   // parsed, nothing to mask
	OutcomeInvalid = "invalid" // declared JSON but could not be parsed
	OutcomeSkipped = "skipped" // not JSON, empty, or masking disabled
)

var (
	// Using atomic.Pointer for lock-free initialization checks on hot path metrics.
	requestsTotal     atomic.Pointer[prometheus.CounterVec]
	requestDuration   atomic.Pointer[prometheus.HistogramVec]
	payloadsTotal     atomic.Pointer[prometheus.CounterVec]
	maskedFieldsTotal atomic.Pointer[prometheus.CounterVec]
	ruleReloadsTotal  atomic.Pointer[prometheus.CounterVec]
	rulesLoaded       atomic.Pointer[prometheus.Gauge]
)

// Init initializes all Prometheus metrics and registers them with the provided registry.
// This should be called once at application startup.
func Init(reg prometheus.Registerer) error {
	requestsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled by the proxy",
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestsTotalVec); err != nil {
		return fmt.Errorf("failed to register requestsTotal: %w", err)
	}

	requestDurationVec := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "proxy",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
	if err := reg.Register(requestDurationVec); err != nil {
		return fmt.Errorf("failed to register requestDuration: %w", err)
	}

	payloadsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "masking",
			Name:      "payloads_total",
			Help:      "Payloads seen by the masking layer, by direction and outcome",
		},
		[]string{"direction", "outcome"},
	)
	if err := reg.Register(payloadsTotalVec); err != nil {
		return fmt.Errorf("failed to register payloadsTotal: %w", err)
	}

	maskedFieldsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "masking",
			Name:      "masked_fields_total",
			Help:      "Number of string fields masked",
		},
		[]string{"direction"},
	)
	if err := reg.Register(maskedFieldsTotalVec); err != nil {
		return fmt.Errorf("failed to register maskedFieldsTotal: %w", err)
	}

	ruleReloadsTotalVec := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "reloads_total",
			Help:      "Rule set rebuilds, by trigger and result",
		},
		[]string{"source", "result"},
	)
	if err := reg.Register(ruleReloadsTotalVec); err != nil {
		return fmt.Errorf("failed to register ruleReloadsTotal: %w", err)
	}

	rulesLoadedGauge := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "rules",
			Name:      "loaded",
			Help:      "Number of field rules in the active rule set",
		},
	)
	if err := reg.Register(rulesLoadedGauge); err != nil {
		return fmt.Errorf("failed to register rulesLoaded: %w", err)
	}

	requestsTotal.Store(requestsTotalVec)
	requestDuration.Store(requestDurationVec)
	payloadsTotal.Store(payloadsTotalVec)
	maskedFieldsTotal.Store(maskedFieldsTotalVec)
	ruleReloadsTotal.Store(ruleReloadsTotalVec)
	rulesLoaded.Store(&rulesLoadedGauge)

	return nil
}

// RecordRequest increments the requests counter for the given method, path, and status code.
// The path should be normalized (e.g., "/api/rules/:id" instead of "/api/rules/12").
func RecordRequest(method, path, statusCode string) {
	if counter := requestsTotal.Load(); counter != nil {
		counter.WithLabelValues(method, path, statusCode).Inc()
	}
}

// RecordRequestDuration records the latency for a request in seconds.
func RecordRequestDuration(method, path, statusCode string, durationSeconds float64) {
	if histogram := requestDuration.Load(); histogram != nil {
		histogram.WithLabelValues(method, path, statusCode).Observe(durationSeconds)
	}
}

// RecordPayload counts one payload for direction with the given outcome.
func RecordPayload(direction, outcome string) {
	if counter := payloadsTotal.Load(); counter != nil {
		counter.WithLabelValues(direction, outcome).Inc()
	}
}

// RecordMaskedFields adds n masked fields for direction. Non-positive n is ignored.
func RecordMaskedFields(direction string, n int) {
	if n <= 0 {
		return
	}
	if counter := maskedFieldsTotal.Load(); counter != nil {
		counter.WithLabelValues(direction).Add(float64(n))
	}
}

// RecordRuleReload counts one rule set rebuild. result is "success" or "error".
func RecordRuleReload(source, result string) {
	if counter := ruleReloadsTotal.Load(); counter != nil {
		counter.WithLabelValues(source, result).Inc()
	}
}

// SetRulesLoaded sets the size of the active rule set.
func SetRulesLoaded(n int) {
	if gauge := rulesLoaded.Load(); gauge != nil {
		(*gauge).Set(float64(n))
	}
}

// HandlerFor returns an HTTP handler serving the metrics gathered from g.
func HandlerFor(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}

// GetMetricsText returns the Prometheus text-format output from a registry.
// This is useful for testing and debugging.
func GetMetricsText(reg prometheus.Gatherer) (string, error) {
	req := httptest.NewRequest("GET", "/metrics", nil)
	w := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(w, req)

	body, err := io.ReadAll(w.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read metrics output: %w", err)
	}
	return string(body), nil
}
