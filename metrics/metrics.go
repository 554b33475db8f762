// Package metrics exposes Prometheus instrumentation for review submissions.
//
// All methods are safe on a nil *Metrics, so components can be built
// without instrumentation in tests.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "coderoast"

// Outcome labels for reviews_total.
const (
	OutcomeModel    = "model"
	OutcomeFallback = "fallback"
)

type Metrics struct {
	// ReviewsTotal counts persisted reviews.
	// Labels: entrypoint (web, api), outcome (model, fallback)
	ReviewsTotal *prometheus.CounterVec

	// RejectionsTotal counts submissions refused before the model was called.
	// Labels: reason (unauthenticated, validation, quota, forbidden)
	RejectionsTotal *prometheus.CounterVec

	// LLMDuration measures generation calls.
	// Labels: provider, status (HTTP status or "error")
	LLMDuration *prometheus.HistogramVec

	// WebhookEventsTotal counts processed billing events.
	// Labels: type, result (handled, ignored, error)
	WebhookEventsTotal *prometheus.CounterVec
}

// New creates and registers the metrics with reg.
// Pass prometheus.NewRegistry() in tests to avoid global registration conflicts.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		ReviewsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reviews_total",
				Help:      "Reviews persisted, by entrypoint and whether the model output was usable",
			},
			[]string{"entrypoint", "outcome"},
		),
		RejectionsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "review_rejections_total",
				Help:      "Review submissions rejected before generation, by reason",
			},
			[]string{"reason"},
		),
		LLMDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "llm_request_duration_seconds",
				Help:      "Latency of generation service calls",
				Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
			},
			[]string{"provider", "status"},
		),
		WebhookEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "billing_webhook_events_total",
				Help:      "Billing webhook events by type and result",
			},
			[]string{"type", "result"},
		),
	}
}

func (m *Metrics) ObserveReview(entrypoint string, fallback bool) {
	if m == nil {
		return
	}
	outcome := OutcomeModel
	if fallback {
		outcome = OutcomeFallback
	}
	m.ReviewsTotal.WithLabelValues(entrypoint, outcome).Inc()
}

func (m *Metrics) Reject(reason string) {
	if m == nil {
		return
	}
	m.RejectionsTotal.WithLabelValues(reason).Inc()
}

// ObserveLLM records one generation call. statusCode 0 means no response was received.
func (m *Metrics) ObserveLLM(provider string, statusCode int, d time.Duration) {
	if m == nil {
		return
	}
	status := "error"
	if statusCode > 0 {
		status = strconv.Itoa(statusCode)
	}
	m.LLMDuration.WithLabelValues(provider, status).Observe(d.Seconds())
}

func (m *Metrics) ObserveWebhook(eventType, result string) {
	if m == nil {
		return
	}
	m.WebhookEventsTotal.WithLabelValues(eventType, result).Inc()
}
