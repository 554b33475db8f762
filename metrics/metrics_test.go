package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveReview(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveReview("web", false)
	m.ObserveReview("web", true)
	m.ObserveReview("api", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReviewsTotal.WithLabelValues("web", OutcomeModel)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReviewsTotal.WithLabelValues("web", OutcomeFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ReviewsTotal.WithLabelValues("api", OutcomeModel)))
}

func TestRejectAndWebhook(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Reject("quota")
	m.Reject("quota")
	m.ObserveWebhook("customer.subscription.deleted", "handled")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.RejectionsTotal.WithLabelValues("quota")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookEventsTotal.WithLabelValues("customer.subscription.deleted", "handled")))
}

func TestObserveLLM(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveLLM("modelslab", 200, 2*time.Second)
	m.ObserveLLM("modelslab", 0, time.Second)

	assert.Equal(t, 2, testutil.CollectAndCount(m.LLMDuration))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveReview("web", true)
		m.Reject("validation")
		m.ObserveLLM("openai", 500, time.Millisecond)
		m.ObserveWebhook("x", "ignored")
	})
}
