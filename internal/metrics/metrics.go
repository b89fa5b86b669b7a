// Package metrics exposes sync and webhook counters in Prometheus format.
package metrics

import (
	"errors"
	"github.com/ariefcatur/go-shop-sync/internal/shop"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"net/http"
	"time"
)

// Webhook outcome labels.
const (
	OutcomeMapped      = "mapped"
	OutcomeStored      = "stored"
	OutcomeIgnored     = "ignored"
	OutcomeUnknownShop = "unknown_shop"
	OutcomeRejected    = "rejected"
	OutcomeFailed      = "failed"
)

// Metrics owns a private registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	records  *prometheus.CounterVec
	skipped  *prometheus.CounterVec
	failures *prometheus.CounterVec
	duration *prometheus.HistogramVec
	webhooks *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_records_total",
			Help:      "Records upserted by sync runs.",
		}, []string{"kind"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_skipped_total",
			Help:      "Fetched records dropped by the mapper.",
		}, []string{"kind"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_failures_total",
			Help:      "Failed fetch-map-upsert steps.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "sync_step_duration_seconds",
			Help:      "Duration of one fetch-map-upsert step.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		webhooks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "webhooks_total",
			Help:      "Webhook deliveries by topic and outcome.",
		}, []string{"topic", "outcome"}),
	}
	m.registry.MustRegister(
		m.records, m.skipped, m.failures, m.duration, m.webhooks,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveSync(kind shop.Kind, written, skipped int, took time.Duration, err error) {
	k := kind.String()
	m.duration.WithLabelValues(k).Observe(took.Seconds())
	if err != nil {
		m.failures.WithLabelValues(k).Inc()
		return
	}
	m.records.WithLabelValues(k).Add(float64(written))
	m.skipped.WithLabelValues(k).Add(float64(skipped))
}

// ObserveWebhook counts one delivery. Topics outside the tracked set share a
// single label value since the header is caller controlled.
func (m *Metrics) ObserveWebhook(topic, outcome string) {
	if !shop.IsTrackedTopic(topic) {
		topic = "untracked"
	}
	m.webhooks.WithLabelValues(topic, outcome).Inc()
}

// WebhookOutcome classifies the result of one ingest call.
func WebhookOutcome(stored, mapped bool, err error) string {
	switch {
	case errors.Is(err, shop.ErrTenantNotFound):
		return OutcomeUnknownShop
	case errors.Is(err, shop.ErrMissingHeaders), errors.Is(err, shop.ErrInvalidPayload):
		return OutcomeRejected
	case err != nil:
		return OutcomeFailed
	case mapped:
		return OutcomeMapped
	case stored:
		return OutcomeStored
	default:
		return OutcomeIgnored
	}
}
