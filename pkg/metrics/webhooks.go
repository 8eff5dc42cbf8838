package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// WebhookMetrics records gateway notification processing outcomes.
type WebhookMetrics struct {
	duration  *prometheus.HistogramVec
	processed *prometheus.CounterVec
	scans     *prometheus.CounterVec
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "webhook_duration_seconds",
		Help:    "Duration of webhook processing in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"provider"})
	processed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_processed_total",
		Help: "Processed gateway notifications by outcome.",
	}, []string{"provider", "outcome"})
	scans := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "redemption_scans_total",
		Help: "Gate and bar redemption attempts by outcome.",
	}, []string{"kind", "outcome"})
	reg.MustRegister(duration, processed, scans)
	return &WebhookMetrics{
		duration:  duration,
		processed: processed,
		scans:     scans,
	}
}

// ObserveDuration records processing time for the named provider.
func (w *WebhookMetrics) ObserveDuration(provider string, duration time.Duration) {
	if w == nil || w.duration == nil {
		return
	}
	w.duration.WithLabelValues(normalizeLabel(provider)).Observe(duration.Seconds())
}

// IncProcessed counts one notification with its outcome.
func (w *WebhookMetrics) IncProcessed(provider, outcome string) {
	if w == nil || w.processed == nil {
		return
	}
	w.processed.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncScan counts one redemption attempt with its outcome.
func (w *WebhookMetrics) IncScan(kind, outcome string) {
	if w == nil || w.scans == nil {
		return
	}
	w.scans.WithLabelValues(normalizeLabel(kind), normalizeLabel(outcome)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
