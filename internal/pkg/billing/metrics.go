package billing

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// WebhookRequestsTotal counts Stripe webhook requests by event type and status.
	WebhookRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weddingservices",
		Subsystem: "billing",
		Name:      "webhook_requests_total",
		Help:      "Total Stripe webhook requests by event type and HTTP status.",
	}, []string{"event_type", "status"})

	// WebhookDuration tracks Stripe webhook processing latency.
	WebhookDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "weddingservices",
		Subsystem: "billing",
		Name:      "webhook_duration_seconds",
		Help:      "Stripe webhook processing duration in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"event_type"})

	// DetachFailuresTotal counts old payment methods that could not be
	// detached while replacing a user's card.
	DetachFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "weddingservices",
		Subsystem: "billing",
		Name:      "payment_method_detach_failures_total",
		Help:      "Payment method detach calls that failed and were ignored.",
	})

	// CompensatingDetachesTotal counts detaches issued to undo a card update
	// whose local insert failed.
	CompensatingDetachesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "weddingservices",
		Subsystem: "billing",
		Name:      "compensating_detaches_total",
		Help:      "Compensating payment method detaches by outcome.",
	}, []string{"outcome"})
)
