// Package metrics holds the service Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// OCR attempt outcomes.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
	OutcomeSkipped  = "skipped"
	OutcomeTimeout  = "timeout"
	OutcomePanic    = "panic"
)

var (
	RejectedRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rejected_requests_total",
		Help: "Number of rejected requests due to throttling",
	})

	SuccessfulRequests = promauto.NewCounter(prometheus.CounterOpts{
		Name: "successful_requests_total",
		Help: "Number of successfully processed requests",
	})

	Timeouts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "timeouts_total",
		Help: "Number of timeouts",
	})

	Exceptions = promauto.NewCounter(prometheus.CounterOpts{
		Name: "exceptions_total",
		Help: "Number of exceptions",
	})

	OCRAttempts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ocr_attempts_total",
			Help: "OCR backend attempts by outcome",
		},
		[]string{"engine", "outcome"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "extraction_duration_seconds",
			Help:    "Duration of extraction strategy runs in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"strategy"},
	)
)
