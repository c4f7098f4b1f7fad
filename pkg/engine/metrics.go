package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	questionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "homewatt_engine_questions_total",
			Help: "Questions handled by the conversational engine, by outcome",
		},
		[]string{"outcome"},
	)

	completionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "homewatt_engine_completion_duration_seconds",
			Help:    "Duration of text-completion service calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

const (
	outcomeAnswered = "answered"
	outcomeUnparsed = "unparsed"
	outcomeDenied   = "denied"
	outcomeFailed   = "failed"
)
