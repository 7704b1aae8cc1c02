package generator

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeOK    = "ok"
	outcomeError = "error"
	outcomeEmpty = "empty"
)

var (
	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "copycat_llm_requests_total",
		Help: "Chat completion calls by provider and outcome.",
	}, []string{"provider", "outcome"})

	llmDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "copycat_llm_request_duration_seconds",
		Help:    "Chat completion latency by provider.",
		Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 40},
	}, []string{"provider"})

	clonesGenerated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "copycat_clones_generated_total",
		Help: "Clone questions generated and stored.",
	})
)

func observeCompletion(provider, outcome string, start time.Time) {
	llmRequests.WithLabelValues(provider, outcome).Inc()
	llmDuration.WithLabelValues(provider).Observe(time.Since(start).Seconds())
}
