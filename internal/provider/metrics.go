package provider

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type outcome string

const (
	outcomeSuccess outcome = "success"
	outcomeFailure outcome = "failure"
	outcomeSkipped outcome = "skipped"
)

var (
	attemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estate_assistant",
		Subsystem: "provider",
		Name:      "attempts_total",
		Help:      "Provider attempts broken down by provider and outcome.",
	}, []string{"provider", "outcome"})

	attemptLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "estate_assistant",
		Subsystem: "provider",
		Name:      "latency_seconds",
		Help:      "Latency of provider calls that were actually issued.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"provider", "outcome"})

	chainResults = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "estate_assistant",
		Subsystem: "chain",
		Name:      "results_total",
		Help:      "Fallback chain results: success, cache_hit or exhausted.",
	}, []string{"result"})
)

func recordAttempt(provider string, o outcome, latency time.Duration) {
	attemptsTotal.With(prometheus.Labels{"provider": provider, "outcome": string(o)}).Inc()
	if o == outcomeSkipped {
		return
	}
	attemptLatency.With(prometheus.Labels{"provider": provider, "outcome": string(o)}).Observe(latency.Seconds())
}

func recordChain(result string) {
	chainResults.WithLabelValues(result).Inc()
}
