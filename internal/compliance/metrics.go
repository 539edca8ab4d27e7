package compliance

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scoreComputations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "compliance",
		Subsystem: "scoring",
		Name:      "computations_total",
		Help:      "Total number of compliance score computations broken down by framework and result.",
	}, []string{"framework", "result"})

	scoreLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "compliance",
		Subsystem: "scoring",
		Name:      "latency_seconds",
		Help:      "Latency distribution for compliance score computations.",
		Buckets: []float64{
			0.001, 0.005, 0.01, 0.025,
			0.05, 0.1, 0.25, 0.5,
			1, 2.5, 5,
		},
	}, []string{"framework"})

	lastScore = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "compliance",
		Subsystem: "scoring",
		Name:      "last_overall_score",
		Help:      "Overall score of the most recent computation per framework.",
	}, []string{"framework"})
)

// ObserveScore records a finished score computation
func ObserveScore(framework Framework, score float64, started time.Time) {
	scoreComputations.WithLabelValues(string(framework), "ok").Inc()
	scoreLatency.WithLabelValues(string(framework)).Observe(time.Since(started).Seconds())
	lastScore.WithLabelValues(string(framework)).Set(score)
}

// ObserveFailure records a score computation that returned an error
func ObserveFailure(framework Framework, started time.Time) {
	scoreComputations.WithLabelValues(string(framework), "error").Inc()
	scoreLatency.WithLabelValues(string(framework)).Observe(time.Since(started).Seconds())
}
