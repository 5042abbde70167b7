package sqlgen

import "github.com/prometheus/client_golang/prometheus"

var (
	generationAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sqlgen_attempts_per_question",
			Help:    "Generation attempts consumed per answered question.",
			Buckets: []float64{1, 2, 3},
		})

	generationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "sqlgen_failures_total",
			Help: "Generation runs that produced no executable statement.",
		})
)

func init() {
	prometheus.MustRegister(generationAttempts, generationFailures)
}
