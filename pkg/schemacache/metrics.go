package schemacache

import "github.com/prometheus/client_golang/prometheus"

var (
	schemaCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schema_cache_hits_total",
			Help: "Schema cache reads served from the persisted entry.",
		})

	schemaCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "schema_cache_misses_total",
			Help: "Schema cache reads that triggered a discovery run.",
		})
)

func init() {
	prometheus.MustRegister(schemaCacheHits, schemaCacheMisses)
}
