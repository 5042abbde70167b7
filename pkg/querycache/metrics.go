package querycache

import "github.com/prometheus/client_golang/prometheus"

var (
	queryCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "query_cache_hits_total",
			Help: "Chatbot responses served from the query cache.",
		})

	queryCacheMisses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "query_cache_misses_total",
			Help: "Query cache lookups that found no fresh entry.",
		})

	queryCacheEvictions = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "query_cache_evictions_total",
			Help: "Entries evicted because the cache hit its size bound.",
		})
)

func init() {
	prometheus.MustRegister(queryCacheHits, queryCacheMisses, queryCacheEvictions)
}
