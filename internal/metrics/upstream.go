package metrics

import "github.com/prometheus/client_golang/prometheus"

// Upstream and cache metrics are registered explicitly from main (no init())
// so that importing this package from tests does not drag them along.
var (
	// UpstreamRequestsTotal counts PokeAPI requests by outcome.
	UpstreamRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pokedex",
			Name:      "upstream_requests_total",
			Help:      "Total number of PokeAPI requests",
		},
		[]string{"outcome"}, // ok, not_found, timeout, unavailable, bad_gateway
	)

	// UpstreamCacheTotal counts cache lookups for upstream responses.
	UpstreamCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pokedex",
			Name:      "upstream_cache_total",
			Help:      "Upstream response cache lookups",
		},
		[]string{"result"}, // hit, miss
	)

	// RecommenderFitSeconds observes the one-time clustering fit duration.
	RecommenderFitSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pokedex",
			Name:      "recommender_fit_seconds",
			Help:      "Duration of the DBSCAN fit during initialization",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
	)
)

// RegisterUpstreamMetrics registers the upstream, cache, and fit metrics.
func RegisterUpstreamMetrics() {
	prometheus.MustRegister(UpstreamRequestsTotal)
	prometheus.MustRegister(UpstreamCacheTotal)
	prometheus.MustRegister(RecommenderFitSeconds)
}
