package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_cache_hits_total",
		Help: "Recommendation cache hits.",
	})
	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_cache_misses_total",
		Help: "Recommendation cache misses.",
	})
	RecommendFallbacks = promauto.NewCounter(prometheus.CounterOpts{
		Name: "discovery_recommend_fallbacks_total",
		Help: "Recommendation requests degraded to random fill.",
	})
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_search_requests_total",
		Help: "Ranked search requests by sort mode.",
	}, []string{"sort"})
	GeoIPLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "discovery_geoip_lookups_total",
		Help: "IP geolocation lookups by outcome.",
	}, []string{"outcome"})
)
