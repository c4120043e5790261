// Package metrics declares the Prometheus collectors of the ranking core.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Recommendation cache
	RecommendationCacheHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tastemap_recommendation_cache_hits_total",
			Help: "Total number of vendor recommendation cache hits",
		},
	)

	RecommendationCacheMisses = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tastemap_recommendation_cache_misses_total",
			Help: "Total number of vendor recommendation cache misses (absent or expired)",
		},
	)

	// Scoring
	VendorScoringRuns = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tastemap_vendor_scoring_runs_total",
			Help: "Total number of batch vendor scoring passes",
		},
	)

	VendorScoringDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tastemap_vendor_scoring_duration_seconds",
			Help:    "Duration of a batch vendor scoring pass",
			Buckets: []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25},
		},
	)

	PostsRanked = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tastemap_posts_ranked_total",
			Help: "Total number of posts scored by the post ranking engine",
		},
	)

	// Preference store
	PreferenceLoadFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tastemap_preference_load_fallbacks_total",
			Help: "Preference loads that fell back to the neutral profile",
		},
		[]string{"reason"}, // "not_found", "error", "timeout", "breaker_open"
	)

	PreferencePersistFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tastemap_preference_persist_failures_total",
			Help: "Preference writes that failed and were kept in memory only",
		},
	)

	PreferenceDetachedWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "tastemap_preference_detached_writes_total",
			Help: "Learned updates kept in memory only because the stored profile could not be read",
		},
	)

	// Sessions
	ActiveSessions = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tastemap_active_sessions",
			Help: "Per-user session entries held in memory, expired ones included until swept",
		},
		[]string{"kind"}, // "preferences", "diversity"
	)

	// HTTP
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tastemap_http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)
)
