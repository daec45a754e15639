package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// User Activity Metrics
	LoginAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_login_attempts_total",
		Help: "Total number of Spotify login attempts (successful and failed).",
	}, []string{"status"}) // status: "success" or "failed"
	TokenRefreshesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_token_refreshes_total",
		Help: "Total number of Spotify access token refreshes.",
	}, []string{"status"})

	// Library Metrics
	CrateCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_crate_created_total",
		Help: "Total number of crates created.",
	})
	AlbumsResyncedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_albums_resynced_total",
		Help: "Total number of saved albums written by library resyncs.",
	})
	AlbumsAssignedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_albums_assigned_total",
		Help: "Total number of album rows whose crate assignment changed.",
	}, []string{"mode"}) // mode: "single", "batch" or "clear"
	RateLimitRejectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_rate_limit_rejections_total",
		Help: "Total number of requests rejected by a rate limiter.",
	}, []string{"limiter"})

	// Suggestion Metrics
	SuggestionRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "app_suggestion_requests_total",
		Help: "Total number of crate suggestion requests.",
	}, []string{"status"})
	AISuggestionsGeneratedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_ai_suggestions_generated_total",
		Help: "Total number of AI suggestions returned to clients.",
	})
	EnrichmentFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "app_enrichment_failures_total",
		Help: "Total number of genre enrichments that degraded to empty.",
	})

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "circuit_breaker_state",
		Help: "Circuit breaker state (0=closed, 1=half-open, 2=open).",
	}, []string{"name"})
	CircuitBreakerTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_transitions_total",
		Help: "Total number of circuit breaker state transitions.",
	}, []string{"name", "from", "to"})
	CircuitBreakerRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "circuit_breaker_requests_total",
		Help: "Requests passing through a circuit breaker by result.",
	}, []string{"name", "result"}) // result: "success", "failure" or "rejected"
)
